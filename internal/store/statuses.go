// internal/store/statuses.go
package store

import (
	"context"
	"database/sql"

	"hris-cloud/internal/models"

	"github.com/lib/pq"
)

const (
	countApplicantStatuses = `SELECT status, COUNT(*) FROM applicants GROUP BY status`

	remapLegacyStatuses = `UPDATE applicants SET status = $1 WHERE status = ANY($2)`
)

// LegacyStatuses are the statuses written before background scoring
// existed. Applicants in them go back through screening.
var LegacyStatuses = []models.ApplicantStatus{models.StatusPending, models.StatusApproved}

// StatusMigration reports the status distribution around a remap.
type StatusMigration struct {
	Before   map[string]int
	After    map[string]int
	Migrated int64
}

// MigrateLegacyStatuses moves applicants in any of the given statuses back
// to processing. With dryRun set nothing is written and After equals Before.
func (s *Store) MigrateLegacyStatuses(ctx context.Context, legacy []models.ApplicantStatus, dryRun bool) (*StatusMigration, error) {
	before, err := s.statusCounts(ctx, s.db)
	if err != nil {
		return nil, err
	}
	result := &StatusMigration{Before: before, After: before}
	if dryRun {
		for _, st := range legacy {
			result.Migrated += int64(before[string(st)])
		}
		return result, nil
	}

	names := make([]string, len(legacy))
	for i, st := range legacy {
		names[i] = string(st)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, remapLegacyStatuses, models.StatusProcessing, pq.Array(names))
		if err != nil {
			return queryFailed("remap legacy statuses", err)
		}
		if result.Migrated, err = res.RowsAffected(); err != nil {
			return queryFailed("remap legacy statuses", err)
		}
		result.After, err = s.statusCounts(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *Store) statusCounts(ctx context.Context, q queryer) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, countApplicantStatuses)
	if err != nil {
		return nil, queryFailed("count applicant statuses", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, queryFailed("scan status count", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
