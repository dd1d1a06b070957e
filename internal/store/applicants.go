// internal/store/applicants.go
package store

import (
	"context"
	"database/sql"
	"errors"

	"hris-cloud/internal/models"
)

const (
	applicantColumns = `a.id, a.project_id, a.name, a.email, a.cv_text, a.cv_hash,
a.ai_score, a.ai_reasoning, a.status, a.created_at`

	selectApplicantByHash = `SELECT ` + applicantColumns + ` FROM applicants a
WHERE a.project_id = $1 AND a.cv_hash = $2 AND a.deleted_at = $3`

	// The partial unique index on (project_id, cv_hash) turns a concurrent
	// duplicate into an empty RETURNING set.
	insertApplicant = `INSERT INTO applicants AS a (id, project_id, name, email, cv_text, cv_hash,
status, created_at, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT DO NOTHING
RETURNING ` + applicantColumns

	selectApplicant = `SELECT ` + applicantColumns + ` FROM applicants a
WHERE a.id = $1 AND a.deleted_at = $2`

	selectApplicantsByProject = `SELECT ` + applicantColumns + ` FROM applicants a
WHERE a.project_id = $1 AND a.deleted_at = $2
ORDER BY a.ai_score DESC NULLS LAST, a.created_at DESC`

	selectApplicantsByOwner = `SELECT ` + applicantColumns + `, p.name FROM applicants a
JOIN projects p ON p.id = a.project_id
WHERE p.owner_id = $1 AND p.deleted_at = $2 AND a.deleted_at = $2
ORDER BY a.created_at DESC`

	updateApplicantStatus = `UPDATE applicants SET status = $3
WHERE id = $1 AND status = $2 AND deleted_at = $4`

	recordApplicantScore = `UPDATE applicants SET ai_score = $2, ai_reasoning = $3, status = $4
WHERE id = $1 AND status = $5 AND ai_score IS NULL AND deleted_at = $6`

	softDeleteApplicant = `UPDATE applicants SET deleted_at = $3
WHERE id = $1 AND deleted_at = $2`
)

func scanApplicant(row rowScanner, extra ...interface{}) (*models.Applicant, error) {
	var (
		a         models.Applicant
		score     sql.NullInt64
		reasoning sql.NullString
	)
	dest := append([]interface{}{
		&a.ID, &a.ProjectID, &a.Name, &a.Email, &a.CVText, &a.CVHash,
		&score, &reasoning, &a.Status, &a.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		a.AIScore = &v
	}
	if reasoning.Valid {
		a.AIReasoning = &reasoning.String
	}
	return &a, nil
}

func (s *Store) FindApplicantByHash(ctx context.Context, projectID, hash string) (*models.Applicant, error) {
	a, err := scanApplicant(s.db.QueryRowContext(ctx, selectApplicantByHash, projectID, hash, live))
	if err != nil {
		return nil, wrapNotFound(queryFailed("select applicant by hash", err), "applicant")
	}
	return a, nil
}

// InsertApplicant stores a new applicant in processing status. When a live
// applicant with the same CV already exists in the project, that record is
// returned with created=false.
func (s *Store) InsertApplicant(ctx context.Context, in models.NewApplicant) (*models.Applicant, bool, error) {
	row := s.db.QueryRowContext(ctx, insertApplicant,
		s.newID(), in.ProjectID, in.Name, in.Email, in.CVText, in.CVHash,
		models.StatusProcessing, s.now(), live)
	a, err := scanApplicant(row)
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, queryFailed("insert applicant", err)
	}

	existing, err := s.FindApplicantByHash(ctx, in.ProjectID, in.CVHash)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) GetApplicant(ctx context.Context, id string) (*models.Applicant, error) {
	a, err := scanApplicant(s.db.QueryRowContext(ctx, selectApplicant, id, live))
	if err != nil {
		return nil, wrapNotFound(queryFailed("select applicant", err), "applicant "+id)
	}
	return a, nil
}

// ListApplicants returns a project's live applicants, best score first.
func (s *Store) ListApplicants(ctx context.Context, projectID string) ([]models.Applicant, error) {
	return s.listApplicants(ctx, selectApplicantsByProject, false, projectID, live)
}

// ListAllApplicants returns every live applicant across the owner's live
// projects, newest first, with the project name filled in.
func (s *Store) ListAllApplicants(ctx context.Context, ownerID string) ([]models.Applicant, error) {
	return s.listApplicants(ctx, selectApplicantsByOwner, true, ownerID, live)
}

func (s *Store) listApplicants(ctx context.Context, query string, withProject bool, args ...interface{}) ([]models.Applicant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("list applicants", err)
	}
	defer rows.Close()

	applicants := make([]models.Applicant, 0)
	for rows.Next() {
		var (
			a           *models.Applicant
			projectName string
		)
		if withProject {
			a, err = scanApplicant(rows, &projectName)
		} else {
			a, err = scanApplicant(rows)
		}
		if err != nil {
			return nil, queryFailed("scan applicant", err)
		}
		a.ProjectName = projectName
		applicants = append(applicants, *a)
	}
	return applicants, rows.Err()
}

// UpdateApplicantStatus moves an applicant from one status to another. It
// fails with ErrStatusConflict if the status changed underneath the caller.
func (s *Store) UpdateApplicantStatus(ctx context.Context, id string, from, to models.ApplicantStatus) error {
	res, err := s.db.ExecContext(ctx, updateApplicantStatus, id, from, to, live)
	if err != nil {
		return queryFailed("update applicant status", err)
	}
	if err := checkAffected(res, "update applicant status"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrStatusConflict
		}
		return err
	}
	return nil
}

// RecordScore writes the screening result once. It only applies while the
// applicant is still processing and unscored, so a redelivered task is a
// no-op; applied reports whether the row changed.
func (s *Store) RecordScore(ctx context.Context, id string, score int, reasoning string, status models.ApplicantStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx, recordApplicantScore, id, score, reasoning, status, models.StatusProcessing, live)
	if err != nil {
		return false, queryFailed("record applicant score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryFailed("record applicant score", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteApplicant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, softDeleteApplicant, id, live, s.now())
	if err != nil {
		return queryFailed("delete applicant", err)
	}
	return wrapNotFound(checkAffected(res, "delete applicant"), "applicant "+id)
}
