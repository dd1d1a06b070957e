// internal/store/policy_logs.go
package store

import (
	"context"

	"hris-cloud/internal/models"
)

const (
	insertPolicyLog = `INSERT INTO policy_logs (id, user_id, query, answer, reasoning, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	selectPolicyLogs = `SELECT id, user_id, query, answer, reasoning, created_at FROM policy_logs
ORDER BY created_at DESC LIMIT $1`
)

// InsertPolicyLog stores a policy Q&A exchange, filling in ID and CreatedAt.
func (s *Store) InsertPolicyLog(ctx context.Context, entry *models.PolicyLog) error {
	entry.ID = s.newID()
	entry.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, insertPolicyLog,
		entry.ID, entry.UserID, entry.Query, entry.Answer, entry.Reasoning, entry.CreatedAt)
	if err != nil {
		return queryFailed("insert policy log", err)
	}
	return nil
}

// ListPolicyLogs returns the most recent exchanges, newest first.
func (s *Store) ListPolicyLogs(ctx context.Context, limit int) ([]models.PolicyLog, error) {
	rows, err := s.db.QueryContext(ctx, selectPolicyLogs, limit)
	if err != nil {
		return nil, queryFailed("list policy logs", err)
	}
	defer rows.Close()

	logs := make([]models.PolicyLog, 0)
	for rows.Next() {
		var l models.PolicyLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Query, &l.Answer, &l.Reasoning, &l.CreatedAt); err != nil {
			return nil, queryFailed("scan policy log", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
