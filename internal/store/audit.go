// internal/store/audit.go
package store

import (
	"context"
	"encoding/json"

	"hris-cloud/internal/models"
)

const insertAudit = `INSERT INTO audit_log (action, resource, resource_id, actor_id, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// InsertAudit records an audit entry. Failures are logged and swallowed.
func (s *Store) InsertAudit(ctx context.Context, entry models.AuditEntry) {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err == nil {
			details = encoded
		}
	}

	_, err := s.db.ExecContext(ctx, insertAudit,
		entry.Action, entry.Resource, entry.ResourceID, entry.ActorID, details, s.now())
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err,
			"action":     entry.Action,
			"resourceId": entry.ResourceID,
		})
	}
}
