// internal/workers/recruitment/publish-status-event/models.go
package publishstatusevent

import "hris-cloud/internal/models"

type Input = models.StatusEvent

type Output struct {
	MessageID   string `json:"messageId,omitempty"`
	Status      string `json:"status"`      // "sent", "failed", "disabled"
	PublishedAt string `json:"publishedAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
