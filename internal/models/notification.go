// internal/models/notification.go
package models

import "time"

// DecisionNotification is the email sent to an applicant after an HR decision.
type DecisionNotification struct {
	ApplicantID   string          `json:"applicantId"`
	CandidateName string          `json:"candidateName"`
	Email         string          `json:"email"`
	ProjectName   string          `json:"projectName"`
	Status        ApplicantStatus `json:"status"`
}

// StatusEvent is published whenever an applicant changes status.
type StatusEvent struct {
	ApplicantID string          `json:"applicantId"`
	ProjectID   string          `json:"projectId"`
	Status      ApplicantStatus `json:"status"`
	Score       *int            `json:"score,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}
