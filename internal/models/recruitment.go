// internal/models/recruitment.go
package models

import "time"

// DeletedSentinel marks a live row. Soft-deleted rows carry their deletion time.
var DeletedSentinel = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Project struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	TemplateID  string    `json:"template_id"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	PublicApply bool      `json:"public_apply"`
	CreatedAt   time.Time `json:"created_at"`
	OrgName     string    `json:"org_name,omitempty"`
}

// ProjectUpdate carries the fields HR may change; nil fields are left alone.
type ProjectUpdate struct {
	Name        *string `json:"name"`
	TemplateID  *string `json:"template_id"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	PublicApply *bool   `json:"public_apply"`
}

type APIKey struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	KeyValue  string    `json:"key_value"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplicantStatus is a lifecycle state of an applicant.
type ApplicantStatus string

const (
	StatusProcessing        ApplicantStatus = "processing"
	StatusScreened          ApplicantStatus = "screened"
	StatusApproved          ApplicantStatus = "approved"
	StatusInterviewApproved ApplicantStatus = "interview_approved"
	StatusHired             ApplicantStatus = "hired"
	StatusRejected          ApplicantStatus = "rejected"

	// StatusPending predates background scoring and is only read by the
	// status migration.
	StatusPending ApplicantStatus = "pending"
)

type Applicant struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	CVText      string          `json:"cv_text"`
	CVHash      string          `json:"cv_hash"`
	AIScore     *int            `json:"ai_score"`
	AIReasoning *string         `json:"ai_reasoning"`
	Status      ApplicantStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProjectName string          `json:"project_name,omitempty"`
}

// NewApplicant is an applicant accepted by the intake gates, not yet scored.
type NewApplicant struct {
	ProjectID string
	Name      string
	Email     string
	CVText    string
	CVHash    string
}

// Assessment is the outcome of AI screening.
type Assessment struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// AuditEntry is a best-effort record of an action on a resource.
type AuditEntry struct {
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ProjectCreate is the payload for a new project. Unset flags default to true.
type ProjectCreate struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	TemplateID  string `json:"template_id"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	PublicApply *bool  `json:"public_apply"`
}
