// internal/models/policy.go
package models

import "time"

type PolicyLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Reasoning string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
}

// PolicyAnswer is the response of the policy assistant.
type PolicyAnswer struct {
	Answer    string `json:"answer"`
	Reasoning string `json:"reasoning"`
}

// PolicyFile describes an uploaded policy document.
type PolicyFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}
