// internal/workers/recruitment/score-applicant/models.go
package scoreapplicant

type Input struct {
	ApplicantID string `json:"applicantId"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CVText      string `json:"cvText"`
}

type Output struct {
	ApplicantID string `json:"applicantId"`
	Score       int    `json:"score"`
	Reasoning   string `json:"reasoning"`
	Status      string `json:"status"`  // "screened" or "rejected"
	Applied     bool   `json:"applied"` // false when an earlier delivery already scored
}

// modelReply is the JSON object the model is instructed to return.
type modelReply struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}
