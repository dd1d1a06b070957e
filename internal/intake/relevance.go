// internal/intake/relevance.go
package intake

import (
	"strings"

	apperrors "hris-cloud/internal/common/errors"
)

// professionalTerms is the vocabulary a CV is expected to draw from.
var professionalTerms = []string{
	"experience", "education", "skills", "projects", "summary", "objective",
	"university", "college", "bachelor", "master", "degree", "certification",
	"employment", "work history", "responsibilities", "achievements",
	"email", "phone", "linkedin", "github", "contact",
	"engineer", "developer", "manager", "analyst", "intern", "consultant",
	"designer", "specialist", "lead", "administrator", "assistant",
	// Indonesian
	"pengalaman", "pendidikan", "keahlian", "keterampilan", "universitas",
	"sarjana", "riwayat pekerjaan", "sertifikasi", "kontak",
}

// RelevanceResult lists the distinct vocabulary terms found in the text.
type RelevanceResult struct {
	Passed  bool     `json:"passed"`
	Matched []string `json:"matched"`
}

// IsProfessional reports whether text contains at least minTerms distinct
// professional terms, matched case-insensitively as substrings.
func IsProfessional(text string, minTerms int) RelevanceResult {
	lower := strings.ToLower(text)
	matched := make([]string, 0, minTerms)
	for _, term := range professionalTerms {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}
	return RelevanceResult{Passed: len(matched) >= minTerms, Matched: matched}
}

// CheckRelevance wraps IsProfessional as an IRRELEVANT_CONTENT error.
func CheckRelevance(text string, minTerms int) error {
	if result := IsProfessional(text, minTerms); !result.Passed {
		return apperrors.NewValidationError(
			apperrors.ErrCodeIrrelevantContent,
			"Irrelevant content. CV must be professional.",
			"",
			"Please upload your professional resume.",
		)
	}
	return nil
}
