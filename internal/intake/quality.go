// internal/intake/quality.go
package intake

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	qualityRejectedMessage = "Invalid CV - Not Machine Readable"
	qualityRejectedHint    = "Please ensure your CV is a text-based PDF or DOCX file, not a scanned image."
)

// QualityResult is the verdict of the quality gate. Reason is set only when
// Passed is false.
type QualityResult struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// CheckQuality reports the first failing readability check for text.
func CheckQuality(text string, cfg Config) QualityResult {
	if strings.TrimSpace(text) == "" {
		return QualityResult{Reason: "CV appears to be empty or contains no readable text"}
	}

	length := utf8.RuneCountInString(text)
	if length < cfg.MinTextLength {
		return QualityResult{Reason: fmt.Sprintf(
			"CV text too short (%d characters). Minimum %d characters required. This may be a scanned image or corrupted file.",
			length, cfg.MinTextLength)}
	}
	if length > cfg.MaxTextLength {
		return QualityResult{Reason: fmt.Sprintf(
			"CV text too long (%d characters). Maximum %d characters allowed.",
			length, cfg.MaxTextLength)}
	}

	if ratio := garbageRatio(text, length); ratio > cfg.MaxGarbageRatio {
		return QualityResult{Reason: fmt.Sprintf(
			"CV contains too many unreadable characters (%.0f%%). This may be a scanned image or corrupted file.",
			ratio*100)}
	}

	if countArtifacts(text) > cfg.MaxOCRArtifacts {
		return QualityResult{Reason: "CV appears to be a scanned image. Please upload a text-based PDF or DOCX file."}
	}

	return QualityResult{Passed: true}
}

func garbageRatio(text string, total int) float64 {
	readable := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			readable++
		}
	}
	return 1 - float64(readable)/float64(total)
}

func countArtifacts(text string) int {
	count := 0
	for _, artifact := range ocrArtifacts {
		count += strings.Count(text, artifact)
	}
	return count
}
