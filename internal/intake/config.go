// internal/intake/config.go
package intake

import "hris-cloud/internal/common/config"

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	allowedExtensions = []string{".pdf", ".docx"}
	allowedMimeTypes  = []string{MimePDF, MimeDOCX}
	ocrArtifacts      = []string{"|||", "___", "...", "~~~"}
)

// Config holds the thresholds of every CV gate.
type Config struct {
	MaxFileSize       int64
	MinTextLength     int
	MaxTextLength     int
	MaxGarbageRatio   float64
	MaxOCRArtifacts   int
	MinRelevanceTerms int
}

func DefaultConfig() Config {
	return Config{
		MaxFileSize:       5 * 1024 * 1024,
		MinTextLength:     500,
		MaxTextLength:     50000,
		MaxGarbageRatio:   0.30,
		MaxOCRArtifacts:   10,
		MinRelevanceTerms: 3,
	}
}

// ConfigFrom maps the loaded intake section, keeping defaults for unset fields.
func ConfigFrom(c config.IntakeConfig) Config {
	cfg := DefaultConfig()
	if c.MaxFileSize > 0 {
		cfg.MaxFileSize = c.MaxFileSize
	}
	if c.MinTextLength > 0 {
		cfg.MinTextLength = c.MinTextLength
	}
	if c.MaxTextLength > 0 {
		cfg.MaxTextLength = c.MaxTextLength
	}
	if c.MaxGarbageRatio > 0 {
		cfg.MaxGarbageRatio = c.MaxGarbageRatio
	}
	if c.MaxOCRArtifacts > 0 {
		cfg.MaxOCRArtifacts = c.MaxOCRArtifacts
	}
	if c.MinRelevanceTerms > 0 {
		cfg.MinRelevanceTerms = c.MinRelevanceTerms
	}
	return cfg
}
