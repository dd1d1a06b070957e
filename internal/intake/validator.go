// internal/intake/validator.go
package intake

import (
	"fmt"
	"strings"

	apperrors "hris-cloud/internal/common/errors"

	"github.com/gabriel-vasile/mimetype"
)

const (
	invalidFileMessage = "Invalid CV file"
	invalidFileHint    = "Please upload a valid PDF or DOCX resume (max 5MB)"
)

// Validator rejects unacceptable uploads before any parsing happens.
type Validator struct {
	cfg Config
}

func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs the filename, extension, size and content checks in that
// order and returns the sniffed MIME type. The first failing check wins.
func (v *Validator) Validate(filename string, content []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", invalidFile(apperrors.ErrCodeMissingFilename, "Filename is required")
	}

	if !hasAllowedExtension(filename) {
		return "", invalidFile(apperrors.ErrCodeUnsupportedExtension, fmt.Sprintf(
			"Invalid file type. Only PDF and DOCX files are accepted. Received: %s", filename))
	}

	size := int64(len(content))
	if size > v.cfg.MaxFileSize {
		return "", invalidFile(apperrors.ErrCodeFileTooLarge, fmt.Sprintf(
			"File too large (%.1fMB). Maximum size is %dMB.",
			float64(size)/(1024*1024), v.cfg.MaxFileSize/(1024*1024)))
	}
	if size == 0 {
		return "", invalidFile(apperrors.ErrCodeEmptyFile, "File is empty")
	}

	detected := mimetype.Detect(content)
	for _, allowed := range allowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", invalidFile(apperrors.ErrCodeMimeMismatch, fmt.Sprintf(
		"Invalid file format. File appears to be '%s'. Only PDF and DOCX documents are accepted.",
		detected.String()))
}

func hasAllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func invalidFile(code apperrors.ErrorCode, details string) *apperrors.StandardError {
	return apperrors.NewValidationError(code, invalidFileMessage, details, invalidFileHint)
}
