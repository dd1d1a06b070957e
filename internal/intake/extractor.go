// internal/intake/extractor.go
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"hris-cloud/internal/common/config"
	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

const (
	BackendNative = "native"
	BackendUniPDF = "unipdf"

	extractionFailedMessage = "CV Extraction Failed"
	extractionFailedHint    = "Please ensure your file is a valid, unencrypted PDF or DOCX document."
)

var (
	ErrPasswordProtected = errors.New("PDF is password-protected and cannot be processed")
	ErrUnsupportedMime   = errors.New("unsupported MIME type")

	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	licenseOnce  sync.Once
	licenseErr   error
)

// ApplyLicense registers the unidoc metered key once per process.
// An empty key is a no-op.
func ApplyLicense(key string) error {
	if key == "" {
		return nil
	}
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(key)
	})
	return licenseErr
}

// Extractor turns PDF and DOCX bytes into plain text.
type Extractor struct {
	backend string
	logger  logger.Logger
}

// NewExtractor reads PDFs with the licence-free backend.
func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{backend: BackendNative, logger: logger.Component(log, "extractor")}
}

// NewExtractorFor picks the PDF backend from cfg. The unipdf backend
// registers the metered licence key first.
func NewExtractorFor(cfg config.PDFConfig, log logger.Logger) (*Extractor, error) {
	backend := ResolveBackend(cfg)
	if backend == BackendUniPDF {
		if cfg.LicenseKey == "" {
			return nil, fmt.Errorf("pdf backend %q requires pdf.license_key", BackendUniPDF)
		}
		if err := ApplyLicense(cfg.LicenseKey); err != nil {
			return nil, fmt.Errorf("unidoc license rejected: %w", err)
		}
	}
	e := NewExtractor(log)
	e.backend = backend
	return e, nil
}

// ResolveBackend maps "auto" to unipdf when a licence key is present and to
// the native backend otherwise.
func ResolveBackend(cfg config.PDFConfig) string {
	switch cfg.Backend {
	case BackendNative, BackendUniPDF:
		return cfg.Backend
	}
	if cfg.LicenseKey != "" {
		return BackendUniPDF
	}
	return BackendNative
}

// Backend reports which PDF library the extractor uses.
func (e *Extractor) Backend() string {
	return e.backend
}

// Extract dispatches on the sniffed MIME type. Failures are EXTRACTION_FAILED.
func (e *Extractor) Extract(content []byte, mime string) (string, error) {
	var (
		text string
		err  error
	)
	switch mime {
	case MimePDF:
		text, err = e.extractPDF(content)
	case MimeDOCX:
		text, err = extractDOCX(content)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedMime, mime)
	}
	if err != nil {
		return "", apperrors.NewValidationError(
			apperrors.ErrCodeExtractionFailed, extractionFailedMessage, err.Error(), extractionFailedHint)
	}
	return text, nil
}

// ExtractAndCheck extracts text and runs the quality gate, returning the
// trimmed text on success.
func (e *Extractor) ExtractAndCheck(content []byte, mime string, cfg Config) (string, error) {
	text, err := e.Extract(content, mime)
	if err != nil {
		return "", err
	}
	if result := CheckQuality(text, cfg); !result.Passed {
		return "", apperrors.NewValidationError(
			apperrors.ErrCodeQualityRejected, qualityRejectedMessage, result.Reason, qualityRejectedHint)
	}
	return strings.TrimSpace(text), nil
}

// extractPDF returns the text of every page in order, joined by newlines.
// A page that cannot be read fails the whole document.
func (e *Extractor) extractPDF(content []byte) (string, error) {
	var (
		pages []string
		err   error
	)
	switch e.backend {
	case BackendUniPDF:
		pages, err = uniPDFPages(content)
	default:
		pages, err = nativePDFPages(content)
	}
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(pages))
	for _, text := range pages {
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		e.logger.Debug("pdf has no text layer", map[string]interface{}{"pages": len(pages), "backend": e.backend})
	}
	return strings.Join(parts, "\n"), nil
}

func nativePDFPages(content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("Failed to extract text from PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, ErrPasswordProtected
		}
		return nil, fmt.Errorf("Failed to extract text from PDF: %v", err)
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := nativePageText(reader.Page(i))
		if err != nil {
			return nil, fmt.Errorf("Failed to extract text from PDF page %d: %v", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// nativePageText recovers the panics the reader raises on broken streams.
func nativePageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%v", r)
		}
	}()
	if page.V.IsNull() {
		return "", errors.New("missing page object")
	}
	return page.GetPlainText(nil)
}

func uniPDFPages(content []byte) ([]string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("Failed to extract text from PDF: %v", err)
	}

	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return nil, fmt.Errorf("Failed to extract text from PDF: %v", err)
	}
	if encrypted {
		ok, err := reader.Decrypt([]byte(""))
		if err != nil || !ok {
			return nil, ErrPasswordProtected
		}
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("Failed to extract text from PDF: %v", err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return nil, fmt.Errorf("Failed to extract text from PDF page %d: %v", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return nil, fmt.Errorf("Failed to extract text from PDF page %d: %v", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return nil, fmt.Errorf("Failed to extract text from PDF page %d: %v", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractDOCX(content []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("Failed to extract text from DOCX: %v", err)
	}
	defer doc.Close()

	raw := doc.Editable().GetContent()
	withBreaks := paragraphEnd.ReplaceAllString(raw, "\n")
	plain := html.UnescapeString(xmlTag.ReplaceAllString(withBreaks, ""))

	lines := strings.Split(plain, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
