// internal/intake/intake_test.go
package intake

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"hris-cloud/internal/common/config"
	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/intake/intaketest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readableCV(n int) string {
	base := "Experienced software engineer with strong skills in Go and SQL. Education: BSc Computer Science. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(base)
	}
	return b.String()[:n]
}

func cvLines() []string {
	return []string{
		"Jane Doe, Senior Software Engineer",
		"Contact: jane@example.com, phone +62 812 0000 0000, linkedin.com/in/janedoe",
		"Summary: backend engineer with eight years of experience building Go services.",
		"Experience: led a team of five developers migrating payments to PostgreSQL.",
		"Experience: designed event-driven pipelines on RabbitMQ and Kafka for analytics.",
		"Skills: Go, SQL, Docker, Kubernetes, gRPC, observability and system design.",
		"Education: Bachelor degree in Computer Science, Universitas Indonesia, 2015.",
		"Certification: AWS Solutions Architect Associate, renewed in 2023.",
	}
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.StandardError {
	t.Helper()
	stdErr, ok := apperrors.As(err)
	require.True(t, ok, "expected StandardError, got %v", err)
	assert.Equal(t, code, stdErr.Code)
	return stdErr
}

// ==========================
// Validator Tests
// ==========================

func TestValidator_Validate(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMime string
		wantCode apperrors.ErrorCode
		wantMsg  string
	}{
		{name: "valid pdf", filename: "resume.pdf", content: pdfHeader, wantMime: MimePDF},
		{name: "uppercase extension", filename: "RESUME.PDF", content: pdfHeader, wantMime: MimePDF},
		{name: "missing filename", filename: "", content: pdfHeader, wantCode: apperrors.ErrCodeMissingFilename},
		{name: "unsupported extension", filename: "resume.txt", content: pdfHeader, wantCode: apperrors.ErrCodeUnsupportedExtension, wantMsg: "Received: resume.txt"},
		{name: "too large", filename: "resume.pdf", content: make([]byte, 6*1024*1024), wantCode: apperrors.ErrCodeFileTooLarge, wantMsg: "File too large (6.0MB)"},
		{name: "empty", filename: "resume.pdf", content: []byte{}, wantCode: apperrors.ErrCodeEmptyFile},
		{name: "renamed text file", filename: "resume.pdf", content: []byte("just some plain text"), wantCode: apperrors.ErrCodeMimeMismatch, wantMsg: "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, err := validator.Validate(tt.filename, tt.content)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMime, mime)
				return
			}
			stdErr := requireCode(t, err, tt.wantCode)
			assert.Equal(t, "Invalid CV file", stdErr.Message)
			assert.Equal(t, "Please upload a valid PDF or DOCX resume (max 5MB)", stdErr.Hint)
			assert.Contains(t, stdErr.Details, tt.wantMsg)
			assert.Empty(t, mime)
		})
	}
}

func TestValidator_ExtensionCheckedBeforeSize(t *testing.T) {
	_, err := NewValidator(DefaultConfig()).Validate("resume.exe", make([]byte, 6*1024*1024))
	requireCode(t, err, apperrors.ErrCodeUnsupportedExtension)
}

func TestValidator_AcceptsTextPDF(t *testing.T) {
	mime, err := NewValidator(DefaultConfig()).Validate("cv.pdf", intaketest.TextPDF(cvLines()))
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mime)
}

func TestValidator_AcceptsDOCX(t *testing.T) {
	mime, err := NewValidator(DefaultConfig()).Validate("cv.docx", buildDOCX(t, "Hello"))
	require.NoError(t, err)
	assert.Equal(t, MimeDOCX, mime)
}

// ==========================
// Extractor Tests
// ==========================

func TestExtractor_DOCX(t *testing.T) {
	extractor := NewExtractor(logger.NewTestLogger(t))

	text, err := extractor.Extract(buildDOCX(t, "Jane Doe", "Senior Engineer &amp; Lead"), MimeDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Engineer & Lead", text)
}

func TestExtractor_PDFPagesJoinedInOrder(t *testing.T) {
	extractor := NewExtractor(logger.NewTestLogger(t))

	content := intaketest.TextPDF(
		[]string{"First page marker"},
		[]string{"Second page marker"},
		[]string{"Third page marker"},
	)
	text, err := extractor.Extract(content, MimePDF)
	require.NoError(t, err)

	pages := strings.Split(text, "\n")
	require.Len(t, pages, 3)
	assert.Equal(t, "First page marker", strings.TrimSpace(pages[0]))
	assert.Equal(t, "Second page marker", strings.TrimSpace(pages[1]))
	assert.Equal(t, "Third page marker", strings.TrimSpace(pages[2]))
}

func TestExtractor_PDFCorruptPageFails(t *testing.T) {
	extractor := NewExtractor(logger.NewNoOpLogger())

	text, err := extractor.Extract(intaketest.CorruptPDF(), MimePDF)
	stdErr := requireCode(t, err, apperrors.ErrCodeExtractionFailed)
	assert.Contains(t, stdErr.Details, "page 1")
	assert.Empty(t, text)
}

func TestExtractor_Failures(t *testing.T) {
	extractor := NewExtractor(logger.NewNoOpLogger())

	_, err := extractor.Extract([]byte("%PDF-garbage"), MimePDF)
	stdErr := requireCode(t, err, apperrors.ErrCodeExtractionFailed)
	assert.Equal(t, "CV Extraction Failed", stdErr.Message)

	_, err = extractor.Extract([]byte("x"), "image/png")
	stdErr = requireCode(t, err, apperrors.ErrCodeExtractionFailed)
	assert.Contains(t, stdErr.Details, "image/png")
}

func TestExtractor_ExtractAndCheck(t *testing.T) {
	extractor := NewExtractor(logger.NewNoOpLogger())

	text, err := extractor.ExtractAndCheck(buildDOCX(t, "  "+readableCV(800)+"  "), MimeDOCX, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(readableCV(800)), text)

	_, err = extractor.ExtractAndCheck(buildDOCX(t, "too short"), MimeDOCX, DefaultConfig())
	stdErr := requireCode(t, err, apperrors.ErrCodeQualityRejected)
	assert.Equal(t, "Invalid CV - Not Machine Readable", stdErr.Message)
	assert.Contains(t, stdErr.Details, "CV text too short (9 characters)")
}

func TestExtractor_ExtractAndCheckPDF(t *testing.T) {
	extractor := NewExtractor(logger.NewNoOpLogger())

	text, err := extractor.ExtractAndCheck(intaketest.TextPDF(cvLines(), cvLines()), MimePDF, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe, Senior Software Engineer")
	assert.Contains(t, text, "Certification: AWS Solutions Architect Associate")
	assert.NoError(t, CheckRelevance(text, 3))
}

func TestNewExtractorFor(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PDFConfig
		backend string
		wantErr string
	}{
		{name: "auto without key", cfg: config.PDFConfig{Backend: "auto"}, backend: BackendNative},
		{name: "empty backend", cfg: config.PDFConfig{}, backend: BackendNative},
		{name: "native", cfg: config.PDFConfig{Backend: "native", LicenseKey: "k"}, backend: BackendNative},
		{name: "unipdf without key", cfg: config.PDFConfig{Backend: "unipdf"}, wantErr: "requires pdf.license_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, err := NewExtractorFor(tt.cfg, logger.NewNoOpLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.backend, extractor.Backend())
		})
	}
}

func TestResolveBackend_AutoPrefersLicensedUniPDF(t *testing.T) {
	assert.Equal(t, BackendUniPDF, ResolveBackend(config.PDFConfig{Backend: "auto", LicenseKey: "k"}))
}

func TestApplyLicense_EmptyKeyIsNoop(t *testing.T) {
	assert.NoError(t, ApplyLicense(""))
}

// ==========================
// Quality Gate Tests
// ==========================

func TestCheckQuality(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		text       string
		passed     bool
		wantReason string
	}{
		{"readable", readableCV(600), true, ""},
		{"empty", "   \n\t ", false, "CV appears to be empty or contains no readable text"},
		{"too short", readableCV(499), false, "CV text too short (499 characters). Minimum 500 characters required."},
		{"exactly minimum", readableCV(500), true, ""},
		{"too long", readableCV(50001), false, "CV text too long (50001 characters)"},
		{"garbage", readableCV(400) + strings.Repeat("#$%", 100), false, "CV contains too many unreadable characters"},
		{"ocr artifacts", readableCV(600) + strings.Repeat(" ||| ", 11), false, "CV appears to be a scanned image."},
		{"ten artifacts allowed", readableCV(600) + strings.Repeat(" ~~~ ", 10), true, ""},
		{"multibyte counted as characters", strings.Repeat("Ingénieur expérimenté ", 25), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckQuality(tt.text, cfg)
			assert.Equal(t, tt.passed, result.Passed)
			if tt.passed {
				assert.Empty(t, result.Reason)
			} else {
				assert.Contains(t, result.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckQuality_GarbageCheckedBeforeArtifacts(t *testing.T) {
	text := strings.Repeat("...", 300)
	result := CheckQuality(text, DefaultConfig())
	assert.False(t, result.Passed)
	assert.Contains(t, result.Reason, "unreadable characters (100%)")
}

// ==========================
// Relevance and Hash Tests
// ==========================

func TestIsProfessional(t *testing.T) {
	result := IsProfessional("EXPERIENCE: 5 years. Education: MSc. Skills: Go", 3)
	assert.True(t, result.Passed)
	assert.ElementsMatch(t, []string{"experience", "education", "skills"}, result.Matched)

	result = IsProfessional("Pengalaman: 4 tahun. Pendidikan: Sarjana Teknik. Keahlian: Go", 3)
	assert.True(t, result.Passed)
	assert.ElementsMatch(t, []string{"pengalaman", "pendidikan", "keahlian", "sarjana"}, result.Matched)

	result = IsProfessional("A recipe for banana bread with plenty of experience", 3)
	assert.False(t, result.Passed)

	err := CheckRelevance("lorem ipsum dolor sit amet", 3)
	stdErr := requireCode(t, err, apperrors.ErrCodeIrrelevantContent)
	assert.Equal(t, "Irrelevant content. CV must be professional.", stdErr.Message)
	assert.NoError(t, CheckRelevance(readableCV(300), 3))
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash([]byte{}))
	assert.Equal(t, Hash([]byte("cv")), Hash([]byte("cv")))
	assert.NotEqual(t, Hash([]byte("cv-a")), Hash([]byte("cv-b")))
}

func TestConfigFrom_KeepsDefaults(t *testing.T) {
	cfg := ConfigFrom(configWith(1024))
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, 500, cfg.MinTextLength)
	assert.Equal(t, 3, cfg.MinRelevanceTerms)
}

func configWith(maxFileSize int64) config.IntakeConfig {
	return config.IntakeConfig{MaxFileSize: maxFileSize}
}
