// internal/api/api_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hris-cloud/internal/common/auth"
	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/models"
	"hris-cloud/internal/ratelimit"
	"hris-cloud/internal/recruitment"
	"hris-cloud/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// ==========================
// Mock Services
// ==========================

type MockRecruitment struct {
	ResolveProjectFunc     func(ctx context.Context, apiKey, projectID string) (string, error)
	SubmitFunc             func(ctx context.Context, req recruitment.SubmitRequest) (*models.Applicant, bool, error)
	PublicProjectFunc      func(ctx context.Context, projectID string) (*models.Project, error)
	CreateOrganizationFunc func(ctx context.Context, ownerID, name string) (*models.Organization, error)
	ListOrganizationsFunc  func(ctx context.Context, ownerID string) ([]models.Organization, error)
	CreateProjectFunc      func(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error)
	ListProjectsFunc       func(ctx context.Context, ownerID string) ([]models.Project, error)
	UpdateProjectFunc      func(ctx context.Context, ownerID, projectID string, upd models.ProjectUpdate) (*models.Project, error)
	DeleteProjectFunc      func(ctx context.Context, ownerID, projectID string) error
	CreateAPIKeyFunc       func(ctx context.Context, ownerID, projectID string) (*models.APIKey, error)
	ListApplicantsFunc     func(ctx context.Context, ownerID, projectID string) ([]models.Applicant, error)
	ListAllApplicantsFunc  func(ctx context.Context, ownerID string) ([]models.Applicant, error)
	DecideFunc             func(ctx context.Context, ownerID, applicantID string, to models.ApplicantStatus) (*models.Applicant, error)
	DeleteApplicantFunc    func(ctx context.Context, ownerID, applicantID string) error
	ConvertFunc            func(ctx context.Context, ownerID, applicantID string) (*recruitment.HireResult, error)
	VerifyFunc             func(ctx context.Context, ownerID, applicantID string, req models.HireRequest) (*recruitment.HireResult, error)
}

func (m *MockRecruitment) ResolveProject(ctx context.Context, apiKey, projectID string) (string, error) {
	if m.ResolveProjectFunc != nil {
		return m.ResolveProjectFunc(ctx, apiKey, projectID)
	}
	return projectID, nil
}

func (m *MockRecruitment) Submit(ctx context.Context, req recruitment.SubmitRequest) (*models.Applicant, bool, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &models.Applicant{ID: "app-1", ProjectID: req.ProjectID, Name: req.Name, Email: req.Email, Status: models.StatusProcessing}, true, nil
}

func (m *MockRecruitment) PublicProject(ctx context.Context, projectID string) (*models.Project, error) {
	if m.PublicProjectFunc != nil {
		return m.PublicProjectFunc(ctx, projectID)
	}
	return &models.Project{ID: projectID, Name: "Backend Engineer", OrgName: "Acme"}, nil
}

func (m *MockRecruitment) CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error) {
	if m.CreateOrganizationFunc != nil {
		return m.CreateOrganizationFunc(ctx, ownerID, name)
	}
	return &models.Organization{ID: "org-1", Name: name, OwnerID: ownerID}, nil
}

func (m *MockRecruitment) ListOrganizations(ctx context.Context, ownerID string) ([]models.Organization, error) {
	if m.ListOrganizationsFunc != nil {
		return m.ListOrganizationsFunc(ctx, ownerID)
	}
	return []models.Organization{}, nil
}

func (m *MockRecruitment) CreateProject(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error) {
	if m.CreateProjectFunc != nil {
		return m.CreateProjectFunc(ctx, ownerID, in)
	}
	return &models.Project{ID: "proj-1", OwnerID: ownerID, Name: in.Name}, nil
}

func (m *MockRecruitment) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	if m.ListProjectsFunc != nil {
		return m.ListProjectsFunc(ctx, ownerID)
	}
	return []models.Project{}, nil
}

func (m *MockRecruitment) UpdateProject(ctx context.Context, ownerID, projectID string, upd models.ProjectUpdate) (*models.Project, error) {
	if m.UpdateProjectFunc != nil {
		return m.UpdateProjectFunc(ctx, ownerID, projectID, upd)
	}
	return &models.Project{ID: projectID}, nil
}

func (m *MockRecruitment) DeleteProject(ctx context.Context, ownerID, projectID string) error {
	if m.DeleteProjectFunc != nil {
		return m.DeleteProjectFunc(ctx, ownerID, projectID)
	}
	return nil
}

func (m *MockRecruitment) CreateAPIKey(ctx context.Context, ownerID, projectID string) (*models.APIKey, error) {
	if m.CreateAPIKeyFunc != nil {
		return m.CreateAPIKeyFunc(ctx, ownerID, projectID)
	}
	return &models.APIKey{ID: "key-1", ProjectID: projectID, KeyValue: "hris_abc"}, nil
}

func (m *MockRecruitment) ListApplicants(ctx context.Context, ownerID, projectID string) ([]models.Applicant, error) {
	if m.ListApplicantsFunc != nil {
		return m.ListApplicantsFunc(ctx, ownerID, projectID)
	}
	return []models.Applicant{}, nil
}

func (m *MockRecruitment) ListAllApplicants(ctx context.Context, ownerID string) ([]models.Applicant, error) {
	if m.ListAllApplicantsFunc != nil {
		return m.ListAllApplicantsFunc(ctx, ownerID)
	}
	return []models.Applicant{}, nil
}

func (m *MockRecruitment) Decide(ctx context.Context, ownerID, applicantID string, to models.ApplicantStatus) (*models.Applicant, error) {
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, ownerID, applicantID, to)
	}
	return &models.Applicant{ID: applicantID, Status: to}, nil
}

func (m *MockRecruitment) DeleteApplicant(ctx context.Context, ownerID, applicantID string) error {
	if m.DeleteApplicantFunc != nil {
		return m.DeleteApplicantFunc(ctx, ownerID, applicantID)
	}
	return nil
}

func (m *MockRecruitment) Convert(ctx context.Context, ownerID, applicantID string) (*recruitment.HireResult, error) {
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, ownerID, applicantID)
	}
	return &recruitment.HireResult{Status: "success", Message: recruitment.MsgConverted, EmployeeID: "emp-1"}, nil
}

func (m *MockRecruitment) Verify(ctx context.Context, ownerID, applicantID string, req models.HireRequest) (*recruitment.HireResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, ownerID, applicantID, req)
	}
	return &recruitment.HireResult{Status: "success", Message: recruitment.MsgVerified, EmployeeID: "emp-1"}, nil
}

type MockEmployees struct {
	employees map[string]*models.Employee
	createErr error
}

func newMockEmployees() *MockEmployees {
	return &MockEmployees{employees: map[string]*models.Employee{}}
}

func (m *MockEmployees) CreateEmployee(_ context.Context, in models.EmployeeCreate) (*models.Employee, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	e := &models.Employee{ID: fmt.Sprintf("emp-%d", len(m.employees)+1), Name: in.Name, Email: in.Email, Role: in.Role, Department: in.Department, Status: models.EmployeeActive}
	m.employees[e.ID] = e
	return e, nil
}

func (m *MockEmployees) ListEmployees(context.Context) ([]models.Employee, error) {
	out := make([]models.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	return out, nil
}

func (m *MockEmployees) GetEmployee(_ context.Context, id string) (*models.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: employee %s", store.ErrNotFound, id)
	}
	return e, nil
}

func (m *MockEmployees) UpdateEmployee(_ context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: employee %s", store.ErrNotFound, id)
	}
	if upd.Role != nil {
		e.Role = *upd.Role
	}
	return e, nil
}

func (m *MockEmployees) DeleteEmployee(_ context.Context, id string) error {
	if _, ok := m.employees[id]; !ok {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, id)
	}
	delete(m.employees, id)
	return nil
}

type MockPolicy struct {
	answer    *models.PolicyAnswer
	lastUser  string
	lastQuery string
	lastLimit int
}

func (m *MockPolicy) Answer(_ context.Context, userID, query string) (*models.PolicyAnswer, error) {
	m.lastUser, m.lastQuery = userID, query
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewInvalidInputError("Query is required")
	}
	return m.answer, nil
}

func (m *MockPolicy) Logs(_ context.Context, limit int) ([]models.PolicyLog, error) {
	m.lastLimit = limit
	return []models.PolicyLog{{ID: "log-1", Query: "leave?"}}, nil
}

func (m *MockPolicy) SearchLogs(_ context.Context, q string, limit int) ([]models.PolicyLog, error) {
	m.lastQuery, m.lastLimit = q, limit
	return []models.PolicyLog{{ID: "log-2", Query: q}}, nil
}

type MockPolicyFiles struct {
	saved map[string]string
}

func (m *MockPolicyFiles) Save(filename string, r io.Reader) (string, error) {
	if !strings.HasSuffix(filename, ".pdf") {
		return "", apperrors.NewValidationError(apperrors.ErrCodeUnsupportedExtension, "Only PDF files are allowed", filename, "")
	}
	b, _ := io.ReadAll(r)
	m.saved[filename] = string(b)
	return filename, nil
}

func (m *MockPolicyFiles) List() ([]models.PolicyFile, error) {
	return []models.PolicyFile{{Name: "a.pdf"}, {Name: "b.pdf"}}, nil
}

func (m *MockPolicyFiles) Delete(name string) error {
	if name == "missing.pdf" {
		return apperrors.NewResourceNotFoundError("File", name)
	}
	return nil
}

// ==========================
// Test Helper Functions
// ==========================

type testEnv struct {
	router      *gin.Engine
	recruitment *MockRecruitment
	employees   *MockEmployees
	policy      *MockPolicy
	files       *MockPolicyFiles
	checks      map[string]Check
}

func newTestEnv(t *testing.T, quotas ratelimit.Policy) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		recruitment: &MockRecruitment{},
		employees:   newMockEmployees(),
		policy:      &MockPolicy{answer: &models.PolicyAnswer{Answer: "12 days", Reasoning: "Section 3"}},
		files:       &MockPolicyFiles{saved: map[string]string{}},
		checks:      map[string]Check{},
	}
	srv := NewServer(Deps{
		Recruitment: env.recruitment,
		Employees:   env.employees,
		Policy:      env.policy,
		PolicyFiles: env.files,
		Limiter:     ratelimit.NewMemory(),
		Quotas:      quotas,
		Verifier:    auth.NewVerifier(testSecret, 2*time.Minute),
		Checks:      env.checks,
	}, Options{
		ServiceName:    "HRIS Cloud",
		Version:        "2.0.0",
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	}, logger.NewTestLogger(t))
	env.router = srv.Router()
	return env
}

func token(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if sub != "" {
		claims["sub"] = sub
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) hr(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{"Authorization": "Bearer " + token(t, "user-1")})
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (e *testEnv) apply(t *testing.T, ip string, headers map[string]string, fields map[string]string, file *formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, "/apply", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Forwarded-For", ip)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validFields() map[string]string {
	return map[string]string{"name": "Jane Doe", "email": "jane@example.com"}
}

func cvFile() *formFile {
	return &formFile{field: "cv", name: "resume.pdf", content: []byte("%PDF-1.4 cv")}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// ==========================
// Public Endpoint Tests
// ==========================

func TestRoot(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "HRIS Cloud", body["service"])
	assert.Equal(t, "2.0.0", body["version"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.checks["postgres"] = func(context.Context) error { return nil }

	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decodeBody(t, w)["status"])

	env.checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
	w = env.do(t, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "connection refused", checks["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.do(t, http.MethodGet, "/", nil, nil)

	w := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestPublicProject(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.do(t, http.MethodGet, "/projects/proj-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme", decodeBody(t, w)["org_name"])

	env.recruitment.PublicProjectFunc = func(context.Context, string) (*models.Project, error) {
		return nil, apperrors.NewProjectNotFoundError("nope")
	}
	w = env.do(t, http.MethodGet, "/projects/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	req := httptest.NewRequest(http.MethodOptions, "/apply", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

// ==========================
// Apply Tests
// ==========================

func TestApply_Created(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	var got recruitment.SubmitRequest
	env.recruitment.ResolveProjectFunc = func(_ context.Context, apiKey, projectID string) (string, error) {
		assert.Equal(t, "hris_key", apiKey)
		return "proj-from-key", nil
	}
	env.recruitment.SubmitFunc = func(_ context.Context, req recruitment.SubmitRequest) (*models.Applicant, bool, error) {
		got = req
		return &models.Applicant{ID: "app-1", Status: models.StatusProcessing}, true, nil
	}

	w := env.apply(t, "1.2.3.4", map[string]string{"X-API-KEY": "hris_key"}, validFields(), cvFile())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "processing", decodeBody(t, w)["status"])
	assert.Equal(t, "proj-from-key", got.ProjectID)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "resume.pdf", got.Filename)
	assert.Equal(t, []byte("%PDF-1.4 cv"), got.Content)
}

func TestApply_DuplicateReturnsExisting(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.recruitment.SubmitFunc = func(context.Context, recruitment.SubmitRequest) (*models.Applicant, bool, error) {
		score := 80
		return &models.Applicant{ID: "app-old", Status: models.StatusScreened, AIScore: &score}, false, nil
	}

	w := env.apply(t, "1.2.3.4", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "app-old", decodeBody(t, w)["id"])
}

func TestApply_FormValidation(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		file     *formFile
		contains string
	}{
		{
			name:     "short name",
			fields:   map[string]string{"name": "J", "email": "jane@example.com"},
			file:     cvFile(),
			contains: "name must be at least 2 characters",
		},
		{
			name:     "bad email",
			fields:   map[string]string{"name": "Jane Doe", "email": "not-an-email"},
			file:     cvFile(),
			contains: "email must be a valid email address",
		},
		{
			name:     "missing cv",
			fields:   validFields(),
			contains: "cv is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, ratelimit.DefaultPolicy())
			env.recruitment.SubmitFunc = func(context.Context, recruitment.SubmitRequest) (*models.Applicant, bool, error) {
				t.Fatal("submit must not be reached")
				return nil, false, nil
			}

			w := env.apply(t, "1.2.3.4", map[string]string{"X-PROJECT-ID": "proj-1"}, tt.fields, tt.file)

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "INVALID_INPUT", body["code"])
			assert.Contains(t, body["message"], tt.contains)
		})
	}
}

func TestApply_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		resolveErr error
		submitErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid key", resolveErr: apperrors.NewInvalidAPIKeyError(), wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "position closed", resolveErr: apperrors.NewPositionClosedError("proj-1"), wantStatus: http.StatusForbidden, wantCode: "POSITION_CLOSED"},
		{name: "unknown project", resolveErr: apperrors.NewProjectNotFoundError("x"), wantStatus: http.StatusNotFound, wantCode: "PROJECT_NOT_FOUND"},
		{
			name:       "quality rejected",
			submitErr:  apperrors.NewValidationError(apperrors.ErrCodeQualityRejected, "CV quality too low", "too short", "Upload a text-based CV"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "QUALITY_REJECTED",
		},
		{name: "database down", submitErr: apperrors.NewDatabaseInsertFailedError(errors.New("conn reset")), wantStatus: http.StatusInternalServerError, wantCode: "DATABASE_INSERT_FAILED"},
		{name: "unexpected", submitErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, ratelimit.DefaultPolicy())
			env.recruitment.ResolveProjectFunc = func(_ context.Context, _, projectID string) (string, error) {
				return projectID, tt.resolveErr
			}
			env.recruitment.SubmitFunc = func(context.Context, recruitment.SubmitRequest) (*models.Applicant, bool, error) {
				return nil, false, tt.submitErr
			}

			w := env.apply(t, "1.2.3.4", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())

			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["code"])
		})
	}
}

func TestApply_QualityHintReturned(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.recruitment.SubmitFunc = func(context.Context, recruitment.SubmitRequest) (*models.Applicant, bool, error) {
		return nil, false, apperrors.NewValidationError(apperrors.ErrCodeQualityRejected, "CV quality too low", "too short", "Upload a text-based CV")
	}

	w := env.apply(t, "1.2.3.4", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())

	body := decodeBody(t, w)
	assert.Equal(t, "CV quality too low", body["error"])
	assert.Equal(t, "too short", body["message"])
	assert.Equal(t, "Upload a text-based CV", body["hint"])
}

func TestApply_IPRateLimit(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	for i := 0; i < 10; i++ {
		w := env.apply(t, "9.9.9.9", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
		require.Equal(t, http.StatusCreated, w.Code, "request %d", i+1)
	}

	w := env.apply(t, "9.9.9.9", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, "Maximum 10 applications per hour from your IP", body["message"])
	assert.Equal(t, float64(3600), body["retry_after"])
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))

	w = env.apply(t, "8.8.8.8", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
	assert.Equal(t, http.StatusCreated, w.Code, "other IPs keep their own quota")
}

func TestApply_ProjectRateLimit(t *testing.T) {
	env := newTestEnv(t, ratelimit.Policy{PerIP: 100, PerProject: 2, Window: time.Hour})

	for i := 0; i < 2; i++ {
		w := env.apply(t, fmt.Sprintf("10.0.0.%d", i), map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.apply(t, "10.0.0.99", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Maximum 2 applications per hour for this project", decodeBody(t, w)["message"])

	w = env.apply(t, "10.0.0.99", map[string]string{"X-PROJECT-ID": "proj-2"}, validFields(), cvFile())
	assert.Equal(t, http.StatusCreated, w.Code)
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) error {
	return errors.New("redis unavailable")
}

func TestApply_LimiterFailureLetsRequestThrough(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	srv := NewServer(Deps{Recruitment: env.recruitment, Limiter: failingLimiter{}}, Options{}, logger.NewTestLogger(t))
	env.router = srv.Router()

	w := env.apply(t, "1.2.3.4", map[string]string{"X-PROJECT-ID": "proj-1"}, validFields(), cvFile())
	assert.Equal(t, http.StatusCreated, w.Code)
}

// ==========================
// Auth Tests
// ==========================

func TestAuth(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		wantError string
	}{
		{name: "missing", header: "", wantError: "Not authenticated"},
		{name: "expired", header: "Bearer " + expired, wantError: "Token expired"},
		{name: "no sub", header: "Bearer " + token(t, ""), wantError: "Invalid Token: No sub claim"},
		{name: "garbage", header: "Bearer abc.def", wantError: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/projects", nil, map[string]string{"Authorization": tt.header})
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, decodeBody(t, w)["error"], tt.wantError)
		})
	}
}

func TestAuth_PassesSubjectToService(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	var owner string
	env.recruitment.ListProjectsFunc = func(_ context.Context, ownerID string) ([]models.Project, error) {
		owner = ownerID
		return []models.Project{{ID: "proj-1"}}, nil
	}

	w := env.hr(t, http.MethodGet, "/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", owner)
}

// ==========================
// HR Route Tests
// ==========================

func TestOrganizations(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodPost, "/organizations", map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Acme", decodeBody(t, w)["name"])

	w = env.hr(t, http.MethodPost, "/organizations", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.hr(t, http.MethodGet, "/organizations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProjects(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodPost, "/projects", map[string]interface{}{"name": "Backend Engineer"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.hr(t, http.MethodPost, "/projects", map[string]interface{}{"description": "no name"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "name is required")

	closed := false
	env.recruitment.UpdateProjectFunc = func(_ context.Context, _, id string, upd models.ProjectUpdate) (*models.Project, error) {
		require.NotNil(t, upd.IsActive)
		return &models.Project{ID: id, IsActive: *upd.IsActive}, nil
	}
	w = env.hr(t, http.MethodPatch, "/projects/proj-1", models.ProjectUpdate{IsActive: &closed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["is_active"])

	w = env.hr(t, http.MethodDelete, "/projects/proj-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Project archived", decodeBody(t, w)["message"])

	w = env.hr(t, http.MethodPost, "/projects/proj-1/keys", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "hris_abc", decodeBody(t, w)["key_value"])
}

func TestProjects_Forbidden(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.recruitment.DeleteProjectFunc = func(context.Context, string, string) error {
		return apperrors.NewForbiddenError("Not authorized")
	}

	w := env.hr(t, http.MethodDelete, "/projects/proj-9", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeBody(t, w)["code"])
}

func TestApplicants(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodGet, "/applicants", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var gotProject string
	env.recruitment.ListApplicantsFunc = func(_ context.Context, _, projectID string) ([]models.Applicant, error) {
		gotProject = projectID
		return []models.Applicant{{ID: "app-1"}}, nil
	}
	w = env.hr(t, http.MethodGet, "/applicants?project_id=proj-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "proj-1", gotProject)

	w = env.hr(t, http.MethodGet, "/applicants/all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.hr(t, http.MethodDelete, "/applicants/app-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Applicant archived", decodeBody(t, w)["message"])
}

func TestDecide(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodPatch, "/applicants/app-1", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", decodeBody(t, w)["status"])

	w = env.hr(t, http.MethodPatch, "/applicants/app-1", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	env.recruitment.DecideFunc = func(context.Context, string, string, models.ApplicantStatus) (*models.Applicant, error) {
		return nil, apperrors.NewInvalidStatusTransitionError("processing", "approved")
	}
	w = env.hr(t, http.MethodPatch, "/applicants/app-1", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", decodeBody(t, w)["code"])

	env.recruitment.DecideFunc = func(context.Context, string, string, models.ApplicantStatus) (*models.Applicant, error) {
		return nil, fmt.Errorf("%w: applicant app-1", store.ErrStatusConflict)
	}
	w = env.hr(t, http.MethodPatch, "/applicants/app-1", map[string]string{"status": "approved"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", decodeBody(t, w)["code"])
}

func TestConvertAndVerify(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodPost, "/applicants/app-1/convert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Candidate successfully hired", body["message"])
	assert.Equal(t, "emp-1", body["employee_id"])

	w = env.hr(t, http.MethodPost, "/applicants/app-1/verify", map[string]interface{}{"role": "Engineer"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "department is required")

	var got models.HireRequest
	env.recruitment.VerifyFunc = func(_ context.Context, _, _ string, req models.HireRequest) (*recruitment.HireResult, error) {
		got = req
		return &recruitment.HireResult{Status: "success", Message: recruitment.MsgVerified, EmployeeID: "emp-2"}, nil
	}
	w = env.hr(t, http.MethodPost, "/applicants/app-1/verify", map[string]interface{}{
		"role": "Engineer", "department": "Platform", "leave_remaining": 14, "join_date": "2026-11-01",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Platform", got.Department)
	assert.Equal(t, 14, got.LeaveRemaining)
	require.NotNil(t, got.JoinDate)
	assert.Equal(t, "2026-11-01", got.JoinDate.String())

	env.recruitment.ConvertFunc = func(context.Context, string, string) (*recruitment.HireResult, error) {
		return nil, apperrors.NewDuplicateEmployeeError("jane@example.com")
	}
	w = env.hr(t, http.MethodPost, "/applicants/app-1/convert", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DUPLICATE_EMPLOYEE", decodeBody(t, w)["code"])
}

func TestEmployees(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodPost, "/employees", map[string]interface{}{
		"name": "Budi", "email": "budi@example.com", "role": "Engineer", "department": "Platform",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeBody(t, w)["id"].(string)

	w = env.hr(t, http.MethodPost, "/employees", map[string]interface{}{
		"name": "Budi", "email": "budi@example.com", "role": "Engineer", "department": "Platform", "status": "retired",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["message"], "status must be one of")

	w = env.hr(t, http.MethodGet, "/employees", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.hr(t, http.MethodPatch, "/employees/"+id, map[string]interface{}{"role": "Lead"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lead", decodeBody(t, w)["role"])

	w = env.hr(t, http.MethodDelete, "/employees/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Employee archived", decodeBody(t, w)["message"])

	w = env.hr(t, http.MethodGet, "/employees/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeBody(t, w)["code"])
}

func TestEmployees_Duplicate(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.employees.createErr = fmt.Errorf("%w: budi@example.com", store.ErrDuplicateEmployee)

	w := env.hr(t, http.MethodPost, "/employees", map[string]interface{}{
		"name": "Budi", "email": "budi@example.com", "role": "Engineer", "department": "Platform",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "DUPLICATE_EMPLOYEE", body["code"])
	assert.Equal(t, "budi@example.com", body["message"])
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeBody(t, w)["code"])
}

// ==========================
// Policy Route Tests
// ==========================

func TestPolicyChat(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodGet, "/policy/chat?query=How+many+leave+days", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "12 days", body["answer"])
	assert.Equal(t, "Section 3", body["reasoning"])
	assert.Equal(t, "user-1", env.policy.lastUser)
	assert.Equal(t, "How many leave days", env.policy.lastQuery)

	w = env.hr(t, http.MethodGet, "/policy/chat", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPolicyUpload(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	upload := func(file *formFile) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, nil, file)
		req := httptest.NewRequest(http.MethodPost, "/admin/policy/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token(t, "user-1"))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	w := upload(&formFile{field: "file", name: "leave.pdf", content: []byte("%PDF")})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "leave.pdf", body["filename"])
	assert.Equal(t, "Policy uploaded and ready for indexing", body["message"])
	assert.Equal(t, "%PDF", env.files.saved["leave.pdf"])

	w = upload(&formFile{field: "file", name: "notes.txt", content: []byte("x")})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only PDF files are allowed", decodeBody(t, w)["error"])

	w = upload(nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILENAME", decodeBody(t, w)["code"])

	w = upload(&formFile{field: "file", name: "big.pdf", content: bytes.Repeat([]byte("a"), 2<<20)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", decodeBody(t, w)["code"])
}

func TestPolicyFilesAndLogs(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.hr(t, http.MethodGet, "/admin/policy/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["a.pdf","b.pdf"]`, w.Body.String())

	w = env.hr(t, http.MethodDelete, "/admin/policy/files/a.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "File deleted", decodeBody(t, w)["message"])

	w = env.hr(t, http.MethodDelete, "/admin/policy/files/missing.pdf", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", decodeBody(t, w)["error"])

	w = env.hr(t, http.MethodGet, "/admin/policy/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, env.policy.lastLimit)

	w = env.hr(t, http.MethodGet, "/admin/policy/logs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, env.policy.lastLimit)

	w = env.hr(t, http.MethodGet, "/admin/policy/logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.hr(t, http.MethodGet, "/admin/policy/logs/search?q=leave&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leave", env.policy.lastQuery)
	assert.Equal(t, 10, env.policy.lastLimit)
}

// ==========================
// Middleware Tests
// ==========================

func TestRecoveryReturnsInternalError(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())
	env.recruitment.ListAllApplicantsFunc = func(context.Context, string) ([]models.Applicant, error) {
		panic("nil map")
	}

	w := env.hr(t, http.MethodGet, "/applicants/all", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "An unexpected error occurred", body["message"])
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.do(t, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, ratelimit.DefaultPolicy())

	w := env.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
