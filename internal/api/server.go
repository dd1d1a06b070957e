// Package api is the HTTP surface: the public career-page endpoints and the
// HR dashboard routes.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"hris-cloud/internal/common/auth"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/models"
	"hris-cloud/internal/ratelimit"
	"hris-cloud/internal/recruitment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recruitment is the applicant lifecycle; *recruitment.Service satisfies it.
type Recruitment interface {
	ResolveProject(ctx context.Context, apiKey, projectID string) (string, error)
	Submit(ctx context.Context, req recruitment.SubmitRequest) (*models.Applicant, bool, error)
	PublicProject(ctx context.Context, projectID string) (*models.Project, error)

	CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, ownerID string) ([]models.Organization, error)
	CreateProject(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, ownerID, projectID string, upd models.ProjectUpdate) (*models.Project, error)
	DeleteProject(ctx context.Context, ownerID, projectID string) error
	CreateAPIKey(ctx context.Context, ownerID, projectID string) (*models.APIKey, error)

	ListApplicants(ctx context.Context, ownerID, projectID string) ([]models.Applicant, error)
	ListAllApplicants(ctx context.Context, ownerID string) ([]models.Applicant, error)
	Decide(ctx context.Context, ownerID, applicantID string, to models.ApplicantStatus) (*models.Applicant, error)
	DeleteApplicant(ctx context.Context, ownerID, applicantID string) error
	Convert(ctx context.Context, ownerID, applicantID string) (*recruitment.HireResult, error)
	Verify(ctx context.Context, ownerID, applicantID string, req models.HireRequest) (*recruitment.HireResult, error)
}

// Employees is the employee directory; *store.Store satisfies it.
type Employees interface {
	CreateEmployee(ctx context.Context, in models.EmployeeCreate) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, id string, upd models.EmployeeUpdate) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

// PolicyAssistant answers policy questions; *policy.Service satisfies it.
type PolicyAssistant interface {
	Answer(ctx context.Context, userID, query string) (*models.PolicyAnswer, error)
	Logs(ctx context.Context, limit int) ([]models.PolicyLog, error)
	SearchLogs(ctx context.Context, q string, limit int) ([]models.PolicyLog, error)
}

// PolicyFiles manages uploaded policy PDFs; *policy.Storage satisfies it.
type PolicyFiles interface {
	Save(filename string, r io.Reader) (string, error)
	List() ([]models.PolicyFile, error)
	Delete(name string) error
}

// Check reports the readiness of one dependency.
type Check func(ctx context.Context) error

type Options struct {
	ServiceName    string
	Version        string
	CORSOrigins    []string
	MaxUploadBytes int64
}

type Deps struct {
	Recruitment Recruitment
	Employees   Employees
	Policy      PolicyAssistant
	PolicyFiles PolicyFiles
	Limiter     ratelimit.Limiter
	Quotas      ratelimit.Policy
	Verifier    *auth.Verifier
	Checks      map[string]Check
}

type Server struct {
	deps   Deps
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

func NewServer(deps Deps, opts Options, log logger.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "HRIS Cloud"
	}
	if deps.Quotas == (ratelimit.Policy{}) {
		deps.Quotas = ratelimit.DefaultPolicy()
	}
	registerValidation()
	return &Server{
		deps:   deps,
		opts:   opts,
		logger: logger.Component(log, "api"),
		now:    time.Now,
	}
}

// Router builds the gin engine with every route and middleware installed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), s.accessLog(), observeMetrics(), s.recovery())
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(s.opts.CORSOrigins))
	}

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/apply", s.limitByIP(), s.apply)
	r.GET("/projects/:id", s.publicProject)

	hr := r.Group("/", s.requireAuth())
	{
		hr.POST("/organizations", s.createOrganization)
		hr.GET("/organizations", s.listOrganizations)

		hr.POST("/projects", s.createProject)
		hr.GET("/projects", s.listProjects)
		hr.PATCH("/projects/:id", s.updateProject)
		hr.DELETE("/projects/:id", s.deleteProject)
		hr.POST("/projects/:id/keys", s.createAPIKey)

		hr.GET("/applicants", s.listApplicants)
		hr.GET("/applicants/all", s.listAllApplicants)
		hr.PATCH("/applicants/:id", s.decide)
		hr.DELETE("/applicants/:id", s.deleteApplicant)
		hr.POST("/applicants/:id/convert", s.convert)
		hr.POST("/applicants/:id/verify", s.verify)

		hr.POST("/employees", s.createEmployee)
		hr.GET("/employees", s.listEmployees)
		hr.GET("/employees/:id", s.getEmployee)
		hr.PATCH("/employees/:id", s.updateEmployee)
		hr.DELETE("/employees/:id", s.deleteEmployee)

		hr.POST("/admin/policy/upload", s.uploadPolicy)
		hr.GET("/admin/policy/files", s.listPolicyFiles)
		hr.DELETE("/admin/policy/files/:filename", s.deletePolicyFile)
		hr.GET("/admin/policy/logs", s.policyLogs)
		hr.GET("/admin/policy/logs/search", s.searchPolicyLogs)

		hr.GET("/policy/chat", s.policyChat)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "message": c.Request.URL.Path, "code": "RESOURCE_NOT_FOUND"})
	})
	return r
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
}
