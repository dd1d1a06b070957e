// Package recruitment drives an applicant from submission to hire: the intake
// pipeline, project access, HR decisions and conversion to an employee.
package recruitment

import (
	"context"
	"errors"
	"time"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/intake"
	"hris-cloud/internal/models"
	"hris-cloud/internal/store"
	"hris-cloud/internal/tasks"
	senddecisionemail "hris-cloud/internal/workers/recruitment/send-decision-email"
)

// Repository is the persistence the service needs; *store.Store satisfies it.
type Repository interface {
	GetOrCreateOrg(ctx context.Context, ownerID string) (string, error)
	CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, ownerID string) ([]models.Organization, error)

	CreateProject(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ProjectOwnedBy(ctx context.Context, projectID, ownerID string) (bool, error)
	UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	CreateAPIKey(ctx context.Context, projectID, ownerID string) (*models.APIKey, error)
	ResolveAPIKey(ctx context.Context, key string) (string, error)

	FindApplicantByHash(ctx context.Context, projectID, hash string) (*models.Applicant, error)
	InsertApplicant(ctx context.Context, in models.NewApplicant) (*models.Applicant, bool, error)
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	ListApplicants(ctx context.Context, projectID string) ([]models.Applicant, error)
	ListAllApplicants(ctx context.Context, ownerID string) ([]models.Applicant, error)
	UpdateApplicantStatus(ctx context.Context, id string, from, to models.ApplicantStatus) error
	DeleteApplicant(ctx context.Context, id string) error
	HireApplicant(ctx context.Context, applicantID string, required models.ApplicantStatus, hire models.HireRequest) (*models.Employee, error)

	InsertAudit(ctx context.Context, entry models.AuditEntry)
}

type DecisionMailer interface {
	Send(ctx context.Context, n models.DecisionNotification) *senddecisionemail.Output
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.StatusEvent) error
}

type Deps struct {
	Repo       Repository
	Dispatcher tasks.Dispatcher
	Mailer     DecisionMailer
	Events     EventPublisher
	// Extractor defaults to the licence-free PDF backend when nil.
	Extractor *intake.Extractor
	Intake    intake.Config
}

type Service struct {
	repo       Repository
	dispatcher tasks.Dispatcher
	mailer     DecisionMailer
	events     EventPublisher
	validator  *intake.Validator
	extractor  *intake.Extractor
	intake     intake.Config
	logger     logger.Logger
	now        func() time.Time
}

// NewService wires the lifecycle controller. Mailer and Events may be nil.
func NewService(deps Deps, log logger.Logger) *Service {
	scoped := logger.Component(log, "recruitment")
	extractor := deps.Extractor
	if extractor == nil {
		extractor = intake.NewExtractor(scoped)
	}
	return &Service{
		repo:       deps.Repo,
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		events:     deps.Events,
		validator:  intake.NewValidator(deps.Intake),
		extractor:  extractor,
		intake:     deps.Intake,
		logger:     scoped,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// requireProjectOwner answers 404 for a missing project and 403 for a
// project owned by someone else.
func (s *Service) requireProjectOwner(ctx context.Context, projectID, ownerID string) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewProjectNotFoundError(projectID)
		}
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("Not authorized for this Project")
	}
	return project, nil
}

// ownedApplicant loads an applicant and checks that ownerID owns its project.
func (s *Service) ownedApplicant(ctx context.Context, applicantID, ownerID string) (*models.Applicant, *models.Project, error) {
	applicant, err := s.repo.GetApplicant(ctx, applicantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperrors.NewResourceNotFoundError("Applicant", applicantID)
		}
		return nil, nil, err
	}
	project, err := s.repo.GetProject(ctx, applicant.ProjectID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	if project == nil || project.OwnerID != ownerID {
		return nil, nil, apperrors.NewForbiddenError("Not authorized")
	}
	return applicant, project, nil
}

func (s *Service) audit(ctx context.Context, action, resource, id, actor string, details map[string]interface{}) {
	s.repo.InsertAudit(ctx, models.AuditEntry{
		Action:     action,
		Resource:   resource,
		ResourceID: id,
		ActorID:    actor,
		Details:    details,
	})
}

func (s *Service) publish(ctx context.Context, applicant *models.Applicant, status models.ApplicantStatus) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, models.StatusEvent{
		ApplicantID: applicant.ID,
		ProjectID:   applicant.ProjectID,
		Status:      status,
		Score:       applicant.AIScore,
		OccurredAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("status event not published", map[string]interface{}{"applicantId": applicant.ID, "error": err})
	}
}
