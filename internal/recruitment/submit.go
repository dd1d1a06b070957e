// internal/recruitment/submit.go
package recruitment

import (
	"context"
	"errors"
	"strings"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/intake"
	"hris-cloud/internal/models"
	"hris-cloud/internal/store"
	"hris-cloud/internal/tasks"
)

// SubmitRequest is one public CV submission for a resolved project.
type SubmitRequest struct {
	ProjectID string
	Name      string
	Email     string
	Filename  string
	Content   []byte
}

// ResolveProject works out which project a submission targets. An API key
// wins over an open project id.
func (s *Service) ResolveProject(ctx context.Context, apiKey, projectID string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	projectID = strings.TrimSpace(projectID)

	switch {
	case apiKey != "":
		resolved, err := s.repo.ResolveAPIKey(ctx, apiKey)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", apperrors.NewInvalidAPIKeyError()
			}
			return "", err
		}
		project, err := s.openProject(ctx, resolved)
		if err != nil {
			return "", err
		}
		return project.ID, nil

	case projectID != "":
		project, err := s.openProject(ctx, projectID)
		if err != nil {
			return "", err
		}
		if !project.PublicApply {
			return "", apperrors.NewAuthenticationError("This project requires an API key")
		}
		return project.ID, nil

	default:
		return "", apperrors.NewInvalidInputError("X-API-KEY or X-PROJECT-ID header is required")
	}
}

func (s *Service) openProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewProjectNotFoundError(projectID)
		}
		return nil, err
	}
	if !project.IsActive {
		return nil, apperrors.NewPositionClosedError(projectID)
	}
	return project, nil
}

// Submit runs a CV through the intake gates and stores it for scoring. A CV
// already submitted to the project returns the existing applicant with
// created false and has no other effect.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Applicant, bool, error) {
	mime, err := s.validator.Validate(req.Filename, req.Content)
	if err != nil {
		return nil, false, s.rejected(err)
	}

	hash := intake.Hash(req.Content)
	existing, err := s.repo.FindApplicantByHash(ctx, req.ProjectID, hash)
	if err == nil {
		metrics.IntakeSubmissions.WithLabelValues("duplicate").Inc()
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	text, err := s.extractor.ExtractAndCheck(req.Content, mime, s.intake)
	if err != nil {
		return nil, false, s.rejected(err)
	}
	if err := intake.CheckRelevance(text, s.intake.MinRelevanceTerms); err != nil {
		return nil, false, s.rejected(err)
	}

	applicant, created, err := s.repo.InsertApplicant(ctx, models.NewApplicant{
		ProjectID: req.ProjectID,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		CVText:    text,
		CVHash:    hash,
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		// A concurrent submission of the same CV won the insert.
		metrics.IntakeSubmissions.WithLabelValues("duplicate").Inc()
		return applicant, false, nil
	}
	metrics.IntakeSubmissions.WithLabelValues("created").Inc()

	task := tasks.ScoreTask{
		ApplicantID: applicant.ID,
		ProjectID:   applicant.ProjectID,
		Name:        applicant.Name,
		Email:       applicant.Email,
		CVText:      applicant.CVText,
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(tasks.KindScore, "DISPATCH_FAILED").Inc()
		s.logger.Error("scoring task not dispatched, applicant stays processing", map[string]interface{}{
			"applicantId": applicant.ID,
			"error":       err,
		})
	}

	s.audit(ctx, "applicant.submitted", "applicant", applicant.ID, "", map[string]interface{}{
		"project_id": applicant.ProjectID,
		"cv_hash":    hash,
	})
	return applicant, true, nil
}

func (s *Service) rejected(err error) error {
	reason := "UNKNOWN"
	if stdErr, ok := apperrors.As(err); ok {
		reason = string(stdErr.Code)
	}
	metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
	metrics.IntakeRejections.WithLabelValues(reason).Inc()
	return err
}
