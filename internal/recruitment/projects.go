// internal/recruitment/projects.go
package recruitment

import (
	"context"
	"errors"
	"strings"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/models"
	"hris-cloud/internal/store"
)

const defaultOrgName = "My Organization"

func (s *Service) CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultOrgName
	}
	org, err := s.repo.CreateOrganization(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "organization.created", "organization", org.ID, ownerID, nil)
	return org, nil
}

// ListOrganizations returns the caller's organizations, provisioning one on
// first use.
func (s *Service) ListOrganizations(ctx context.Context, ownerID string) ([]models.Organization, error) {
	if _, err := s.repo.GetOrCreateOrg(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListOrganizations(ctx, ownerID)
}

func (s *Service) CreateProject(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error) {
	project, err := s.repo.CreateProject(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "project.created", "project", project.ID, ownerID, map[string]interface{}{"name": project.Name})
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	return s.repo.ListProjects(ctx, ownerID)
}

// PublicProject is the career-page view of a project. Deleted projects are
// not found; closed ones are still shown.
func (s *Service) PublicProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewProjectNotFoundError(projectID)
		}
		return nil, err
	}
	return project, nil
}

func (s *Service) UpdateProject(ctx context.Context, ownerID, projectID string, upd models.ProjectUpdate) (*models.Project, error) {
	if _, err := s.requireProjectOwner(ctx, projectID, ownerID); err != nil {
		return nil, err
	}
	project, err := s.repo.UpdateProject(ctx, projectID, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewProjectNotFoundError(projectID)
		}
		return nil, err
	}
	s.audit(ctx, "project.updated", "project", projectID, ownerID, nil)
	return project, nil
}

// DeleteProject archives the project and its applicants.
func (s *Service) DeleteProject(ctx context.Context, ownerID, projectID string) error {
	if _, err := s.requireProjectOwner(ctx, projectID, ownerID); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewProjectNotFoundError(projectID)
		}
		return err
	}
	s.audit(ctx, "project.deleted", "project", projectID, ownerID, nil)
	return nil
}

func (s *Service) CreateAPIKey(ctx context.Context, ownerID, projectID string) (*models.APIKey, error) {
	if _, err := s.requireProjectOwner(ctx, projectID, ownerID); err != nil {
		return nil, err
	}
	key, err := s.repo.CreateAPIKey(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "api_key.created", "project", projectID, ownerID, map[string]interface{}{"key_id": key.ID})
	return key, nil
}

func (s *Service) ListApplicants(ctx context.Context, ownerID, projectID string) ([]models.Applicant, error) {
	owned, err := s.repo.ProjectOwnedBy(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, apperrors.NewForbiddenError("Not authorized for this Project")
	}
	return s.repo.ListApplicants(ctx, projectID)
}

func (s *Service) ListAllApplicants(ctx context.Context, ownerID string) ([]models.Applicant, error) {
	if _, err := s.repo.GetOrCreateOrg(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListAllApplicants(ctx, ownerID)
}

// DeleteApplicant archives an applicant.
func (s *Service) DeleteApplicant(ctx context.Context, ownerID, applicantID string) error {
	if _, _, err := s.ownedApplicant(ctx, applicantID, ownerID); err != nil {
		return err
	}
	if err := s.repo.DeleteApplicant(ctx, applicantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewResourceNotFoundError("Applicant", applicantID)
		}
		return err
	}
	s.audit(ctx, "applicant.deleted", "applicant", applicantID, ownerID, nil)
	return nil
}
