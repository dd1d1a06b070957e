// internal/store/projects.go
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"hris-cloud/internal/models"
)

const defaultOrganizationName = "My Organization"

const (
	selectOrgByOwner = `SELECT id FROM organizations
WHERE owner_id = $1 AND deleted_at = $2
ORDER BY created_at LIMIT 1`

	insertOrganization = `INSERT INTO organizations (id, name, owner_id, created_at, deleted_at)
VALUES ($1, $2, $3, $4, $5)`

	selectOrganizations = `SELECT id, name, owner_id, created_at FROM organizations
WHERE owner_id = $1 AND deleted_at = $2
ORDER BY created_at`

	projectColumns = `p.id, p.org_id, p.owner_id, p.name, p.template_id, p.description,
p.is_active, p.public_apply, p.created_at`

	insertProject = `INSERT INTO projects (id, org_id, owner_id, name, template_id, description,
is_active, public_apply, created_at, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	selectProjectsByOwner = `SELECT ` + projectColumns + ` FROM projects p
WHERE p.owner_id = $1 AND p.deleted_at = $2
ORDER BY p.created_at DESC`

	selectProject = `SELECT ` + projectColumns + `, COALESCE(o.name, '') FROM projects p
LEFT JOIN organizations o ON o.id = p.org_id
WHERE p.id = $1 AND p.deleted_at = $2`

	selectProjectOwned = `SELECT EXISTS (
SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2 AND deleted_at = $3)`

	updateProject = `UPDATE projects p SET
name = COALESCE($3, p.name),
template_id = COALESCE($4, p.template_id),
description = COALESCE($5, p.description),
is_active = COALESCE($6, p.is_active),
public_apply = COALESCE($7, p.public_apply)
WHERE p.id = $1 AND p.deleted_at = $2
RETURNING ` + projectColumns

	softDeleteProject = `UPDATE projects SET deleted_at = $3
WHERE id = $1 AND deleted_at = $2`

	softDeleteProjectApplicants = `UPDATE applicants SET deleted_at = $3
WHERE project_id = $1 AND deleted_at = $2`

	insertAPIKey = `INSERT INTO api_keys (id, project_id, key_value, owner_id, created_at)
VALUES ($1, $2, $3, $4, $5)`

	selectAPIKeyProject = `SELECT project_id FROM api_keys WHERE key_value = $1`
)

func scanProject(row rowScanner, extra ...interface{}) (*models.Project, error) {
	var p models.Project
	dest := append([]interface{}{
		&p.ID, &p.OrgID, &p.OwnerID, &p.Name, &p.TemplateID, &p.Description,
		&p.IsActive, &p.PublicApply, &p.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreateOrg returns the owner's organization, creating one on first use.
func (s *Store) GetOrCreateOrg(ctx context.Context, ownerID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, selectOrgByOwner, ownerID, live).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", queryFailed("select organization", err)
	}

	org, err := s.CreateOrganization(ctx, ownerID, defaultOrganizationName)
	if err != nil {
		return "", err
	}
	return org.ID, nil
}

func (s *Store) CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error) {
	org := &models.Organization{
		ID:        s.newID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}
	if _, err := s.db.ExecContext(ctx, insertOrganization, org.ID, org.Name, org.OwnerID, org.CreatedAt, live); err != nil {
		return nil, queryFailed("insert organization", err)
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context, ownerID string) ([]models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, selectOrganizations, ownerID, live)
	if err != nil {
		return nil, queryFailed("list organizations", err)
	}
	defer rows.Close()

	orgs := make([]models.Organization, 0)
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.OwnerID, &o.CreatedAt); err != nil {
			return nil, queryFailed("scan organization", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// CreateProject creates a project in the owner's organization.
func (s *Store) CreateProject(ctx context.Context, ownerID string, in models.ProjectCreate) (*models.Project, error) {
	orgID, err := s.GetOrCreateOrg(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:          s.newID(),
		OrgID:       orgID,
		OwnerID:     ownerID,
		Name:        in.Name,
		TemplateID:  in.TemplateID,
		Description: in.Description,
		IsActive:    boolOr(in.IsActive, true),
		PublicApply: boolOr(in.PublicApply, true),
		CreatedAt:   s.now(),
	}
	_, err = s.db.ExecContext(ctx, insertProject,
		p.ID, p.OrgID, p.OwnerID, p.Name, p.TemplateID, p.Description,
		p.IsActive, p.PublicApply, p.CreatedAt, live)
	if err != nil {
		return nil, queryFailed("insert project", err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, selectProjectsByOwner, ownerID, live)
	if err != nil {
		return nil, queryFailed("list projects", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, queryFailed("scan project", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// GetProject returns a live project together with its organization name.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var orgName string
	p, err := scanProject(s.db.QueryRowContext(ctx, selectProject, id, live), &orgName)
	if err != nil {
		return nil, wrapNotFound(queryFailed("select project", err), "project "+id)
	}
	p.OrgName = orgName
	return p, nil
}

// ProjectOwnedBy reports whether a live project belongs to ownerID.
func (s *Store) ProjectOwnedBy(ctx context.Context, projectID, ownerID string) (bool, error) {
	var owned bool
	if err := s.db.QueryRowContext(ctx, selectProjectOwned, projectID, ownerID, live).Scan(&owned); err != nil {
		return false, queryFailed("check project owner", err)
	}
	return owned, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, updateProject, id, live,
		upd.Name, upd.TemplateID, upd.Description, upd.IsActive, upd.PublicApply)
	p, err := scanProject(row)
	if err != nil {
		return nil, wrapNotFound(queryFailed("update project", err), "project "+id)
	}
	return p, nil
}

// DeleteProject soft-deletes a project and every live applicant in it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	now := s.now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, softDeleteProject, id, live, now)
		if err != nil {
			return queryFailed("delete project", err)
		}
		if err := checkAffected(res, "delete project"); err != nil {
			return wrapNotFound(err, "project "+id)
		}
		if _, err := tx.ExecContext(ctx, softDeleteProjectApplicants, id, live, now); err != nil {
			return queryFailed("delete project applicants", err)
		}
		return nil
	})
}

// CreateAPIKey issues a new "hris_" key for a project.
func (s *Store) CreateAPIKey(ctx context.Context, projectID, ownerID string) (*models.APIKey, error) {
	value, err := generateKey()
	if err != nil {
		return nil, err
	}
	key := &models.APIKey{
		ID:        s.newID(),
		ProjectID: projectID,
		KeyValue:  value,
		CreatedAt: s.now(),
	}
	if _, err := s.db.ExecContext(ctx, insertAPIKey, key.ID, key.ProjectID, key.KeyValue, ownerID, key.CreatedAt); err != nil {
		return nil, queryFailed("insert api key", err)
	}
	return key, nil
}

// ResolveAPIKey returns the project an API key belongs to.
func (s *Store) ResolveAPIKey(ctx context.Context, key string) (string, error) {
	var projectID string
	if err := s.db.QueryRowContext(ctx, selectAPIKeyProject, key).Scan(&projectID); err != nil {
		return "", wrapNotFound(queryFailed("resolve api key", err), "api key")
	}
	return projectID, nil
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "hris_" + base64.RawURLEncoding.EncodeToString(buf), nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
