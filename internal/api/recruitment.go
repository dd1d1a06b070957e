// internal/api/recruitment.go
package api

import (
	"net/http"
	"strings"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) publicProject(c *gin.Context) {
	project, err := s.deps.Recruitment.PublicProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type organizationRequest struct {
	Name string `json:"name" binding:"omitempty,max=200"`
}

func (s *Server) createOrganization(c *gin.Context) {
	var req organizationRequest
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &req) {
		return
	}
	org, err := s.deps.Recruitment.CreateOrganization(c.Request.Context(), c.GetString(ctxUserID), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (s *Server) listOrganizations(c *gin.Context) {
	orgs, err := s.deps.Recruitment.ListOrganizations(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

func (s *Server) createProject(c *gin.Context) {
	var req models.ProjectCreate
	if !s.bindJSON(c, &req) {
		return
	}
	project, err := s.deps.Recruitment.CreateProject(c.Request.Context(), c.GetString(ctxUserID), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.deps.Recruitment.ListProjects(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) updateProject(c *gin.Context) {
	var upd models.ProjectUpdate
	if !s.bindJSON(c, &upd) {
		return
	}
	project, err := s.deps.Recruitment.UpdateProject(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"), upd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.deps.Recruitment.DeleteProject(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success("Project archived"))
}

func (s *Server) createAPIKey(c *gin.Context) {
	key, err := s.deps.Recruitment.CreateAPIKey(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (s *Server) listApplicants(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("project_id"))
	if projectID == "" {
		s.respondError(c, apperrors.NewInvalidInputError("project_id is required"))
		return
	}
	applicants, err := s.deps.Recruitment.ListApplicants(c.Request.Context(), c.GetString(ctxUserID), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applicants)
}

func (s *Server) listAllApplicants(c *gin.Context) {
	applicants, err := s.deps.Recruitment.ListAllApplicants(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applicants)
}

type decisionRequest struct {
	Status models.ApplicantStatus `json:"status" binding:"required"`
}

func (s *Server) decide(c *gin.Context) {
	var req decisionRequest
	if !s.bindJSON(c, &req) {
		return
	}
	applicant, err := s.deps.Recruitment.Decide(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"), req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, applicant)
}

func (s *Server) deleteApplicant(c *gin.Context) {
	if err := s.deps.Recruitment.DeleteApplicant(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success("Applicant archived"))
}

func (s *Server) convert(c *gin.Context) {
	result, err := s.deps.Recruitment.Convert(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) verify(c *gin.Context) {
	var req models.HireRequest
	if !s.bindJSON(c, &req) {
		return
	}
	result, err := s.deps.Recruitment.Verify(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
