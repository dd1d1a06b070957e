// internal/api/apply.go
package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/recruitment"

	"github.com/gin-gonic/gin"
)

type applyForm struct {
	Name  string                `form:"name" binding:"required,min=2,max=100"`
	Email string                `form:"email" binding:"required,email"`
	CV    *multipart.FileHeader `form:"cv" binding:"required"`
}

// apply is the public CV submission endpoint. The IP quota has already been
// charged by middleware; the project quota is charged once the target
// project is known.
func (s *Server) apply(c *gin.Context) {
	ctx := c.Request.Context()

	projectID, err := s.deps.Recruitment.ResolveProject(ctx,
		strings.TrimSpace(c.GetHeader(headerAPIKey)),
		strings.TrimSpace(c.GetHeader(headerProjectID)))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.limitByProject(c, projectID); err != nil {
		s.respondError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	var form applyForm
	if err := c.ShouldBind(&form); err != nil {
		s.respondError(c, bindingError(err))
		return
	}

	content, err := readUpload(form.CV)
	if err != nil {
		s.respondError(c, err)
		return
	}

	applicant, created, err := s.deps.Recruitment.Submit(ctx, recruitment.SubmitRequest{
		ProjectID: projectID,
		Name:      form.Name,
		Email:     form.Email,
		Filename:  form.CV.Filename,
		Content:   content,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, applicant)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewInvalidInputError("could not read uploaded file: " + err.Error())
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("could not read uploaded file: " + err.Error())
	}
	return content, nil
}
