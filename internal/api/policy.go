// internal/api/policy.go
package api

import (
	"net/http"

	apperrors "hris-cloud/internal/common/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) uploadPolicy(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		if s.classify(err).Code == apperrors.ErrCodeFileTooLarge {
			s.respondError(c, err)
			return
		}
		s.respondError(c, apperrors.NewValidationError(apperrors.ErrCodeMissingFilename, "No file provided", err.Error(), ""))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(c, apperrors.NewInvalidInputError("could not read uploaded file: "+err.Error()))
		return
	}
	defer f.Close()

	name, err := s.deps.PolicyFiles.Save(fh.Filename, f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"filename": name,
		"message":  "Policy uploaded and ready for indexing",
	})
}

func (s *Server) listPolicyFiles(c *gin.Context) {
	files, err := s.deps.PolicyFiles.List()
	if err != nil {
		s.respondError(c, err)
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) deletePolicyFile(c *gin.Context) {
	if err := s.deps.PolicyFiles.Delete(c.Param("filename")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success("File deleted"))
}

func (s *Server) policyLogs(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		s.respondError(c, err)
		return
	}
	logs, err := s.deps.Policy.Logs(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) searchPolicyLogs(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		s.respondError(c, err)
		return
	}
	logs, err := s.deps.Policy.SearchLogs(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) policyChat(c *gin.Context) {
	answer, err := s.deps.Policy.Answer(c.Request.Context(), c.GetString(ctxUserID), c.Query("query"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
