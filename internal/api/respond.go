// internal/api/respond.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// respondError writes err as {error, message, hint, code}. Store sentinels
// and binding failures are mapped first; anything unknown is a 500.
func (s *Server) respondError(c *gin.Context, err error) {
	stdErr := s.classify(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	body := gin.H{
		"error":   stdErr.Message,
		"message": stdErr.Details,
		"code":    stdErr.Code,
	}
	if stdErr.Hint != "" {
		body["hint"] = stdErr.Hint
	}
	if retry, ok := stdErr.Metadata["retry_after"]; ok {
		body["retry_after"] = retry
		c.Header("Retry-After", fmt.Sprint(retry))
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", map[string]interface{}{
			"code":      stdErr.Code,
			"error":     err,
			"path":      c.Request.URL.Path,
			"requestId": c.GetString(ctxRequestID),
		})
		if stdErr.Code == apperrors.ErrCodeInternal {
			body["message"] = "An unexpected error occurred"
		}
	}
	c.JSON(status, body)
}

func (s *Server) classify(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.As(err); ok {
		return stdErr
	}

	var verrs validator.ValidationErrors
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		return apperrors.NewInvalidInputError(validationMessage(verrs))
	case errors.As(err, &maxBytes):
		return apperrors.NewValidationError(apperrors.ErrCodeFileTooLarge, "File too large",
			fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit), "")
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewResourceNotFoundError("Resource", strings.TrimPrefix(err.Error(), store.ErrNotFound.Error()+": "))
	case errors.Is(err, store.ErrDuplicateEmployee):
		return apperrors.NewDuplicateEmployeeError(strings.TrimPrefix(err.Error(), store.ErrDuplicateEmployee.Error()+": "))
	case errors.Is(err, store.ErrStatusConflict):
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidStatusTransition,
			"Applicant status changed concurrently", err.Error(), "Reload the applicant and try again")
	}
	return apperrors.Normalize(err)
}

// bindJSON decodes the request body into dst, reporting malformed JSON and
// rule violations as INVALID_INPUT.
func (s *Server) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	var maxBytes *http.MaxBytesError
	if errors.As(err, &verrs) || errors.As(err, &maxBytes) {
		return err
	}
	return apperrors.NewInvalidInputError(err.Error())
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var registerOnce sync.Once

// registerValidation makes validation errors name fields by their form or
// json key instead of the Go field name.
func registerValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

func queryLimit(c *gin.Context, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.NewInvalidInputError("limit must be a positive integer")
	}
	return n, nil
}

func success(message string) gin.H {
	return gin.H{"status": "success", "message": message}
}
