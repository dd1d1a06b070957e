// internal/api/middleware.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hris-cloud/internal/common/auth"
	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-KEY"
	headerProjectID = "X-PROJECT-ID"

	ctxRequestID = "requestId"
	ctxUserID    = "userId"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"clientIp":   ratelimit.ClientIP(c.Request),
			"requestId":  c.GetString(ctxRequestID),
		}
		if userID := c.GetString(ctxUserID); userID != "" {
			fields["userId"] = userID
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request failed", fields)
		case status >= http.StatusBadRequest:
			s.logger.Warn("request rejected", fields)
		default:
			s.logger.Info("request served", fields)
		}
	}
}

func observeMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("panic recovered", map[string]interface{}{
			"panic":     fmt.Sprint(recovered),
			"path":      c.Request.URL.Path,
			"requestId": c.GetString(ctxRequestID),
		})
		s.respondError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", headerAPIKey, headerProjectID, headerRequestID},
		ExposeHeaders:    []string{headerRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// requireAuth resolves the bearer token to the HR user id.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Verifier == nil {
			s.respondError(c, apperrors.NewAuthenticationError("authentication is not configured"))
			c.Abort()
			return
		}
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			err := apperrors.NewAuthenticationError("missing bearer token")
			err.Message = "Not authenticated"
			s.respondError(c, err)
			c.Abort()
			return
		}
		userID, err := s.deps.Verifier.Subject(token)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func (s *Server) limitByIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ratelimit.ClientIP(c.Request)
		msg := fmt.Sprintf("Maximum %d applications %s from your IP", s.deps.Quotas.PerIP, per(s.deps.Quotas.Window))
		if err := s.checkLimit(c, "ip", ratelimit.IPKey(ip), s.deps.Quotas.PerIP, msg); err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) limitByProject(c *gin.Context, projectID string) error {
	msg := fmt.Sprintf("Maximum %d applications %s for this project", s.deps.Quotas.PerProject, per(s.deps.Quotas.Window))
	return s.checkLimit(c, "project", ratelimit.ProjectKey(projectID), s.deps.Quotas.PerProject, msg)
}

// checkLimit turns a quota rejection into a 429 error. Limiter failures are
// logged and the request is let through.
func (s *Server) checkLimit(c *gin.Context, scope, key string, limit int, msg string) error {
	if s.deps.Limiter == nil {
		return nil
	}
	err := s.deps.Limiter.Check(c.Request.Context(), key, limit, s.deps.Quotas.Window)
	if err == nil {
		return nil
	}

	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		metrics.RateLimitRejections.WithLabelValues(scope).Inc()
		return apperrors.NewRateLimitExceededError(msg, exceeded.RetryAfter)
	}
	s.logger.Warn("rate limiter unavailable", map[string]interface{}{"key": key, "error": err})
	return nil
}

func per(window time.Duration) string {
	switch window {
	case time.Hour:
		return "per hour"
	case time.Minute:
		return "per minute"
	default:
		return "per " + window.String()
	}
}
