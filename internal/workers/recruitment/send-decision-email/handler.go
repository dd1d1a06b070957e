// internal/workers/recruitment/send-decision-email/handler.go
package senddecisionemail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-decision-email"
)

type Handler struct {
	config *Config
	mailer Mailer
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, mailer Mailer, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		mailer: mailer,
		errors: apperrors.NewErrorHandler(scoped),
		logger: scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

// Execute validates the input and sends the decision email.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.NewInvalidInputError("email is required")
	}
	return h.Send(ctx, *input), nil
}

// Send delivers the decision email for n. A delivery failure is logged and
// reported in the output, never returned.
func (h *Handler) Send(ctx context.Context, n models.DecisionNotification) *Output {
	output := &Output{
		NotificationID: uuid.New().String(),
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	subject, body, ok := render(n)
	if !ok {
		output.Status = StatusSkipped
		return output
	}

	channel := h.mailer.Name()
	if _, isLog := h.mailer.(*LogMailer); isLog {
		output.Status = StatusDisabled
	}

	if _, err := h.mailer.Send(ctx, Message{
		From:    h.config.Sender(),
		To:      n.Email,
		Subject: subject,
		HTML:    body,
	}); err != nil {
		h.logger.Error("decision email failed", map[string]interface{}{
			"applicantId": n.ApplicantID,
			"status":      n.Status,
			"error":       apperrors.NewNotificationSendFailedError(TaskType, err).Details,
		})
		metrics.Notifications.WithLabelValues(channel, StatusFailed).Inc()
		output.Status = StatusFailed
		return output
	}

	if output.Status == "" {
		output.Status = StatusSent
		h.logger.Info("decision email sent", map[string]interface{}{
			"applicantId": n.ApplicantID,
			"status":      n.Status,
		})
	}
	metrics.Notifications.WithLabelValues(channel, output.Status).Inc()
	return output
}
