// internal/workers/recruitment/score-applicant/handler.go
package scoreapplicant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/llm"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/common/validation"
	"hris-cloud/internal/models"
	"hris-cloud/internal/tasks"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-applicant"

	minCVLength = 50

	ReasonTooShort = "CV content too short or empty."
	ReasonFailed   = "AI scoring failed due to error."
)

const systemPrompt = "You are an expert AI Technical Recruiter. Your job is to screen candidates for a Generic Senior Software Engineer role. " +
	"Look for mentions of: Python, JavaScript, React, FastAPI, SQL, System Design. " +
	"Be strict but fair. " +
	"Output MUST be strict JSON with keys: 'score' (integer 0-100) and 'reasoning' (string)."

const userPromptFormat = "Candidate Name: %s\nEmail: %s\n\nCV Content:\n%s"

var replySchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []string{"score", "reasoning"},
	"properties": map[string]interface{}{
		"score": map[string]interface{}{
			"type":    "integer",
			"minimum": 0,
			"maximum": 100,
		},
		"reasoning": map[string]interface{}{"type": "string"},
	},
})

// ScoreRecorder persists a screening result. It reports false when the
// applicant was already scored or has left the processing state.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, id string, score int, reasoning string, status models.ApplicantStatus) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.StatusEvent) error
}

type Handler struct {
	config    *Config
	generator llm.Generator
	recorder  ScoreRecorder
	events    EventPublisher
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler wires the scorer. events may be nil.
func NewHandler(config *Config, generator llm.Generator, recorder ScoreRecorder, events EventPublisher, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		generator: generator,
		recorder:  recorder,
		events:    events,
		errors:    apperrors.NewErrorHandler(scoped),
		logger:    scoped,
		now:       func() time.Time { return time.Now().UTC() },
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

	h.completeJob(ctx, client, job, output)
}

// HandleTask adapts the handler to the task dispatchers.
func (h *Handler) HandleTask(ctx context.Context, task tasks.ScoreTask) error {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	_, err := h.Execute(ctx, &Input{
		ApplicantID: task.ApplicantID,
		ProjectID:   task.ProjectID,
		Name:        task.Name,
		Email:       task.Email,
		CVText:      task.CVText,
	})
	return err
}

// Execute scores the applicant and moves it out of processing. Scoring
// failures are not errors; only persistence failures are, so the task is
// redelivered.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicantID == "" {
		return nil, apperrors.NewInvalidInputError("applicantId is required")
	}

	start := time.Now()
	assessment := h.Score(ctx, input.Name, input.Email, input.CVText)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	status := models.StatusRejected
	if assessment.Score >= h.config.PassThreshold {
		status = models.StatusScreened
	}

	applied, err := h.recorder.RecordScore(ctx, input.ApplicantID, assessment.Score, assessment.Reasoning, status)
	if err != nil {
		return nil, err
	}

	output := &Output{
		ApplicantID: input.ApplicantID,
		Score:       assessment.Score,
		Reasoning:   assessment.Reasoning,
		Status:      string(status),
		Applied:     applied,
	}
	if !applied {
		h.logger.Info("applicant already scored, skipping", map[string]interface{}{"applicantId": input.ApplicantID})
		return output, nil
	}

	metrics.ScoringResults.WithLabelValues(string(status)).Inc()
	h.logger.Info("applicant scored", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"score":       assessment.Score,
		"status":      status,
	})

	h.publish(ctx, input, status, assessment.Score)
	return output, nil
}

// Score asks the model for an assessment. It never fails: short input and
// every model or parse error map to a zero score with a fixed reason.
func (h *Handler) Score(ctx context.Context, name, email, cvText string) models.Assessment {
	if utf8.RuneCountInString(cvText) < minCVLength {
		return models.Assessment{Score: 0, Reasoning: ReasonTooShort}
	}

	if h.config.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ModelTimeout)
		defer cancel()
	}

	raw, err := h.generator.Generate(ctx, systemPrompt, fmt.Sprintf(userPromptFormat, name, email, cvText))
	if err != nil {
		h.logScoringFailure("model call failed", err, nil)
		return models.Assessment{Score: 0, Reasoning: ReasonFailed}
	}

	assessment, err := parseReply(raw)
	if err != nil {
		h.logScoringFailure("unusable model reply", err, map[string]interface{}{"reply": truncate(raw, 200)})
		return models.Assessment{Score: 0, Reasoning: ReasonFailed}
	}
	return assessment
}

func (h *Handler) logScoringFailure(msg string, err error, fields map[string]interface{}) {
	scoringErr := apperrors.NewLLMScoringFailedError(err)
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["code"] = string(scoringErr.Code)
	fields["retryable"] = scoringErr.Retryable
	h.logger.WithError(scoringErr).Error(msg, fields)
}

func parseReply(raw string) (models.Assessment, error) {
	doc := []byte(llm.ExtractJSON(raw))
	if err := replySchema.Check(doc); err != nil {
		return models.Assessment{}, err
	}

	var reply modelReply
	if err := json.Unmarshal(doc, &reply); err != nil {
		return models.Assessment{}, fmt.Errorf("decode reply: %w", err)
	}
	return models.Assessment{Score: int(reply.Score), Reasoning: reply.Reasoning}, nil
}

func (h *Handler) publish(ctx context.Context, input *Input, status models.ApplicantStatus, score int) {
	if h.events == nil {
		return
	}
	event := models.StatusEvent{
		ApplicantID: input.ApplicantID,
		ProjectID:   input.ProjectID,
		Status:      status,
		Score:       &score,
		OccurredAt:  h.now(),
	}
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("status event not published", map[string]interface{}{"applicantId": input.ApplicantID, "error": err})
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
