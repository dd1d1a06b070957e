// internal/workers/recruitment/publish-status-event/handler.go
package publishstatusevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "publish-status-event"

	channel = "sns"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends applicant status changes to an SNS topic. Without a topic
// it does nothing.
type Publisher struct {
	config *Config
	client SNSService
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewPublisher(config *Config, client SNSService, log logger.Logger) *Publisher {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Publisher{
		config: config,
		client: client,
		errors: apperrors.NewErrorHandler(scoped),
		logger: scoped,
	}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.config.TopicARN != "" && p.client != nil
}

// Publish sends one event. It returns nil when publishing is disabled.
func (p *Publisher) Publish(ctx context.Context, event models.StatusEvent) error {
	_, err := p.publish(ctx, event)
	return err
}

func (p *Publisher) publish(ctx context.Context, event models.StatusEvent) (string, error) {
	if !p.Enabled() {
		return "", nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode status event: %w", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.config.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Status)),
			},
		},
	})
	if err != nil {
		metrics.Notifications.WithLabelValues(channel, StatusFailed).Inc()
		return "", apperrors.NewNotificationSendFailedError(TaskType, err)
	}

	metrics.Notifications.WithLabelValues(channel, StatusSent).Inc()
	messageID := aws.ToString(out.MessageId)
	p.logger.Debug("status event published", map[string]interface{}{
		"applicantId": event.ApplicantID,
		"status":      event.Status,
		"messageId":   messageID,
	})
	return messageID, nil
}

func (p *Publisher) Handle(client worker.JobClient, job entities.Job) {
	p.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		p.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output := p.Execute(ctx, &input)

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		p.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		p.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

// Execute publishes the event and reports the outcome. Publish failures are
// logged and reported as StatusFailed, never returned.
func (p *Publisher) Execute(ctx context.Context, input *Input) *Output {
	publishedAt := time.Now().UTC().Format(time.RFC3339)
	if input.OccurredAt.IsZero() {
		input.OccurredAt = time.Now().UTC()
	}
	if !p.Enabled() {
		return &Output{Status: StatusDisabled, PublishedAt: publishedAt}
	}

	messageID, err := p.publish(ctx, *input)
	if err != nil {
		p.logger.Error("status event publish failed", map[string]interface{}{
			"applicantId": input.ApplicantID,
			"error":       err,
		})
		return &Output{Status: StatusFailed, PublishedAt: publishedAt}
	}
	return &Output{MessageID: messageID, Status: StatusSent, PublishedAt: publishedAt}
}
