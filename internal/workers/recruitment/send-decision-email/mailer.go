// internal/workers/recruitment/send-decision-email/mailer.go
package senddecisionemail

import (
	"context"
	"fmt"
	"strings"

	awsclients "hris-cloud/internal/common/aws"
	httpclient "hris-cloud/internal/common/http"
	"hris-cloud/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer delivers one rendered email and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
	Name() string
}

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type HTTPPoster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error
}

// NewMailer builds the mailer selected by cfg.Provider. Resend without a key
// falls back to logging.
func NewMailer(ctx context.Context, cfg *Config, log logger.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "ses":
		client, err := awsclients.NewSESClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("build SES client: %w", err)
		}
		return NewSESMailer(client), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return NewLogMailer(log), nil
		}
		return NewResendMailer(httpclient.NewClient(cfg.Timeout), cfg.ResendBaseURL, cfg.ResendAPIKey), nil
	case "log", "":
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

type SESMailer struct {
	client SESService
}

func NewSESMailer(client SESService) *SESMailer {
	return &SESMailer{client: client}
}

func (m *SESMailer) Name() string { return "ses" }

func (m *SESMailer) Send(ctx context.Context, msg Message) (string, error) {
	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML)},
			},
		},
		Source: aws.String(msg.From),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

type ResendMailer struct {
	client  HTTPPoster
	baseURL string
	apiKey  string
}

func NewResendMailer(client HTTPPoster, baseURL, apiKey string) *ResendMailer {
	return &ResendMailer{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (m *ResendMailer) Name() string { return "resend" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	var resp resendResponse
	err := m.client.PostJSON(ctx, m.baseURL+"/emails", map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	}, resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// LogMailer records the email instead of sending it.
type LogMailer struct {
	logger logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Name() string { return "log" }

func (m *LogMailer) Send(_ context.Context, msg Message) (string, error) {
	m.logger.Info("[MOCK EMAIL]", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	return "", nil
}
