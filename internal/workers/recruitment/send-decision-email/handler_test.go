// internal/workers/recruitment/send-decision-email/handler_test.go
package senddecisionemail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hris-cloud/internal/common/config"
	apperrors "hris-cloud/internal/common/errors"
	httpclient "hris-cloud/internal/common/http"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockMailer struct {
	sent []Message
	err  error
}

func (m *MockMailer) Name() string { return "mock" }

func (m *MockMailer) Send(ctx context.Context, msg Message) (string, error) {
	m.sent = append(m.sent, msg)
	return "id-1", m.err
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Provider:  "resend",
		FromEmail: "onboarding@resend.dev",
		FromName:  "Acme HR",
		Timeout:   5 * time.Second,
	}
}

func createTestInput(status models.ApplicantStatus) *Input {
	return &Input{
		ApplicantID:   "app-001",
		CandidateName: "Jane Doe",
		Email:         "jane@example.com",
		ProjectName:   "Backend Engineer",
		Status:        status,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Templates(t *testing.T) {
	tests := []struct {
		name            string
		status          models.ApplicantStatus
		expectedStatus  string
		expectedSubject string
		bodyContains    string
	}{
		{
			name:            "approved",
			status:          models.StatusApproved,
			expectedStatus:  StatusSent,
			expectedSubject: "Good News regarding your application for Backend Engineer",
			bodyContains:    "<h1>Congratulations, Jane Doe!</h1>",
		},
		{
			name:            "rejected",
			status:          models.StatusRejected,
			expectedStatus:  StatusSent,
			expectedSubject: "Update on your application for Backend Engineer",
			bodyContains:    "<p>Dear Jane Doe,</p>",
		},
		{
			name:           "interview approved has no email",
			status:         models.StatusInterviewApproved,
			expectedStatus: StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &MockMailer{}
			h := NewHandler(createTestConfig(), mailer, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), createTestInput(tt.status))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, out.Status)
			assert.NotEmpty(t, out.NotificationID)

			if tt.expectedStatus == StatusSkipped {
				assert.Empty(t, mailer.sent)
				return
			}
			require.Len(t, mailer.sent, 1)
			msg := mailer.sent[0]
			assert.Equal(t, "Acme HR <onboarding@resend.dev>", msg.From)
			assert.Equal(t, "jane@example.com", msg.To)
			assert.Equal(t, tt.expectedSubject, msg.Subject)
			assert.Contains(t, msg.HTML, tt.bodyContains)
		})
	}
}

func TestHandler_Execute_SendFailureIsNotAnError(t *testing.T) {
	mailer := &MockMailer{err: errors.New("smtp down")}
	h := NewHandler(createTestConfig(), mailer, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), createTestInput(models.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
}

func TestHandler_Execute_RequiresEmail(t *testing.T) {
	h := NewHandler(createTestConfig(), &MockMailer{}, logger.NewTestLogger(t))
	input := createTestInput(models.StatusApproved)
	input.Email = "  "

	_, err := h.Execute(context.Background(), input)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestHandler_LogMailerReportsDisabled(t *testing.T) {
	h := NewHandler(createTestConfig(), NewLogMailer(logger.NewTestLogger(t)), logger.NewTestLogger(t))

	out := h.Send(context.Background(), *createTestInput(models.StatusRejected))
	assert.Equal(t, StatusDisabled, out.Status)
}

func TestRenderTemplate_EscapesAndDropsUnknown(t *testing.T) {
	got := renderTemplate("<p>{{candidateName}} {{missing}}</p>", map[string]string{"candidateName": "<b>Eve</b>"}, true)
	assert.Equal(t, "<p>&lt;b&gt;Eve&lt;/b&gt; </p>", got)

	subject := renderTemplate("Update for {{projectName}}", map[string]string{"projectName": "R&D"}, false)
	assert.Equal(t, "Update for R&D", subject)
}

// ==========================
// Mailer Tests
// ==========================

func TestSESMailer_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	mailer := NewSESMailer(&MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
		},
	})

	id, err := mailer.Send(context.Background(), Message{From: "hr@acme.test", To: "jane@example.com", Subject: "Hi", HTML: "<p>Hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, []string{"jane@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "hr@acme.test", aws.ToString(captured.Source))
	assert.Equal(t, "<p>Hi</p>", aws.ToString(captured.Message.Body.Html.Data))
}

func TestSESMailer_SendError(t *testing.T) {
	mailer := NewSESMailer(&MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	})
	_, err := mailer.Send(context.Background(), Message{To: "x@example.com"})
	assert.Error(t, err)
}

func TestResendMailer_Send(t *testing.T) {
	var body resendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"re-123"}`))
	}))
	defer server.Close()

	mailer := NewResendMailer(httpclient.NewClient(time.Second), server.URL+"/", "re_test")
	id, err := mailer.Send(context.Background(), Message{From: "Acme HR <onboarding@resend.dev>", To: "jane@example.com", Subject: "S", HTML: "H"})
	require.NoError(t, err)
	assert.Equal(t, "re-123", id)
	assert.Equal(t, []string{"jane@example.com"}, body.To)
	assert.Equal(t, "S", body.Subject)
}

func TestResendMailer_SendRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer server.Close()

	mailer := NewResendMailer(httpclient.NewClient(time.Second), server.URL, "re_test")
	_, err := mailer.Send(context.Background(), Message{To: "jane@example.com"})

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
}

func TestNewMailer(t *testing.T) {
	log := logger.NewTestLogger(t)

	m, err := NewMailer(context.Background(), &Config{Provider: "log"}, log)
	require.NoError(t, err)
	assert.Equal(t, "log", m.Name())

	m, err = NewMailer(context.Background(), &Config{Provider: "resend"}, log)
	require.NoError(t, err)
	assert.Equal(t, "log", m.Name(), "resend without a key falls back to logging")

	m, err = NewMailer(context.Background(), &Config{Provider: "resend", ResendAPIKey: "k", ResendBaseURL: "https://api.resend.com", Timeout: time.Second}, log)
	require.NoError(t, err)
	assert.Equal(t, "resend", m.Name())

	_, err = NewMailer(context.Background(), &Config{Provider: "carrier-pigeon"}, log)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	var cfg config.NotificationConfig
	cfg.Email.Provider = "ses"
	cfg.Email.FromEmail = "hr@acme.test"
	cfg.AWS.Region = "eu-west-1"

	c := LoadConfig(cfg)
	assert.Equal(t, "ses", c.Provider)
	assert.Equal(t, "eu-west-1", c.AWSRegion)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Equal(t, "Acme HR <hr@acme.test>", c.Sender())
}
