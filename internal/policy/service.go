// Package policy stores HR policy documents and answers employee questions
// from their text.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "hris-cloud/internal/common/errors"
	"hris-cloud/internal/common/llm"
	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/validation"
	"hris-cloud/internal/intake"
	"hris-cloud/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	AnswerNoDocuments    = "Maaf, saat ini dokumen kebijakan belum tersedia di sistem. Silakan hubungi HR."
	ReasoningNoDocuments = "No policy documents found in the backend 'policies/' folder."
	AnswerUnavailable    = "Sistem sedang mengalami gangguan saat memproses pertanyaan Anda."
	ReasoningRawReply    = "Direct LLM response"
)

const systemPrompt = "You are an HR Policy Assistant. Use the provided POLICY CONTEXT to answer the user question. " +
	"If the answer is not in the context, say you don't know and advise contacting HR. " +
	"Be professional and concise. Provide reasoning for your answer. " +
	"Output MUST be strict JSON with keys: 'answer' and 'reasoning'."

const userPromptFormat = "POLICY CONTEXT:\n%s\n\nUSER QUESTION: %s"

var answerSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []string{"answer"},
	"properties": map[string]interface{}{
		"answer":    map[string]interface{}{"type": "string"},
		"reasoning": map[string]interface{}{"type": "string"},
	},
})

// TextExtractor pulls text out of a document; *intake.Extractor satisfies it.
type TextExtractor interface {
	Extract(content []byte, mime string) (string, error)
}

type LogStore interface {
	InsertPolicyLog(ctx context.Context, entry *models.PolicyLog) error
	ListPolicyLogs(ctx context.Context, limit int) ([]models.PolicyLog, error)
}

type Deps struct {
	Storage   *Storage
	Extractor TextExtractor
	Generator llm.Generator
	Logs      LogStore
	Indexer   *Indexer
	Redis     redis.Cmdable
	CacheTTL  time.Duration
}

type Service struct {
	storage   *Storage
	extractor TextExtractor
	generator llm.Generator
	logs      LogStore
	indexer   *Indexer
	cache     *contextCache
	logger    logger.Logger
}

func NewService(deps Deps, log logger.Logger) *Service {
	return &Service{
		storage:   deps.Storage,
		extractor: deps.Extractor,
		generator: deps.Generator,
		logs:      deps.Logs,
		indexer:   deps.Indexer,
		cache:     &contextCache{client: deps.Redis, ttl: deps.CacheTTL},
		logger:    logger.Component(log, "policy"),
	}
}

// Answer responds to an employee question from the policy documents. Model
// failures produce a fixed apology rather than an error.
func (s *Service) Answer(ctx context.Context, userID, query string) (*models.PolicyAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError("Query is required")
	}

	policyText, err := s.policyContext(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(policyText) == "" {
		return &models.PolicyAnswer{Answer: AnswerNoDocuments, Reasoning: ReasoningNoDocuments}, nil
	}

	raw, err := s.generator.Generate(ctx, systemPrompt, fmt.Sprintf(userPromptFormat, policyText, query))
	if err != nil {
		s.logger.Error("policy model call failed", map[string]interface{}{"error": err})
		return &models.PolicyAnswer{Answer: AnswerUnavailable, Reasoning: err.Error()}, nil
	}

	answer := parseAnswer(raw)
	s.record(ctx, userID, query, answer)
	return answer, nil
}

func parseAnswer(raw string) *models.PolicyAnswer {
	doc := []byte(llm.ExtractJSON(raw))
	if answerSchema.Check(doc) == nil {
		var answer models.PolicyAnswer
		if err := json.Unmarshal(doc, &answer); err == nil {
			return &answer
		}
	}
	return &models.PolicyAnswer{Answer: strings.TrimSpace(raw), Reasoning: ReasoningRawReply}
}

// record logs the exchange to postgres and elasticsearch. Neither failure is
// surfaced to the employee.
func (s *Service) record(ctx context.Context, userID, query string, answer *models.PolicyAnswer) {
	entry := &models.PolicyLog{
		UserID:    userID,
		Query:     query,
		Answer:    answer.Answer,
		Reasoning: answer.Reasoning,
	}
	if err := s.logs.InsertPolicyLog(ctx, entry); err != nil {
		s.logger.Warn("policy log not stored", map[string]interface{}{"error": err})
		return
	}
	if err := s.indexer.Index(ctx, *entry); err != nil {
		s.logger.Warn("policy log not indexed", map[string]interface{}{"logId": entry.ID, "error": err})
	}
}

// policyContext concatenates the text of every policy PDF, using the redis
// copy while the file set is unchanged.
func (s *Service) policyContext(ctx context.Context) (string, error) {
	files, err := s.storage.List()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	key := fingerprint(files)
	if text, ok, err := s.cache.get(ctx, key); err != nil {
		s.logger.Warn("policy cache read failed", map[string]interface{}{"error": err})
	} else if ok {
		return text, nil
	}

	var b strings.Builder
	for _, f := range files {
		content, err := s.storage.Read(f.Name)
		if err != nil {
			s.logger.Warn("skipping unreadable policy file", map[string]interface{}{"file": f.Name, "error": err})
			continue
		}
		text, err := s.extractor.Extract(content, intake.MimePDF)
		if err != nil {
			s.logger.Warn("skipping policy file without text", map[string]interface{}{"file": f.Name, "error": err})
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := b.String()
	if err := s.cache.set(ctx, key, text); err != nil {
		s.logger.Warn("policy cache write failed", map[string]interface{}{"error": err})
	}
	return text, nil
}

// Logs returns the most recent Q&A exchanges.
func (s *Service) Logs(ctx context.Context, limit int) ([]models.PolicyLog, error) {
	return s.logs.ListPolicyLogs(ctx, clampLimit(limit))
}

// SearchLogs full-text searches Q&A exchanges. Without elasticsearch it
// filters the most recent exchanges by substring.
func (s *Service) SearchLogs(ctx context.Context, q string, limit int) ([]models.PolicyLog, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.NewInvalidInputError("q is required")
	}
	limit = clampLimit(limit)

	if s.indexer.Enabled() {
		logs, err := s.indexer.Search(ctx, q, limit)
		if err != nil {
			return nil, apperrors.NewExternalServiceError("elasticsearch", err)
		}
		return logs, nil
	}

	recent, err := s.logs.ListPolicyLogs(ctx, 500)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	matched := make([]models.PolicyLog, 0)
	for _, l := range recent {
		if strings.Contains(strings.ToLower(l.Query), needle) || strings.Contains(strings.ToLower(l.Answer), needle) {
			matched = append(matched, l)
			if len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 500:
		return 500
	default:
		return limit
	}
}
