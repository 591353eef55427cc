package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// SuggestionInput is what the grading advisor is asked to judge.
type SuggestionInput struct {
	QuestionID      int64  `json:"questionId"`
	Question        string `json:"question"`
	ReferenceAnswer string `json:"referenceAnswer,omitempty"`
	StudentAnswer   string `json:"studentAnswer"`
	MaxScore        int    `json:"maxScore"`
}

// Suggester is an external grading advisor.
type Suggester interface {
	Suggest(ctx context.Context, in SuggestionInput) (*model.AIGradingResponse, error)
}

// DisabledSuggester is used when no advisor is configured.
type DisabledSuggester struct{}

func (DisabledSuggester) Suggest(context.Context, SuggestionInput) (*model.AIGradingResponse, error) {
	return nil, ErrSuggestionUnavailable
}

// HTTPSuggester posts the input as JSON to an advisor endpoint.
type HTTPSuggester struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPSuggester creates a new HTTPSuggester.
func NewHTTPSuggester(url, apiKey string, timeout time.Duration) *HTTPSuggester {
	return &HTTPSuggester{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPSuggester) Suggest(ctx context.Context, in SuggestionInput) (*model.AIGradingResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal suggestion input: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build advisor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call advisor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("advisor returned %d: %s", resp.StatusCode, snippet)
	}

	var out model.AIGradingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode advisor response: %w", err)
	}
	return &out, nil
}

// AIService returns advisory scores for subjective answers. Suggestions are
// never persisted; a teacher applies scores through GradingService.
type AIService struct {
	questions QuestionStore
	advisor   Suggester
	timeout   time.Duration
	log       zerolog.Logger
}

// NewAIService creates a new AIService.
func NewAIService(questions QuestionStore, advisor Suggester, timeout time.Duration, log zerolog.Logger) *AIService {
	return &AIService{
		questions: questions,
		advisor:   advisor,
		timeout:   timeout,
		log:       logger.Component(log, "ai_service"),
	}
}

// Suggest asks the advisor for a score. Any advisor failure, including a
// timeout, is reported as ErrSuggestionUnavailable.
func (s *AIService) Suggest(ctx context.Context, req *model.AIGradingRequest) (*model.AIGradingResponse, error) {
	q, err := s.questions.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.advisor.Suggest(ctx, SuggestionInput{
		QuestionID:      q.ID,
		Question:        q.Content,
		ReferenceAnswer: q.Answer,
		StudentAnswer:   req.StudentAnswer,
		MaxScore:        req.MaxScore,
	})
	if err != nil {
		if !errors.Is(err, ErrSuggestionUnavailable) {
			s.log.Warn().Err(err).Int64("question_id", req.QuestionID).Msg("Grading advisor failed")
		}
		return nil, ErrSuggestionUnavailable
	}

	out.QuestionID = req.QuestionID
	out.MaxScore = req.MaxScore
	if out.SuggestedScore < 0 {
		out.SuggestedScore = 0
	}
	if out.SuggestedScore > req.MaxScore {
		out.SuggestedScore = req.MaxScore
	}
	if out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Improvements == nil {
		out.Improvements = []string{}
	}
	return out, nil
}
