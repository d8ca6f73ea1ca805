package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
)

// GeminiConfig configures the Gemini model client.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// RequestsPerMinute caps outgoing calls. Zero disables the limiter.
	RequestsPerMinute int

	// Timeout bounds a single call. Zero means no extra deadline.
	Timeout time.Duration

	// Temperature is passed through when non-nil.
	Temperature *float32
}

// contentGenerator is the subset of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Model on top of the Gemini API.
type Gemini struct {
	models      contentGenerator
	model       string
	limiter     *rate.Limiter
	timeout     time.Duration
	temperature *float32
	metrics     *instrumentation.Metrics
	logger      logging.Logger
}

// NewGemini creates a Gemini client. The API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig, metrics *instrumentation.Metrics, logger logging.Logger) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY or llm.api_key)")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGemini(client.Models, cfg, metrics, logger), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig, metrics *instrumentation.Metrics, logger logging.Logger) *Gemini {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Gemini{
		models:      models,
		model:       model,
		limiter:     limiter,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		metrics:     metrics,
		logger:      logging.OrDiscard(logger),
	}
}

// ModelName returns the configured model name.
func (g *Gemini) ModelName() string {
	return g.model
}

// Generate sends prompt as a single user turn and returns the reply text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for model rate limit: %w", err)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx, span := instrumentation.StartLLMSpan(ctx, g.model)
	defer span.End()

	cfg := &genai.GenerateContentConfig{CandidateCount: 1}
	if g.temperature != nil {
		cfg.Temperature = genai.Ptr(*g.temperature)
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	duration := time.Since(start)

	if err != nil {
		err = classifyErr(err)
		instrumentation.SetSpanError(span, err)
		g.metrics.RecordLLMRequest(ctx, g.model, instrumentation.StatusError, duration)
		g.logger.Warn("model call failed",
			"model", g.model,
			logging.Err(err),
			"transient", IsTransient(err),
			"duration", duration)
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if strings.TrimSpace(text) == "" {
		instrumentation.SetSpanError(span, ErrEmptyReply)
		g.metrics.RecordLLMRequest(ctx, g.model, instrumentation.StatusError, duration)
		return "", ErrEmptyReply
	}

	instrumentation.SetSpanSuccess(span)
	g.metrics.RecordLLMRequest(ctx, g.model, instrumentation.StatusSuccess, duration)
	g.logger.Debug("model call succeeded",
		"model", g.model,
		"prompt_chars", len(prompt),
		"reply_chars", len(text),
		"duration", duration)
	return text, nil
}

// classifyErr wraps failures worth retrying later in a TransientError.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &TransientError{Err: err}
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTemporaryNetError(err) {
		return &TransientError{Err: err}
	}
	return err
}
