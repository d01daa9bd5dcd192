package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/resilience"
)

// Config holds the model provider settings.
type Config struct {
	APIKey          string
	BaseURL         string
	CompletionModel string
	MaxTokens       int
	RateLimitRPS    float64
	Burst           int
	Logger          *zap.Logger
	Executor        *resilience.Executor
}

// Compile-time check: Client implements domain.CompletionClient.
var _ domain.CompletionClient = (*Client)(nil)

// Client calls an OpenAI-compatible chat completion API. A shared rate
// limiter smooths request bursts across the worker pool, and the
// resilience executor retries transient provider failures.
type Client struct {
	api     *openai.Client
	model   string
	maxTok  int
	limiter *rate.Limiter
	exec    *resilience.Executor
	logger  *zap.Logger
}

// NewClient creates a chat completion client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	exec := cfg.Executor
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig())
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.CompletionModel,
		maxTok:  cfg.MaxTokens,
		limiter: limiter,
		exec:    exec,
		logger:  cfg.Logger,
	}
}

// Complete sends a chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := c.wait(ctx); err != nil {
		return domain.Completion{}, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   c.maxTok,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()

	err := c.exec.Execute(ctx, "complete", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.CreateChatCompletion(ctx, apiReq)
		return callErr
	}, classifyModelError)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues("complete", "error").Inc()
		return domain.Completion{}, parseAPIError("completion", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues("complete", "error").Inc()
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProvider)
	}

	metrics.ModelRequestsTotal.WithLabelValues("complete", "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues("complete").Observe(duration.Seconds())
	metrics.ModelTokensTotal.WithLabelValues("complete", "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ModelTokensTotal.WithLabelValues("complete", "completion").Add(float64(resp.Usage.CompletionTokens))

	return domain.Completion{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Model returns the configured completion model name.
func (c *Client) Model() string { return c.model }

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// classifyModelError retries rate limits and server-side failures only.
func classifyModelError(err error) resilience.Classification {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		retryable := apiErr.HTTPStatusCode == http.StatusTooManyRequests ||
			apiErr.HTTPStatusCode >= http.StatusInternalServerError
		return resilience.Classification{Retryable: retryable, RecordFailure: retryable}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		retryable := reqErr.HTTPStatusCode == http.StatusTooManyRequests ||
			reqErr.HTTPStatusCode >= http.StatusInternalServerError
		return resilience.Classification{Retryable: retryable, RecordFailure: retryable}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}

	// transport-level failure (connection reset, DNS)
	return resilience.Classification{Retryable: true, RecordFailure: true}
}

// parseAPIError wraps provider failures with domain.ErrModelProvider.
func parseAPIError(operation string, err error) error {
	wrap := domain.ErrModelProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			operation, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			operation, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if resilience.IsCircuitOpen(err) {
		return fmt.Errorf("%s circuit open: %w", operation, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", operation, err, wrap)
}
