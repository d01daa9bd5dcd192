package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/domain"
)

// Error response codes returned to API clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeCapacityExhausted = "capacity_exhausted"
	codeRetrievalFailed   = "retrieval_failed"
	codeInvalidCitation   = "invalid_citation"
	codeGenerationFailed  = "generation_failed"
	codeGuardrailBlocked  = "guardrail_blocked"
	codeModelProvider     = "model_provider_error"
	codeInternalError     = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the query workflow over HTTP.
type Server struct {
	runner        WorkflowRunner
	health        Pinger
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// Defaults fills request fields the caller omitted.
type Defaults struct {
	TopK                    int
	MaxRegenerationAttempts int
}

// NewServer creates an HTTP API server.
func NewServer(runner WorkflowRunner, health Pinger, defaults Defaults, logger *zap.Logger) *Server {
	s := &Server{
		runner:   runner,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrCapacity, http.StatusTooManyRequests, codeCapacityExhausted),
		sentinelHandler(domain.ErrGuardrailBlocked, http.StatusUnprocessableEntity, codeGuardrailBlocked),
		// Invalid citations also wrap the generation sentinel; match the
		// narrower kind first.
		sentinelHandler(domain.ErrInvalidCitation, http.StatusBadGateway, codeInvalidCitation),
		sentinelHandler(domain.ErrRetrieval, http.StatusBadGateway, codeRetrievalFailed),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrModelProvider, http.StatusBadGateway, codeModelProvider),
	}
	return s
}

// Routes registers the API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/query", s.Query)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Query                   string `json:"query"`
	TopK                    int    `json:"top_k,omitempty"`
	IncludeEvaluation       *bool  `json:"include_evaluation,omitempty"`
	EnableSelfConsistency   *bool  `json:"enable_self_consistency,omitempty"`
	MaxRegenerationAttempts *int   `json:"max_regeneration_attempts,omitempty"`
	CompanyFilter           string `json:"company_filter,omitempty"`
	FilingTypeFilter        string `json:"filing_type_filter,omitempty"`
}

type citationDTO struct {
	Index     int     `json:"index"`
	ChunkID   string  `json:"chunk_id"`
	Document  string  `json:"document"`
	Section   string  `json:"section,omitempty"`
	Relevance float64 `json:"relevance"`
	Excerpt   string  `json:"excerpt,omitempty"`
}

type evaluationDTO struct {
	HallucinationScore  float64  `json:"hallucination_score"`
	FactualGrounding    float64  `json:"factual_grounding_score"`
	SemanticConsistency float64  `json:"semantic_consistency_score"`
	ConfidenceScore     float64  `json:"confidence_score"`
	Status              string   `json:"status"`
	Flags               []string `json:"flags,omitempty"`
	Reasoning           string   `json:"reasoning,omitempty"`
}

type guardrailDTO struct {
	PIIRedactions   int      `json:"pii_redactions"`
	PolicyStripped  int      `json:"policy_stripped_sentences"`
	DisclaimerAdded bool     `json:"disclaimer_added"`
	Warnings        []string `json:"warnings,omitempty"`
}

type usageDTO struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	EmbeddingTokens  int `json:"embedding_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type timingsDTO struct {
	RetrievalMs  int64 `json:"retrieval_ms"`
	GenerationMs int64 `json:"generation_ms"`
	EvaluationMs int64 `json:"evaluation_ms"`
	GuardrailsMs int64 `json:"guardrails_ms"`
	TotalMs      int64 `json:"total_ms"`
}

type queryResponse struct {
	RunID      string         `json:"run_id"`
	Query      string         `json:"query"`
	Response   string         `json:"response"`
	Citations  []citationDTO  `json:"citations"`
	Evaluation *evaluationDTO `json:"evaluation,omitempty"`
	Guardrails guardrailDTO   `json:"guardrails"`
	Warnings   []string       `json:"warnings,omitempty"`
	Model      string         `json:"model"`
	Usage      usageDTO       `json:"usage"`
	Attempts   int            `json:"attempts"`
	Timings    timingsDTO     `json:"timings"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	query, err := domain.NewQuery(req.Query, s.queryOptions(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := s.runner.Run(r.Context(), query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToDTO(result))
}

func (s *Server) queryOptions(req queryRequest) domain.QueryOptions {
	opts := domain.DefaultQueryOptions()
	opts.TopK = s.defaults.TopK
	opts.MaxRegenerationAttempts = s.defaults.MaxRegenerationAttempts
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.IncludeEvaluation != nil {
		opts.IncludeEvaluation = *req.IncludeEvaluation
	}
	if req.EnableSelfConsistency != nil {
		opts.EnableSelfConsistency = *req.EnableSelfConsistency
	}
	if req.MaxRegenerationAttempts != nil {
		opts.MaxRegenerationAttempts = *req.MaxRegenerationAttempts
	}
	opts.CompanyFilter = req.CompanyFilter
	opts.FilingTypeFilter = req.FilingTypeFilter
	return opts
}

func resultToDTO(res domain.Result) queryResponse {
	citations := make([]citationDTO, len(res.Citations))
	for i, c := range res.Citations {
		citations[i] = citationDTO{
			Index:     c.Index,
			ChunkID:   c.ChunkID,
			Document:  c.Document,
			Section:   c.Section,
			Relevance: c.Relevance,
			Excerpt:   c.Excerpt,
		}
	}

	resp := queryResponse{
		RunID:     res.RunID,
		Query:     res.Query,
		Response:  res.Response,
		Citations: citations,
		Guardrails: guardrailDTO{
			PIIRedactions:   res.Guardrails.PIIRedactions,
			PolicyStripped:  res.Guardrails.PolicyStripped,
			DisclaimerAdded: res.Guardrails.DisclaimerAdded,
			Warnings:        res.Guardrails.Warnings,
		},
		Warnings: res.Warnings,
		Model:    res.Model,
		Usage: usageDTO{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			EmbeddingTokens:  res.Usage.EmbeddingTokens,
			TotalTokens:      res.Usage.Total(),
		},
		Attempts: res.Attempts,
		Timings: timingsDTO{
			RetrievalMs:  res.Timings.Retrieval.Milliseconds(),
			GenerationMs: res.Timings.Generation.Milliseconds(),
			EvaluationMs: res.Timings.Evaluation.Milliseconds(),
			GuardrailsMs: res.Timings.Guardrails.Milliseconds(),
			TotalMs:      res.Timings.Total.Milliseconds(),
		},
	}
	if res.Evaluation != nil {
		resp.Evaluation = &evaluationDTO{
			HallucinationScore:  res.Evaluation.HallucinationScore,
			FactualGrounding:    res.Evaluation.FactualGrounding,
			SemanticConsistency: res.Evaluation.SemanticConsistency,
			ConfidenceScore:     res.Evaluation.ConfidenceScore,
			Status:              string(res.Evaluation.Status),
			Flags:               res.Evaluation.Flags,
			Reasoning:           res.Evaluation.Reasoning,
		}
	}
	return resp
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": "index unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
func safeDomainMessage(err error) string {
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage + ": " + stageErr.Reason
	}
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrCapacity,
		domain.ErrGuardrailBlocked,
		domain.ErrInvalidCitation,
		domain.ErrRetrieval,
		domain.ErrGeneration,
		domain.ErrModelProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
