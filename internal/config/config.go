package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/finsight-ai/finsight/internal/domain"
)

// Config holds the finsight API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Model      ModelConfig      `yaml:"model"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds retrieval index connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
}

// ModelConfig holds language-model endpoint settings.
type ModelConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	CompletionModel string  `yaml:"completion_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float32 `yaml:"temperature"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheTTLh  int    `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// RetrievalConfig holds fusion retriever settings.
type RetrievalConfig struct {
	DefaultTopK     int `yaml:"default_top_k"`
	OverfetchFactor int `yaml:"overfetch_factor"` // per-ranker k multiplier before fusion
}

// EvaluationConfig holds quality-gate thresholds and signal weights.
type EvaluationConfig struct {
	RegenThreshold     float64  `yaml:"regen_threshold"`
	FailThreshold      float64  `yaml:"fail_threshold"`
	ConfidenceFloor    float64  `yaml:"confidence_floor"`
	ConsistencySamples int      `yaml:"consistency_samples"`
	SampleTemperature  float32  `yaml:"sample_temperature"`
	JudgeWeight        *float64 `yaml:"judge_weight"`
	EntityWeight       *float64 `yaml:"entity_weight"`
	SemanticWeight     *float64 `yaml:"semantic_weight"`
}

// WorkflowConfig holds orchestrator budgets and admission settings.
type WorkflowConfig struct {
	MaxRegenerationAttempts int `yaml:"max_regeneration_attempts"`
	PoolSize                int `yaml:"pool_size"`
	QueueDepth              int `yaml:"queue_depth"`
	CallTimeoutSec          int `yaml:"call_timeout_sec"`
}

// GuardrailsConfig toggles the output guardrail collaborators.
type GuardrailsConfig struct {
	PIIRedaction  bool `yaml:"pii_redaction"`
	ContentFilter bool `yaml:"content_filter"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	defEval := domain.DefaultEvalConfig()

	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "finsight:"
	}
	if c.Database.IndexName == "" {
		c.Database.IndexName = "filings"
	}
	if c.Model.CompletionModel == "" {
		c.Model.CompletionModel = "gpt-4o"
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 2048
	}
	if c.Model.RateLimitBurst <= 0 {
		c.Model.RateLimitBurst = 1
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = 5
	}
	if c.Retrieval.OverfetchFactor <= 0 {
		c.Retrieval.OverfetchFactor = 2
	}
	if c.Evaluation.RegenThreshold <= 0 {
		c.Evaluation.RegenThreshold = defEval.RegenThreshold
	}
	if c.Evaluation.FailThreshold <= 0 {
		c.Evaluation.FailThreshold = defEval.FailThreshold
	}
	if c.Evaluation.ConfidenceFloor <= 0 {
		c.Evaluation.ConfidenceFloor = defEval.ConfidenceFloor
	}
	if c.Evaluation.ConsistencySamples <= 0 {
		c.Evaluation.ConsistencySamples = defEval.ConsistencySamples
	}
	if c.Evaluation.SampleTemperature <= 0 {
		c.Evaluation.SampleTemperature = defEval.SampleTemperature
	}
	if c.Workflow.MaxRegenerationAttempts < 0 {
		c.Workflow.MaxRegenerationAttempts = 0
	}
	if c.Workflow.MaxRegenerationAttempts == 0 {
		c.Workflow.MaxRegenerationAttempts = 2
	}
	if c.Workflow.PoolSize <= 0 {
		c.Workflow.PoolSize = 16
	}
	if c.Workflow.QueueDepth <= 0 {
		c.Workflow.QueueDepth = 32
	}
	if c.Workflow.CallTimeoutSec <= 0 {
		c.Workflow.CallTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Evaluation.RegenThreshold >= c.Evaluation.FailThreshold {
		return fmt.Errorf(
			"evaluation.regen_threshold (%g) must be below evaluation.fail_threshold (%g)",
			c.Evaluation.RegenThreshold, c.Evaluation.FailThreshold,
		)
	}
	for _, w := range []*float64{c.Evaluation.JudgeWeight, c.Evaluation.EntityWeight, c.Evaluation.SemanticWeight} {
		if w != nil && (*w < 0 || *w > 1) {
			return fmt.Errorf("evaluation signal weights must be within [0,1]")
		}
	}
	return nil
}

// EvalConfig assembles the immutable evaluation tuning threaded through runs.
func (c *Config) EvalConfig() domain.EvalConfig {
	ec := domain.DefaultEvalConfig()
	ec.RegenThreshold = c.Evaluation.RegenThreshold
	ec.FailThreshold = c.Evaluation.FailThreshold
	ec.ConfidenceFloor = c.Evaluation.ConfidenceFloor
	ec.ConsistencySamples = c.Evaluation.ConsistencySamples
	ec.SampleTemperature = c.Evaluation.SampleTemperature
	if c.Evaluation.JudgeWeight != nil {
		ec.Hallucination.Judge = *c.Evaluation.JudgeWeight
	}
	if c.Evaluation.EntityWeight != nil {
		ec.Hallucination.Entity = *c.Evaluation.EntityWeight
	}
	if c.Evaluation.SemanticWeight != nil {
		ec.Hallucination.Semantic = *c.Evaluation.SemanticWeight
	}
	return ec
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
