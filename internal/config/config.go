// Package config loads and validates the process-wide configuration that
// sits above internal/database's own Config (spec §9: issuer identity,
// certificate validity, worker sweep tunables, and the LLM-judge client),
// grounded on the teacher's pkg/config/config.go (a single umbrella struct
// returned by one Initialize/Load entry point) and pkg/config/validator.go
// (a Validator with one validateX method per concern, fail-fast).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/trustfabric/agentca/internal/database"
)

// Config is the umbrella configuration object passed to cmd/agentca's
// service wiring.
type Config struct {
	HTTPAddr     string
	DashboardDir string

	Database database.Config

	// CA identity and certificate lifecycle.
	CAIssuer            string
	CertificateValidity time.Duration

	// Worker sweep tunables (internal/worker.Config).
	SweepInterval       time.Duration
	SessionIdleTimeout  time.Duration
	TraceRetention      time.Duration
	EvaluationRetention time.Duration

	// LLM-judge client (internal/grader.JudgeClient), empty BaseURL disables
	// the judge grader in favor of the deterministic/safety-fallback path.
	JudgeBaseURL    string
	JudgeAPIKey     string
	JudgeModel      string
	JudgeTimeout    time.Duration
	JudgeMaxRetries uint64

	// Evaluation concurrency ceiling (MAX_CONCURRENT_TASKS). It is loaded and
	// validated here but not passed to the evaluation engine; each run's
	// concurrency comes from its own EvaluationConfig.Parallel.
	MaxConcurrentTasks int64
}

// Stats summarises a loaded Config for startup logging.
type Stats struct {
	HTTPAddr           string
	CertificateValidity time.Duration
	JudgeEnabled       bool
}

// Stats returns a startup-log-friendly summary.
func (c *Config) Stats() Stats {
	return Stats{
		HTTPAddr:            c.HTTPAddr,
		CertificateValidity: c.CertificateValidity,
		JudgeEnabled:        c.JudgeBaseURL != "",
	}
}

// Load reads configuration from the environment (after cmd/agentca has
// loaded a .env file via godotenv, mirroring the teacher's
// cmd/tarsy/main.go), applies defaults, and validates the result.
func Load() (*Config, error) {
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	certValidity, err := parseDuration("CERTIFICATE_VALIDITY", "2160h") // 90 days
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parseDuration("WORKER_SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	idleTimeout, err := parseDuration("TACP_SESSION_IDLE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	traceRetention, err := parseDuration("TRACE_RETENTION", "720h") // 30 days
	if err != nil {
		return nil, err
	}
	evalRetention, err := parseDuration("EVALUATION_RETENTION", "2160h") // 90 days
	if err != nil {
		return nil, err
	}
	judgeTimeout, err := parseDuration("JUDGE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	maxRetries, err := strconv.ParseUint(getEnvOrDefault("JUDGE_MAX_RETRIES", "3"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JUDGE_MAX_RETRIES: %w", err)
	}
	maxConcurrent, err := strconv.ParseInt(getEnvOrDefault("MAX_CONCURRENT_TASKS", "4"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_TASKS: %w", err)
	}

	cfg := &Config{
		HTTPAddr:            getEnvOrDefault("HTTP_ADDR", ":8080"),
		DashboardDir:        os.Getenv("DASHBOARD_DIR"),
		Database:            dbCfg,
		CAIssuer:            getEnvOrDefault("CA_ISSUER", "agentca-root-v1"),
		CertificateValidity: certValidity,
		SweepInterval:       sweepInterval,
		SessionIdleTimeout:  idleTimeout,
		TraceRetention:      traceRetention,
		EvaluationRetention: evalRetention,
		JudgeBaseURL:        os.Getenv("JUDGE_BASE_URL"),
		JudgeAPIKey:         os.Getenv("JUDGE_API_KEY"),
		JudgeModel:          getEnvOrDefault("JUDGE_MODEL", "gpt-4o-mini"),
		JudgeTimeout:        judgeTimeout,
		JudgeMaxRetries:     maxRetries,
		MaxConcurrentTasks:  maxConcurrent,
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(key, defaultVal string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, defaultVal))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
