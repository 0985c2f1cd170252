package config

import "fmt"

// Validator validates a Config comprehensively, fail-fast, mirroring the
// teacher's pkg/config/validator.go (one validateX per concern, checked in
// dependency order).
type Validator struct {
	cfg *Config
}

// NewValidator builds a Validator for cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every check, stopping at the first failure.
func (v *Validator) ValidateAll() error {
	if err := v.cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateHTTP(); err != nil {
		return fmt.Errorf("http validation failed: %w", err)
	}
	if err := v.validateCertificate(); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}
	if err := v.validateWorker(); err != nil {
		return fmt.Errorf("worker validation failed: %w", err)
	}
	if err := v.validateJudge(); err != nil {
		return fmt.Errorf("judge validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateHTTP() error {
	if v.cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	return nil
}

func (v *Validator) validateCertificate() error {
	if v.cfg.CAIssuer == "" {
		return fmt.Errorf("CA_ISSUER must not be empty")
	}
	if v.cfg.CertificateValidity <= 0 {
		return fmt.Errorf("CERTIFICATE_VALIDITY must be positive, got %v", v.cfg.CertificateValidity)
	}
	return nil
}

func (v *Validator) validateWorker() error {
	if v.cfg.SweepInterval <= 0 {
		return fmt.Errorf("WORKER_SWEEP_INTERVAL must be positive, got %v", v.cfg.SweepInterval)
	}
	if v.cfg.SessionIdleTimeout <= 0 {
		return fmt.Errorf("TACP_SESSION_IDLE_TIMEOUT must be positive, got %v", v.cfg.SessionIdleTimeout)
	}
	if v.cfg.TraceRetention <= 0 {
		return fmt.Errorf("TRACE_RETENTION must be positive, got %v", v.cfg.TraceRetention)
	}
	if v.cfg.EvaluationRetention <= 0 {
		return fmt.Errorf("EVALUATION_RETENTION must be positive, got %v", v.cfg.EvaluationRetention)
	}
	return nil
}

func (v *Validator) validateJudge() error {
	if v.cfg.JudgeBaseURL == "" {
		return nil // judge grading disabled, deterministic/safety-fallback only
	}
	if v.cfg.JudgeTimeout <= 0 {
		return fmt.Errorf("JUDGE_TIMEOUT must be positive when JUDGE_BASE_URL is set, got %v", v.cfg.JudgeTimeout)
	}
	if v.cfg.MaxConcurrentTasks < 1 {
		return fmt.Errorf("MAX_CONCURRENT_TASKS must be at least 1, got %d", v.cfg.MaxConcurrentTasks)
	}
	return nil
}
