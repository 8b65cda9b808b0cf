// Package config loads runtime configuration for the consultation services.
//
// Configuration is read from an optional YAML file and then overridden by
// environment variables, so containerized deployments can run without a file
// at all. Both the worker and the HTTP gateway share this package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-consilium/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Temporal holds connection settings for the Temporal cluster.
type Temporal struct {
	HostPort  string `yaml:"host_port"  validate:"required"`
	Namespace string `yaml:"namespace"  validate:"required"`
	TaskQueue string `yaml:"task_queue" validate:"required"`
}

// HTTP holds settings for the gateway server.
type HTTP struct {
	Addr            string        `yaml:"addr"             validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// LLM holds provider settings for specialist consultations.
type LLM struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"    validate:"required"`
}

// Panel optionally overrides the built-in role weights and risk keywords.
// Omitted entries keep their defaults.
type Panel struct {
	RoleWeights  map[string]float64             `yaml:"role_weights"`
	RiskKeywords map[string]map[string][]string `yaml:"risk_keywords"`
}

// Config is the root configuration for both binaries.
type Config struct {
	Temporal Temporal `yaml:"temporal"`
	HTTP     HTTP     `yaml:"http"`
	LLM      LLM      `yaml:"llm"`
	Panel    Panel    `yaml:"panel"`
}

// Default returns the configuration used when no file or environment
// overrides are present. The LLM base URL points at the OpenAI-compatible
// endpoint most local gateways expose.
func Default() Config {
	return Config{
		Temporal: Temporal{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "consultation-queue",
		},
		HTTP: HTTP{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		LLM: LLM{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or the file does not exist), then
// environment variables. The result is validated before being returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Missing file is fine; env and defaults carry the config.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validatePanel(cfg.Panel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values with CONSILIUM_* environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Temporal.HostPort, "CONSILIUM_TEMPORAL_HOST_PORT")
	setString(&cfg.Temporal.Namespace, "CONSILIUM_TEMPORAL_NAMESPACE")
	setString(&cfg.Temporal.TaskQueue, "CONSILIUM_TEMPORAL_TASK_QUEUE")
	setString(&cfg.HTTP.Addr, "CONSILIUM_HTTP_ADDR")
	setDuration(&cfg.HTTP.ShutdownTimeout, "CONSILIUM_HTTP_SHUTDOWN_TIMEOUT")
	setString(&cfg.LLM.BaseURL, "CONSILIUM_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "CONSILIUM_LLM_API_KEY")
	setString(&cfg.LLM.Model, "CONSILIUM_LLM_MODEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	// Bare integers are treated as seconds for operator convenience.
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}

// validatePanel rejects overrides that name unknown roles or categories, or
// carry out-of-range weights. Catching typos here beats silently falling back
// to the default weight at consensus time.
func validatePanel(p Panel) error {
	for role, weight := range p.RoleWeights {
		if !domain.IsValidSpecialistRole(domain.SpecialistRole(role)) {
			return fmt.Errorf("invalid configuration: unknown specialist role %q in panel.role_weights", role)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("invalid configuration: weight %v for role %q must be in [0, 1]", weight, role)
		}
	}
	for category, byRole := range p.RiskKeywords {
		if !validRiskCategory(category) {
			return fmt.Errorf("invalid configuration: unknown risk category %q in panel.risk_keywords", category)
		}
		for role := range byRole {
			if !domain.IsValidSpecialistRole(domain.SpecialistRole(role)) {
				return fmt.Errorf("invalid configuration: unknown specialist role %q in panel.risk_keywords[%s]", role, category)
			}
		}
	}
	return nil
}

func validRiskCategory(category string) bool {
	for _, c := range domain.AllRiskCategories() {
		if string(c) == category {
			return true
		}
	}
	return false
}

// RolePolicy merges the panel overrides onto the default policy. Weights are
// replaced per role; keyword overrides replace the whole keyword list for the
// named category/role pair.
func (c Config) RolePolicy() domain.RolePolicy {
	policy := domain.DefaultRolePolicy()

	for role, weight := range c.Panel.RoleWeights {
		policy.Weights[domain.SpecialistRole(role)] = weight
	}
	for category, byRole := range c.Panel.RiskKeywords {
		cat := domain.RiskCategory(category)
		if policy.Keywords[cat] == nil {
			policy.Keywords[cat] = make(map[domain.SpecialistRole][]string)
		}
		for role, keywords := range byRole {
			policy.Keywords[cat][domain.SpecialistRole(role)] = keywords
		}
	}
	return policy
}
