package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "sitegen"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/sitegen.db"
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = "127.0.0.1:3003"
	}
	if cfg.Sandbox.BaseURL == "" {
		cfg.Sandbox.BaseURL = "https://api.e2b.dev"
	}
	if cfg.Sandbox.PreviewPort == 0 {
		cfg.Sandbox.PreviewPort = 5173
	}
	if cfg.Sandbox.ProjectPath == "" {
		cfg.Sandbox.ProjectPath = "/home/user/react-app"
	}
	if cfg.Sandbox.CreateTimeout == 0 {
		cfg.Sandbox.CreateTimeout = 10 * time.Minute
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
}

func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Sandbox.APIKey == "" {
		return fmt.Errorf("sandbox.api_key is required")
	}
	if err := checkUnresolvedEnv("sandbox.api_key", cfg.Sandbox.APIKey); err != nil {
		return err
	}
	if cfg.Sandbox.TemplateID == "" {
		return fmt.Errorf("sandbox.template_id is required")
	}
	if cfg.Sandbox.PreviewPort <= 0 || cfg.Sandbox.PreviewPort > 65535 {
		return fmt.Errorf("sandbox.preview_port must be a valid port (got %d)", cfg.Sandbox.PreviewPort)
	}
	if cfg.Sandbox.CreateTimeout <= 0 {
		return fmt.Errorf("sandbox.create_timeout must be positive")
	}
	if cfg.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if cfg.LLM.Provider != "ollama" {
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required")
		}
		if err := checkUnresolvedEnv("llm.api_key", cfg.LLM.APIKey); err != nil {
			return err
		}
	}
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	return nil
}

// checkUnresolvedEnv rejects values that still contain an unexpanded ${VAR}.
func checkUnresolvedEnv(field, value string) error {
	if envVarPattern.MatchString(value) {
		matches := envVarPattern.FindStringSubmatch(value)
		if len(matches) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
		}
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
