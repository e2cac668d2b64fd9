package config

import "time"

// Config represents the complete sitegen configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	LLM      LLMConfig      `yaml:"llm"`
	Generate GenerateConfig `yaml:"generate"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig defines SQLite storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP server settings.
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// SandboxConfig defines the connection to the sandbox provider.
type SandboxConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	TemplateID    string        `yaml:"template_id"`
	PreviewPort   int           `yaml:"preview_port"`
	ProjectPath   string        `yaml:"project_path"`
	CreateTimeout time.Duration `yaml:"create_timeout"`
}

// LLMConfig defines the LLM provider settings.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GenerateConfig defines generation behavior.
type GenerateConfig struct {
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}
