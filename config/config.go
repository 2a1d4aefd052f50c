// Package config loads engine configuration from a YAML file with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AgentConfig describes one conversation participant.
type AgentConfig struct {
	Name     string `yaml:"name"`
	Persona  string `yaml:"persona"`
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
}

// ConversationConfig holds the turn loop settings.
type ConversationConfig struct {
	MaxTurns          int      `yaml:"max_turns"`
	TurnInterval      Duration `yaml:"turn_interval"`
	MinTurnsBeforeEnd int      `yaml:"min_turns_before_end"`
	AutoConfirmEnd    bool     `yaml:"auto_confirm_end"`
	TranscriptDir     string   `yaml:"transcript_dir"`
	MaxResponseTokens int      `yaml:"max_response_tokens"`
	RepetitionWindow  int      `yaml:"repetition_window"`
}

// BudgetConfig holds the context budget settings.
type BudgetConfig struct {
	MaxTokens        int     `yaml:"max_tokens"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	TrimTargetRatio  float64 `yaml:"trim_target_ratio"`
	KeepRecent       int     `yaml:"keep_recent"`
	MaxTrims         int     `yaml:"max_trims"`
}

// SearchConfig holds web search settings.
type SearchConfig struct {
	Enabled    bool `yaml:"enabled"`
	Interval   int  `yaml:"interval"`
	MaxResults int  `yaml:"max_results"`
}

// ToolsConfig holds tool adapter settings.
type ToolsConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interval  int      `yaml:"interval"`
	Workspace string   `yaml:"workspace"`
	Timeout   Duration `yaml:"timeout"`
}

// Credentials are read from the environment only, never from the file.
type Credentials struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration.
type Config struct {
	Agents       []AgentConfig      `yaml:"agents"`
	Conversation ConversationConfig `yaml:"conversation"`
	Budget       BudgetConfig       `yaml:"budget"`
	Search       SearchConfig       `yaml:"search"`
	Tools        ToolsConfig        `yaml:"tools"`
	Logging      LoggingConfig      `yaml:"logging"`
	Credentials  Credentials        `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Agents: []AgentConfig{
			{Name: "Nova", Persona: "You are a curious optimist who looks for what could go right.", Model: "claude-sonnet-4-5"},
			{Name: "Flint", Persona: "You are a rigorous skeptic who stress-tests every claim.", Model: "claude-sonnet-4-5"},
		},
		Conversation: ConversationConfig{
			TurnInterval:      Duration(2 * time.Second),
			MinTurnsBeforeEnd: 10,
			TranscriptDir:     "transcripts",
			MaxResponseTokens: 2048,
			RepetitionWindow:  6,
		},
		Budget: BudgetConfig{
			MaxTokens:        150000,
			WarningThreshold: 0.8,
			TrimTargetRatio:  0.53,
			KeepRecent:       10,
			MaxTrims:         3,
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		Tools: ToolsConfig{
			Timeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults, then
// applies environment overrides for credentials.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the engine depends on.
func (c *Config) Validate() error {
	if len(c.Agents) != 2 {
		return fmt.Errorf("config: exactly two agents required, got %d", len(c.Agents))
	}
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("config: agent %d has no name", i)
		}
		if a.Model == "" {
			return fmt.Errorf("config: agent %q has no model", a.Name)
		}
	}
	if c.Agents[0].Name == c.Agents[1].Name {
		return fmt.Errorf("config: agents must have distinct names")
	}
	if c.Budget.MaxTokens <= 0 {
		return fmt.Errorf("config: budget max_tokens must be positive")
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.WarningThreshold >= 1 {
		return fmt.Errorf("config: warning_threshold must be in (0, 1)")
	}
	if c.Budget.TrimTargetRatio <= 0 || c.Budget.TrimTargetRatio >= 1 {
		return fmt.Errorf("config: trim_target_ratio must be in (0, 1)")
	}
	return nil
}
