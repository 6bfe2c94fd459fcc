// Package config provides configuration management for agentmux-core.
// It loads from environment variables, an optional config file, and
// defaults, following the teacher's viper-based layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every configuration section for agentmux-core.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Session  SessionConfig  `mapstructure:"session"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Docker   DockerConfig   `mapstructure:"docker"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

// ServerConfig holds HTTP/WS facade configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	WebPort      int    `mapstructure:"webPort"`
	MCPPort      int    `mapstructure:"mcpPort"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // seconds
	// RateLimitPerSecond bounds the token-bucket rate the RateLimit
	// middleware enforces per process; 0 disables rate limiting entirely.
	RateLimitPerSecond int `mapstructure:"rateLimitPerSecond"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// SessionConfig holds Session Driver (C1) configuration.
type SessionConfig struct {
	// HomeDir is the process-wide snapshot home, default ~/.agentmux.
	HomeDir string `mapstructure:"homeDir"`
	// TmuxBinary is the multiplexer executable invoked for session control.
	TmuxBinary string `mapstructure:"tmuxBinary"`
	// MaxConcurrentCreates bounds how many sessions the Supervisor creates at once.
	MaxConcurrentCreates int `mapstructure:"maxConcurrentCreates"`
	// CreateBatchGapMillis is the pause between creation batches.
	CreateBatchGapMillis int `mapstructure:"createBatchGapMillis"`
	// CommandTimeoutSeconds bounds any single multiplexer invocation.
	CommandTimeoutSeconds int `mapstructure:"commandTimeoutSeconds"`
}

// AgentConfig holds Supervisor/Activity Monitor configuration.
type AgentConfig struct {
	// EscalationTimeoutSeconds is the Supervisor's overall init deadline.
	EscalationTimeoutSeconds int `mapstructure:"escalationTimeoutSeconds"`
	// RegistrationFreshnessSeconds bounds how old a runtime ping may be.
	RegistrationFreshnessSeconds int `mapstructure:"registrationFreshnessSeconds"`
	// DefaultCheckInterval is the default check-in cadence, in minutes.
	DefaultCheckInterval int `mapstructure:"defaultCheckInterval"`
	// AutoCommitInterval is the recurring commit-reminder cadence, in minutes.
	AutoCommitInterval int `mapstructure:"autoCommitInterval"`
	// ActivityPollSeconds is the Activity Monitor's tick interval.
	ActivityPollSeconds int `mapstructure:"activityPollSeconds"`
	// ActivityCaptureLines is how many trailing pane lines are captured per poll.
	ActivityCaptureLines int `mapstructure:"activityCaptureLines"`
}

// WorkflowConfig holds Workflow Engine (C8) configuration.
type WorkflowConfig struct {
	ConfigDir string `mapstructure:"configDir"`
	// TPMFileGatingEnabled ships the file-gated TPM workflow path disabled
	// by default, per spec.md's Open Question.
	TPMFileGatingEnabled bool `mapstructure:"tpmFileGatingEnabled"`
}

// DockerConfig is carried from the teacher's stack but left dormant: no
// SPEC_FULL component dials a Docker daemon (see DESIGN.md).
type DockerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
}

// NATSConfig is carried from the teacher's stack but left dormant: spec.md's
// Non-goals exclude distributed operation, so no NATS transport is dialed.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration from environment variables, an optional
// config.yaml, and defaults.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath is Load with an extra search path for config.yaml.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/agentmux/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Session.HomeDir = expandHome(cfg.Session.HomeDir)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.webPort", 3000)
	v.SetDefault("server.mcpPort", 3001)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.rateLimitPerSecond", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("session.homeDir", "~/.agentmux")
	v.SetDefault("session.tmuxBinary", "tmux")
	v.SetDefault("session.maxConcurrentCreates", 2)
	v.SetDefault("session.createBatchGapMillis", 1000)
	v.SetDefault("session.commandTimeoutSeconds", 10)

	v.SetDefault("agent.escalationTimeoutSeconds", 90)
	v.SetDefault("agent.registrationFreshnessSeconds", 60)
	v.SetDefault("agent.defaultCheckInterval", 30)
	v.SetDefault("agent.autoCommitInterval", 30)
	v.SetDefault("agent.activityPollSeconds", 10)
	v.SetDefault("agent.activityCaptureLines", 50)

	v.SetDefault("workflow.configDir", "./config")
	v.SetDefault("workflow.tpmFileGatingEnabled", false)

	v.SetDefault("docker.enabled", false)
	v.SetDefault("docker.host", "")
	v.SetDefault("nats.url", "")
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.WebPort <= 0 || cfg.Server.WebPort > 65535 {
		errs = append(errs, "server.webPort must be between 1 and 65535")
	}
	if cfg.Server.RateLimitPerSecond < 0 {
		errs = append(errs, "server.rateLimitPerSecond must not be negative")
	}
	if cfg.Session.HomeDir == "" {
		errs = append(errs, "session.homeDir must not be empty")
	}
	if cfg.Session.MaxConcurrentCreates <= 0 {
		errs = append(errs, "session.maxConcurrentCreates must be positive")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
