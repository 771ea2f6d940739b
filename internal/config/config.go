// Package config aggregates kotadb's runtime configuration: the embedded
// store location, the RPC transport's allowed origins, ADW orchestrator
// tuning, and the category logger's settings. Config is loaded from an
// optional .kotadb/config.yaml and then overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"kotadb/internal/logging"
)

// Config holds all kotadb configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	RPC     RPCConfig     `yaml:"rpc"`
	ADW     ADWConfig     `yaml:"adw"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the embedded SQLite store.
type StoreConfig struct {
	// Path is the database file path, relative to CWD if not absolute.
	Path string `yaml:"path"`
	// CWD is the workspace root the store resolves relative paths against.
	CWD string `yaml:"cwd"`
}

// RPCConfig configures the stdio/HTTP RPC transport.
type RPCConfig struct {
	// AllowedOrigins lists origins the optional HTTP front-end's CORS
	// middleware accepts. Empty means no cross-origin requests.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ADWConfig configures the autonomous developer workflow orchestrator.
type ADWConfig struct {
	MaxParallelAgents int           `yaml:"max_parallel_agents"`
	RetryBackoffBase  time.Duration `yaml:"retry_backoff_base"`
	RetryBackoffMax   time.Duration `yaml:"retry_backoff_max"`
	GithubToken       string        `yaml:"github_token"`
	AnthropicAPIKey   string        `yaml:"anthropic_api_key"`
	BaseBranch        string        `yaml:"base_branch"`
	// AgentBinary is the external coding-agent CLI adw.CLIAgent shells out
	// to for each phase (default "claude" if empty).
	AgentBinary string `yaml:"agent_binary"`
}

// QueryConfig configures the query layer's domain-key-files lookup.
type QueryConfig struct {
	// DomainRules maps a domain name to the glob patterns (matched against
	// File.Path) that belong to it, used by get_domain_key_files. This is
	// injected configuration, not a compiled-in table, since the
	// domain-to-path mapping is external to the core.
	DomainRules map[string][]string `yaml:"domain_rules"`
}

// LoggingConfig configures the category file logger in internal/logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns kotadb's zero-config defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: ".kotadb/kota.db",
			CWD:  ".",
		},
		RPC: RPCConfig{
			AllowedOrigins: nil,
		},
		ADW: ADWConfig{
			MaxParallelAgents: 3,
			RetryBackoffBase:  5 * time.Second,
			RetryBackoffMax:   5 * time.Minute,
			BaseBranch:        "develop",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if
// the file does not exist, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("Failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("Config loaded: store=%s base_branch=%s", cfg.Store.Path, cfg.ADW.BaseBranch)

	return cfg, nil
}

// Save persists configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides, in precedence
// order: explicit env var wins over a YAML value wins over the built-in
// default (the zero value left by DefaultConfig/yaml.Unmarshal).
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("KOTADB_PATH"); path != "" {
		c.Store.Path = path
	}
	if cwd := os.Getenv("KOTADB_CWD"); cwd != "" {
		c.Store.CWD = cwd
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.ADW.GithubToken = token
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.ADW.AnthropicAPIKey = key
	}
	if branch := os.Getenv("KOTADB_BASE_BRANCH"); branch != "" {
		c.ADW.BaseBranch = branch
	}
	if binary := os.Getenv("KOTADB_AGENT_BINARY"); binary != "" {
		c.ADW.AgentBinary = binary
	}
	if n := os.Getenv("ADW_MAX_PARALLEL_AGENTS"); n != "" {
		if parsed, err := parsePositiveInt(n); err == nil {
			c.ADW.MaxParallelAgents = parsed
		}
	}
	if d := os.Getenv("KOTADB_RETRY_BACKOFF_BASE"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			c.ADW.RetryBackoffBase = parsed
		}
	}
	if d := os.Getenv("KOTADB_RETRY_BACKOFF_MAX"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			c.ADW.RetryBackoffMax = parsed
		}
	}

	if os.Getenv("KOTADB_DEBUG") != "" {
		c.Logging.DebugMode = true
	}
	if level := os.Getenv("KOTADB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive: %s", s)
	}
	return n, nil
}

// ResolvedStorePath returns the store's database path resolved against CWD
// when Path is not already absolute.
func (c *Config) ResolvedStorePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Store.CWD, c.Store.Path)
}

// GetRetryBackoffBase returns the configured retry base, defaulting to 5s.
func (c *Config) GetRetryBackoffBase() time.Duration {
	if c.ADW.RetryBackoffBase <= 0 {
		return 5 * time.Second
	}
	return c.ADW.RetryBackoffBase
}

// GetRetryBackoffMax returns the configured retry ceiling, defaulting to 5m.
func (c *Config) GetRetryBackoffMax() time.Duration {
	if c.ADW.RetryBackoffMax <= 0 {
		return 5 * time.Minute
	}
	return c.ADW.RetryBackoffMax
}
