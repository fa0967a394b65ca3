package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DOCKERBAR_CONFIG"

// Config holds the application configuration
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Terminal TerminalConfig `yaml:"terminal"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig selects and locates the container engine.
type EngineConfig struct {
	// Path of the engine executable.
	Path string `yaml:"path"`
	// Backend is "cli" (spawn the engine executable) or "sdk" (engine API).
	Backend    string   `yaml:"backend"`
	ListFormat string   `yaml:"list_format"`
	ExtraPath  []string `yaml:"extra_path"`
	// Machine, when set, names a docker-machine whose environment is loaded
	// before the engine is invoked.
	Machine     string `yaml:"machine"`
	MachinePath string `yaml:"machine_path"`
}

// RemoteConfig runs the engine on another host over SSH when Host is set.
type RemoteConfig struct {
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path"`
	KnownHosts string `yaml:"known_hosts"`
	// InsecureIgnoreHostKey skips host key verification.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key"`
}

type SyncConfig struct {
	HideUnknown   bool          `yaml:"hide_unknown"`
	PatchEvents   bool          `yaml:"patch_events"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	ListTimeout   time.Duration `yaml:"list_timeout"`
	Workers       int           `yaml:"workers"`
}

type TerminalConfig struct {
	// Command is the argv that opens a terminal; "%s" is replaced by the
	// command line to run.
	Command []string `yaml:"command"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IsRemote reports whether the engine runs on another host.
func (c *Config) IsRemote() bool {
	return c.Remote.Host != ""
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:        "/usr/local/bin/docker",
			Backend:     "cli",
			ListFormat:  "json",
			ExtraPath:   []string{"/usr/local/bin", "/opt/homebrew/bin"},
			MachinePath: "/usr/local/bin/docker-machine",
		},
		Remote: RemoteConfig{
			KnownHosts: "~/.ssh/known_hosts",
		},
		Sync: SyncConfig{
			PatchEvents:   true,
			ActionTimeout: 60 * time.Second,
			ListTimeout:   15 * time.Second,
			Workers:       4,
		},
		HTTP: HTTPConfig{Listen: "127.0.0.1:7070"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// configPath returns the path to the config file
func configPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return expandPath(p)
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "dockerbar", "config.yaml")
}

// ConfigPath returns the path where the config file should be located
func ConfigPath() string {
	return configPath()
}

// Load reads the configuration from path, or from ConfigPath when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = configPath()
	}
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	cfg.Engine.Path = expandPath(cfg.Engine.Path)
	cfg.Engine.MachinePath = expandPath(cfg.Engine.MachinePath)
	for i, p := range cfg.Engine.ExtraPath {
		cfg.Engine.ExtraPath[i] = expandPath(p)
	}
	cfg.Remote.KeyPath = expandPath(cfg.Remote.KeyPath)
	cfg.Remote.KnownHosts = expandPath(cfg.Remote.KnownHosts)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks enumerated fields and fills zero durations and counts with
// defaults.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case "cli", "sdk":
	default:
		return errors.Errorf("engine.backend must be cli or sdk, got %q", c.Engine.Backend)
	}
	switch c.Engine.ListFormat {
	case "csv", "json":
	default:
		return errors.Errorf("engine.list_format must be csv or json, got %q", c.Engine.ListFormat)
	}
	if c.Engine.Backend == "sdk" && c.IsRemote() {
		return errors.New("remote.host requires engine.backend cli")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	def := DefaultConfig()
	if c.Sync.ActionTimeout <= 0 {
		c.Sync.ActionTimeout = def.Sync.ActionTimeout
	}
	if c.Sync.ListTimeout <= 0 {
		c.Sync.ListTimeout = def.Sync.ListTimeout
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = def.Sync.Workers
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
