package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds resolved settings for one bot process. Values come from
// defaults, then the YAML config file, then environment overrides.
type Config struct {
	Family string `yaml:"family"`
	Lang   string `yaml:"lang"`

	// Throttle bounds, in seconds in the file.
	MinThrottleSeconds float64 `yaml:"min_throttle"`
	MaxThrottleSeconds float64 `yaml:"max_throttle"`

	// Socket timeouts, in seconds in the file.
	ConnectTimeoutSeconds float64 `yaml:"connect_timeout"`
	ReadTimeoutSeconds    float64 `yaml:"read_timeout"`

	UserAgentFormat string            `yaml:"user_agent_format"`
	ExtraHeaders    map[string]string `yaml:"extra_headers"`
	Username        string            `yaml:"username"`

	// Authenticate maps a hostname pattern ("en.wikipedia.org" or
	// "*.wikipedia.org") to a 2-element user/password list or a
	// 4-element OAuth 1.0a list (consumer key, consumer secret, access
	// token, access secret).
	Authenticate map[string][]string `yaml:"authenticate"`

	// IgnoreSSLErrors disables TLS certificate verification for the
	// configured site. Off by default; only for wikis behind broken or
	// self-signed certificates.
	IgnoreSSLErrors bool `yaml:"ignore_ssl_errors"`

	ColorizedOutput bool `yaml:"colorized_output"`
	VerboseOutput   int  `yaml:"verbose_output"`

	DataDir string `yaml:"data_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Family:                "wikipedia",
		Lang:                  "en",
		MinThrottleSeconds:    1,
		MaxThrottleSeconds:    10,
		ConnectTimeoutSeconds: 10,
		ReadTimeoutSeconds:    45,
		ColorizedOutput:       true,
		DataDir:               defaultDataDir(),
	}
}

// Load reads the config file at path (skipped silently if it does not
// exist), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file is fine; defaults apply.
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BOTKIT_FAMILY"); v != "" {
		cfg.Family = v
	}
	if v := os.Getenv("BOTKIT_LANG"); v != "" {
		cfg.Lang = v
	}
	if v := os.Getenv("BOTKIT_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("BOTKIT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BOTKIT_VERBOSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VerboseOutput = n
		}
	}
}

func (c Config) validate() error {
	if c.MinThrottleSeconds < 0 {
		return fmt.Errorf("config: min_throttle must not be negative, got %v", c.MinThrottleSeconds)
	}
	if c.MaxThrottleSeconds < c.MinThrottleSeconds {
		return fmt.Errorf("config: max_throttle (%v) below min_throttle (%v)", c.MaxThrottleSeconds, c.MinThrottleSeconds)
	}
	if c.ConnectTimeoutSeconds <= 0 || c.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	for pattern, cred := range c.Authenticate {
		if len(cred) != 2 && len(cred) != 4 {
			return fmt.Errorf("config: authenticate entry %q must have 2 or 4 fields, got %d", pattern, len(cred))
		}
	}
	return nil
}

// MinThrottle returns the minimum per-site delay.
func (c Config) MinThrottle() time.Duration {
	return time.Duration(c.MinThrottleSeconds * float64(time.Second))
}

// MaxThrottle returns the per-site delay ceiling.
func (c Config) MaxThrottle() time.Duration {
	return time.Duration(c.MaxThrottleSeconds * float64(time.Second))
}

// ConnectTimeout returns the dial timeout.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds * float64(time.Second))
}

// ReadTimeout returns the response read timeout.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds * float64(time.Second))
}

// CookieFile is where the session persists its jar.
func (c Config) CookieFile() string {
	return filepath.Join(c.DataDir, "cookies.json")
}

// CommandLogFile is the append-only invocation log.
func (c Config) CommandLogFile() string {
	return filepath.Join(c.DataDir, "commands.log")
}

// HistoryFile is the SQLite run-history database.
func (c Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "history.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botkit"
	}
	return filepath.Join(home, ".botkit")
}
