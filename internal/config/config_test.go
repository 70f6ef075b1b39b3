package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Family != "wikipedia" || cfg.Lang != "en" {
		t.Errorf("default site = %s:%s", cfg.Lang, cfg.Family)
	}
	if cfg.MinThrottle() != time.Second {
		t.Errorf("MinThrottle() = %v, want 1s", cfg.MinThrottle())
	}
	if cfg.MaxThrottle() != 10*time.Second {
		t.Errorf("MaxThrottle() = %v, want 10s", cfg.MaxThrottle())
	}
	if cfg.ConnectTimeout() != 10*time.Second || cfg.ReadTimeout() != 45*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.ConnectTimeout(), cfg.ReadTimeout())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() with missing file error = %v", err)
	}
	if cfg.Family != "wikipedia" {
		t.Errorf("missing file should leave defaults, got family %q", cfg.Family)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botkit.yaml")
	content := `
family: wiktionary
lang: de
min_throttle: 2
max_throttle: 30
username: Example Bot
user_agent_format: "{script} by {username}"
authenticate:
  "*.wiktionary.org": [user, pass]
extra_headers:
  X-Custom: "1"
ignore_ssl_errors: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Family != "wiktionary" || cfg.Lang != "de" {
		t.Errorf("site = %s:%s", cfg.Lang, cfg.Family)
	}
	if cfg.MinThrottle() != 2*time.Second {
		t.Errorf("MinThrottle() = %v", cfg.MinThrottle())
	}
	if cfg.Username != "Example Bot" {
		t.Errorf("Username = %q", cfg.Username)
	}
	if got := cfg.Authenticate["*.wiktionary.org"]; len(got) != 2 || got[0] != "user" {
		t.Errorf("Authenticate = %v", cfg.Authenticate)
	}
	if cfg.ExtraHeaders["X-Custom"] != "1" {
		t.Errorf("ExtraHeaders = %v", cfg.ExtraHeaders)
	}
	if !cfg.IgnoreSSLErrors {
		t.Error("IgnoreSSLErrors = false")
	}
	// Values the file does not mention keep their defaults.
	if cfg.ReadTimeout() != 45*time.Second {
		t.Errorf("ReadTimeout() = %v, want default", cfg.ReadTimeout())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botkit.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid YAML should fail")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min throttle", func(c *Config) { c.MinThrottleSeconds = -1 }},
		{"max below min", func(c *Config) { c.MinThrottleSeconds = 5; c.MaxThrottleSeconds = 2 }},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeoutSeconds = 0 }},
		{"zero read timeout", func(c *Config) { c.ReadTimeoutSeconds = 0 }},
		{"bad credential arity", func(c *Config) {
			c.Authenticate = map[string][]string{"en.wikipedia.org": {"only-user"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Error("validate() accepted an invalid config")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOTKIT_FAMILY", "wikisource")
	t.Setenv("BOTKIT_LANG", "fr")
	t.Setenv("BOTKIT_VERBOSE", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Family != "wikisource" || cfg.Lang != "fr" {
		t.Errorf("site = %s:%s, want fr:wikisource", cfg.Lang, cfg.Family)
	}
	if cfg.VerboseOutput != 2 {
		t.Errorf("VerboseOutput = %d, want 2", cfg.VerboseOutput)
	}
}

func TestDataPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/botkit-test"

	if got := cfg.CookieFile(); got != "/tmp/botkit-test/cookies.json" {
		t.Errorf("CookieFile() = %q", got)
	}
	if got := cfg.CommandLogFile(); got != "/tmp/botkit-test/commands.log" {
		t.Errorf("CommandLogFile() = %q", got)
	}
	if got := cfg.HistoryFile(); got != "/tmp/botkit-test/history.db" {
		t.Errorf("HistoryFile() = %q", got)
	}
}
