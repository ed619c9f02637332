package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

// isolate points config lookups at an empty temp dir so real user files never leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{
		APIBaseURLEnv, TimeoutEnv, PageSizeEnv, SearchDebounceEnv, ClassifyDebounceEnv,
		MessageTTLEnv, LocaleEnv, LogFileEnv, LogLevelEnv, ThemeEnv, ConfigFileEnv,
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.SearchDebounce != 500*time.Millisecond {
		t.Errorf("SearchDebounce = %s, want 500ms", cfg.SearchDebounce)
	}
	if cfg.ClassifyDebounce != 600*time.Millisecond {
		t.Errorf("ClassifyDebounce = %s, want 600ms", cfg.ClassifyDebounce)
	}
	if cfg.MessageTTL != 2500*time.Millisecond {
		t.Errorf("MessageTTL = %s, want 2.5s", cfg.MessageTTL)
	}
	if cfg.LanguageTag() != language.MustParse("en-US") {
		t.Errorf("LanguageTag() = %v, want en-US", cfg.LanguageTag())
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	content := "api_url: http://tickets.internal:9000/api\npage_size: 25\nsearch_debounce: 300ms\nlocale: de-DE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Setenv(PageSizeEnv, "40")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBaseURL != "http://tickets.internal:9000/api" {
		t.Errorf("APIBaseURL = %q, want file value", cfg.APIBaseURL)
	}
	if cfg.PageSize != 40 {
		t.Errorf("PageSize = %d, want env override 40", cfg.PageSize)
	}
	if cfg.SearchDebounce != 300*time.Millisecond {
		t.Errorf("SearchDebounce = %s, want 300ms", cfg.SearchDebounce)
	}
	if cfg.Locale != "de-DE" {
		t.Errorf("Locale = %q, want de-DE", cfg.Locale)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv(APIBaseURLEnv)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(APIBaseURLEnv+"=http://from-dotenv:8000/api\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv(APIBaseURLEnv) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBaseURL != "http://from-dotenv:8000/api" {
		t.Errorf("APIBaseURL = %q, want .env value", cfg.APIBaseURL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatal("Load() with missing explicit file expected error")
	}
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	isolate(t)
	t.Setenv(SearchDebounceEnv, "soon")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), SearchDebounceEnv) {
		t.Fatalf("Load() error = %v, want mention of %s", err, SearchDebounceEnv)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad url", func(c *Config) { c.APIBaseURL = "not a url" }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"negative page size", func(c *Config) { c.PageSize = -1 }, false},
		{"zero debounce", func(c *Config) { c.SearchDebounce = 0 }, false},
		{"zero ttl", func(c *Config) { c.MessageTTL = 0 }, false},
		{"bad locale", func(c *Config) { c.Locale = "xx-invalid-!!" }, false},
		{"light theme", func(c *Config) { c.Theme = "light" }, true},
		{"unknown theme", func(c *Config) { c.Theme = "neon" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
