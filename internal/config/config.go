package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	APIBaseURLEnv       = "TICKET_TUI_API_URL"
	TimeoutEnv          = "TICKET_TUI_TIMEOUT"
	PageSizeEnv         = "TICKET_TUI_PAGE_SIZE"
	SearchDebounceEnv   = "TICKET_TUI_SEARCH_DEBOUNCE"
	ClassifyDebounceEnv = "TICKET_TUI_CLASSIFY_DEBOUNCE"
	MessageTTLEnv       = "TICKET_TUI_MESSAGE_TTL"
	LocaleEnv           = "TICKET_TUI_LOCALE"
	LogFileEnv          = "TICKET_TUI_LOG_FILE"
	LogLevelEnv         = "TICKET_TUI_LOG_LEVEL"
	ThemeEnv            = "TICKET_TUI_THEME"
	ConfigFileEnv       = "TICKET_TUI_CONFIG"
)

// Defaults.
const (
	DefaultAPIBaseURL       = "http://localhost:8000/api"
	DefaultTimeout          = 15 * time.Second
	DefaultSearchDebounce   = 500 * time.Millisecond
	DefaultClassifyDebounce = 600 * time.Millisecond
	DefaultMessageTTL       = 2500 * time.Millisecond
	DefaultLocale           = "en-US"
	DefaultLogLevel         = "warning"
	DefaultTheme            = "dark"
)

// Config holds runtime settings for the client.
type Config struct {
	APIBaseURL       string        `yaml:"api_url"`
	Timeout          time.Duration `yaml:"timeout"`
	PageSize         int           `yaml:"page_size"`
	SearchDebounce   time.Duration `yaml:"search_debounce"`
	ClassifyDebounce time.Duration `yaml:"classify_debounce"`
	MessageTTL       time.Duration `yaml:"message_ttl"`
	Locale           string        `yaml:"locale"`
	LogFile          string        `yaml:"log_file"`
	LogLevel         string        `yaml:"log_level"`
	Theme            string        `yaml:"theme"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBaseURL:       DefaultAPIBaseURL,
		Timeout:          DefaultTimeout,
		SearchDebounce:   DefaultSearchDebounce,
		ClassifyDebounce: DefaultClassifyDebounce,
		MessageTTL:       DefaultMessageTTL,
		Locale:           DefaultLocale,
		LogFile:          defaultLogFile(),
		LogLevel:         DefaultLogLevel,
		Theme:            DefaultTheme,
	}
}

// DefaultConfigPath returns the location of the optional YAML config file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ticket-tui", "config.yaml"), nil
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ticket-tui.log")
	}
	return filepath.Join(dir, "ticket-tui", "ticket-tui.log")
}

// Load builds a Config from defaults, the YAML file at path (if it exists),
// a .env file in the working directory, and the environment, in that order.
// An empty path means DefaultConfigPath, or TICKET_TUI_CONFIG when set.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	explicit := path != ""
	if path == "" {
		if p, err := DefaultConfigPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) || explicit {
				return Config{}, err
			}
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv is Load without an explicit config file path.
func LoadFromEnv() (Config, error) {
	return Load("")
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.overlay(fileCfg)
	return nil
}

// overlay copies every non-zero field of o onto c.
func (c *Config) overlay(o Config) {
	if o.APIBaseURL != "" {
		c.APIBaseURL = o.APIBaseURL
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.PageSize != 0 {
		c.PageSize = o.PageSize
	}
	if o.SearchDebounce != 0 {
		c.SearchDebounce = o.SearchDebounce
	}
	if o.ClassifyDebounce != 0 {
		c.ClassifyDebounce = o.ClassifyDebounce
	}
	if o.MessageTTL != 0 {
		c.MessageTTL = o.MessageTTL
	}
	if o.Locale != "" {
		c.Locale = o.Locale
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Theme != "" {
		c.Theme = o.Theme
	}
}

func (c *Config) mergeEnv() error {
	var o Config
	o.APIBaseURL = os.Getenv(APIBaseURLEnv)
	o.Locale = os.Getenv(LocaleEnv)
	o.LogFile = os.Getenv(LogFileEnv)
	o.LogLevel = os.Getenv(LogLevelEnv)
	o.Theme = os.Getenv(ThemeEnv)

	var err error
	if o.Timeout, err = envDuration(TimeoutEnv); err != nil {
		return err
	}
	if o.SearchDebounce, err = envDuration(SearchDebounceEnv); err != nil {
		return err
	}
	if o.ClassifyDebounce, err = envDuration(ClassifyDebounceEnv); err != nil {
		return err
	}
	if o.MessageTTL, err = envDuration(MessageTTLEnv); err != nil {
		return err
	}
	if v := os.Getenv(PageSizeEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", PageSizeEnv, err)
		}
		o.PageSize = n
	}

	c.overlay(o)
	return nil
}

func envDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIBaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page size must not be negative, got %d", c.PageSize)
	}
	if c.SearchDebounce <= 0 || c.ClassifyDebounce <= 0 {
		return errors.New("debounce delays must be positive")
	}
	if c.MessageTTL <= 0 {
		return fmt.Errorf("message ttl must be positive, got %s", c.MessageTTL)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	switch strings.ToLower(c.Theme) {
	case "dark", "light":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}

// LanguageTag returns the parsed locale, falling back to English.
func (c Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
