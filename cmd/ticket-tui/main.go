package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/roeyazroel/ticket-tui/internal/config"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
	"github.com/roeyazroel/ticket-tui/internal/tui"
)

type flags struct {
	version  bool
	config   string
	apiURL   string
	logFile  string
	logLevel string
	theme    string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("ticket-tui", pflag.ContinueOnError)
	fs.BoolVarP(&f.version, "version", "v", false, "print version and exit")
	fs.StringVarP(&f.config, "config", "c", "", "path to YAML config file")
	fs.StringVar(&f.apiURL, "api-url", "", "ticket API base URL")
	fs.StringVar(&f.logFile, "log-file", "", "log file path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warning, error)")
	fs.StringVar(&f.theme, "theme", "", "color theme (dark, light)")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

// apply overrides config values with flags given on the command line.
func (f flags) apply(cfg *config.Config) {
	if f.apiURL != "" {
		cfg.APIBaseURL = f.apiURL
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.theme != "" {
		cfg.Theme = f.theme
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if f.version {
		fmt.Println(VersionInfo())
		os.Exit(0)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Application starting version=%s", Version)
	logger.Debug("Configuration: APIBaseURL=%s, PageSize=%d, Timeout=%s, Locale=%s",
		cfg.APIBaseURL, cfg.PageSize, cfg.Timeout, cfg.Locale)

	apiClient := ticketapi.NewClient(ticketapi.ClientConfig{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.Timeout,
		PageSize:  cfg.PageSize,
		UserAgent: "ticket-tui/" + Version,
	})

	app := tui.NewApp(apiClient, cfg)
	if err := app.Run(); err != nil {
		logger.ErrorWithErr(err, "Application error")
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		logger.Close()
		os.Exit(1)
	}

	logger.Info("Application shutdown")
}
