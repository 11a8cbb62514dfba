package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Experiment  string
	N           int
	Quality     bool
	Simple      bool
	Output      string
	WorkerMode  bool
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("FIDDLETUNES_CONFIG", ""),
		"Path to YAML configuration file, empty for defaults (env: FIDDLETUNES_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FIDDLETUNES_LOG_LEVEL", ""),
		"Log level override: debug, info, warn, error (env: FIDDLETUNES_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FIDDLETUNES_LOG_FORMAT", ""),
		"Log format override: json, text (env: FIDDLETUNES_LOG_FORMAT)")

	flag.StringVar(&cfg.Experiment, "experiment", "intervals",
		`Experiment to run: "intervals" or "interval n-grams"`)

	flag.IntVar(&cfg.N, "n",
		getEnvInt("FIDDLETUNES_N", 2),
		"Window size for the interval n-grams experiment (env: FIDDLETUNES_N)")

	flag.BoolVar(&cfg.Quality, "quality", false,
		"Include interval quality (M3 instead of 3)")

	flag.BoolVar(&cfg.Simple, "simple", false,
		"Reduce compound intervals to simple form")

	flag.StringVar(&cfg.Output, "out", "-",
		`CSV output path, "-" for stdout`)

	flag.BoolVar(&cfg.WorkerMode, "worker", false,
		"Run as a NATS analysis worker instead of a driver")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	return cfg
}

// flagArgs returns the positional arguments: the score files to analyze.
func flagArgs() []string {
	return flag.Args()
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.N < 1 {
		return fmt.Errorf("invalid n-gram size: %d", cfg.N)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - symbolic music analysis pipeline

Usage: %s [options] score.json [score.json ...]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Count vertical intervals with quality across two pieces
  %s --quality piece1.json piece2.json

  # Count interval 2-grams and write a CSV
  %s --experiment="interval n-grams" --n=2 --out=ngrams.csv pieces/*.json

  # Run as a distributed analysis worker
  %s --config=/etc/fiddle-tunes/config.yaml --worker

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
