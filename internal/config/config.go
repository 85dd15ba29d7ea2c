// Package config loads and validates the pipeline configuration from
// environment variables (prefix PFA) merged over an optional config.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Download DownloadConfig `yaml:"download" envconfig:"DOWNLOAD"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// PathsConfig contains the data directory layout. Raw holds downloaded
// source files, Interim holds partially processed tables, Processed holds
// final publication-ready outputs.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" default:"data/raw"`
	InterimDir   string `yaml:"interim_dir" envconfig:"INTERIM_DIR" default:"data/interim"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" default:"data/processed"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains the tunable parameters of the processing core.
type PipelineConfig struct {
	// TrendYears is the window for the linear trend projection method.
	TrendYears int `yaml:"trend_years" envconfig:"TREND_YEARS" default:"5"`
	// BaseYears is the endpoint span for the CAGR projection method.
	BaseYears int `yaml:"base_years" envconfig:"BASE_YEARS" default:"5"`
	// MovingAverageWindow is the number of year-over-year deltas averaged
	// by the moving average projection method.
	MovingAverageWindow int `yaml:"moving_average_window" envconfig:"MOVING_AVERAGE_WINDOW" default:"3"`
	// YearFrom trims all datasets to this year onwards.
	YearFrom int `yaml:"year_from" envconfig:"YEAR_FROM" default:"2014"`
	// RatePer is the population denominator scale for the imprisonment
	// rate (events per RatePer people).
	RatePer float64 `yaml:"rate_per" envconfig:"RATE_PER" default:"100000"`
	// AreaRenames maps population-side area names onto the custody data's
	// vocabulary before joining.
	AreaRenames map[string]string `yaml:"area_renames" envconfig:"AREA_RENAMES"`
	// RateTableTemplate and PublicationTemplate name the output files;
	// both are parameterised on the (min_year, max_year) span present.
	RateTableTemplate   string `yaml:"rate_table_template" envconfig:"RATE_TABLE_TEMPLATE" default:"custody_pfa_population_%d_%d.csv"`
	PublicationTemplate string `yaml:"publication_template" envconfig:"PUBLICATION_TEMPLATE" default:"imprisonment_rate_pfa_%d_%d.csv"`
	// CustodyTableTemplate names the per-category custody tables,
	// parameterised on the sentence-length category slug.
	CustodyTableTemplate string `yaml:"custody_table_template" envconfig:"CUSTODY_TABLE_TEMPLATE" default:"custody_sentences_pfa_%s.csv"`
	// OffencesTableTemplate names the offence-proportions table,
	// parameterised on the latest custody year it covers.
	OffencesTableTemplate string `yaml:"offences_table_template" envconfig:"OFFENCES_TABLE_TEMPLATE" default:"custody_offences_pfa_%d.csv"`
	// Raw input files carry publication vintages in their names, so they are
	// discovered by glob pattern rather than exact name.
	OutcomesPattern   string `yaml:"outcomes_pattern" envconfig:"OUTCOMES_PATTERN" default:"*outcomes_by_offence*.csv"`
	PopulationPattern string `yaml:"population_pattern" envconfig:"POPULATION_PATTERN" default:"*ONS*_v*.csv"`
	LookupPattern     string `yaml:"lookup_pattern" envconfig:"LOOKUP_PATTERN" default:"*LAD*PFA*"`
}

// DownloadConfig contains raw-data fetch configuration.
type DownloadConfig struct {
	Sources     []SourceConfig `yaml:"sources" ignored:"true"`
	Timeout     time.Duration  `yaml:"timeout" envconfig:"TIMEOUT" default:"2m"`
	Concurrency int            `yaml:"concurrency" envconfig:"CONCURRENCY" default:"3"`
	Retries     int            `yaml:"retries" envconfig:"RETRIES" default:"3"`
}

// SourceConfig names one raw source file and where to fetch it from.
type SourceConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Filename string `yaml:"filename"`
}

// Load loads configuration from an optional config file and the environment.
// Environment variables take precedence over file values, which take
// precedence over defaults.
func Load() (*Config, error) {
	cfg := Default()

	if path := findConfigFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("PFA", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// EnsureDirectories creates the configured data directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RawDir, c.Paths.InterimDir, c.Paths.ProcessedDir, c.Paths.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Pipeline.TrendYears < 3 {
		return fmt.Errorf("trend_years must be at least 3, got %d", c.Pipeline.TrendYears)
	}
	if c.Pipeline.BaseYears < 2 {
		return fmt.Errorf("base_years must be at least 2, got %d", c.Pipeline.BaseYears)
	}
	if c.Pipeline.MovingAverageWindow < 1 {
		return fmt.Errorf("moving_average_window must be positive, got %d", c.Pipeline.MovingAverageWindow)
	}
	if c.Pipeline.RatePer <= 0 {
		return fmt.Errorf("rate_per must be positive, got %f", c.Pipeline.RatePer)
	}
	if c.Download.Concurrency < 1 {
		return fmt.Errorf("download concurrency must be positive, got %d", c.Download.Concurrency)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "stdout" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}

	return nil
}

// findConfigFile returns the first config file found in common locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/pipeline.log",
		},
		Paths: PathsConfig{
			RawDir:       "data/raw",
			InterimDir:   "data/interim",
			ProcessedDir: "data/processed",
			LogsDir:      "logs",
		},
		Pipeline: PipelineConfig{
			TrendYears:          5,
			BaseYears:           5,
			MovingAverageWindow: 3,
			YearFrom:            2014,
			RatePer:             100000,
			AreaRenames: map[string]string{
				"Dyfed-Powys":         "Dyfed Powys",
				"Metropolitan Police": "London",
			},
			RateTableTemplate:     "custody_pfa_population_%d_%d.csv",
			PublicationTemplate:   "imprisonment_rate_pfa_%d_%d.csv",
			CustodyTableTemplate:  "custody_sentences_pfa_%s.csv",
			OffencesTableTemplate: "custody_offences_pfa_%d.csv",
			OutcomesPattern:       "*outcomes_by_offence*.csv",
			PopulationPattern:     "*ONS*_v*.csv",
			LookupPattern:         "*LAD*PFA*",
		},
		Download: DownloadConfig{
			Timeout:     2 * time.Minute,
			Concurrency: 3,
			Retries:     3,
		},
	}
}
