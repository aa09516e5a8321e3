package config

import (
	"errors"
	"fmt"
	devenv "macroscrape/dev/env"
	"macroscrape/internal/record"
	"macroscrape/pkg/configutil"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidConfig     = errors.New("invalid config")
)

// Output formats understood by the writer.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type SourceConfig struct {
	// Disabled removes the source from `run --all`.
	Disabled bool `json:"disabled"`
	// Output overrides the output file name (without extension).
	Output string `json:"output"`
	// Format overrides the global output format.
	Format string `json:"format"`
	// BaseURL overrides the upstream endpoint, mostly for mirrors and tests.
	BaseURL string `json:"base_url"`
}

type BrowserConfig struct {
	// Enabled switches sources that can run either way (nbs_pmi) to the browser.
	Enabled   bool   `json:"enabled"`
	RemoteURL string `json:"remote_url"`
	ExecPath  string `json:"exec_path"`
	Headful   bool   `json:"headful"`
}

type StoreConfig struct {
	// File is a local sqlite database, supports the <dev_state> prefix.
	File string `json:"file"`
	// URL is a libsql:// url, takes precedence over File.
	URL string `json:"url"`
}

func (s StoreConfig) Enabled() bool {
	return s.File != "" || s.URL != ""
}

type Config struct {
	// StartDate and EndDate bound the observations requested, either YYYY or
	// YYYY-MM-DD. An empty EndDate means "now".
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	OutputDir    string `json:"output_dir"`
	OutputFormat string `json:"output_format"`
	// Timezone is an IANA name used for last_updated timestamps, empty is UTC.
	Timezone    string                  `json:"timezone"`
	Credentials map[string]string       `json:"credentials"`
	Store       StoreConfig             `json:"store"`
	Browser     BrowserConfig           `json:"browser"`
	Sources     map[string]SourceConfig `json:"sources"`
}

func Default() Config {
	return Config{
		StartDate:    "2020-01-01",
		OutputDir:    "data",
		OutputFormat: FormatJSON,
		Credentials:  map[string]string{},
		Sources:      map[string]SourceConfig{},
	}
}

// Load reads `path` (merged with its .local override) on top of Default,
// a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	read, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	cfg = merge(cfg, read)
	return cfg, cfg.Validate()
}

func merge(base, override Config) Config {
	if override.StartDate != "" {
		base.StartDate = override.StartDate
	}
	if override.EndDate != "" {
		base.EndDate = override.EndDate
	}
	if override.OutputDir != "" {
		base.OutputDir = override.OutputDir
	}
	if override.OutputFormat != "" {
		base.OutputFormat = override.OutputFormat
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	for k, v := range override.Credentials {
		base.Credentials[k] = v
	}
	for k, v := range override.Sources {
		base.Sources[k] = v
	}
	base.Store = override.Store
	base.Browser = override.Browser
	return base
}

func parseBound(raw string, end bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 4 {
		if end {
			raw = raw + "-12-31"
		} else {
			raw = raw + "-01-01"
		}
	}
	return time.Parse(record.DateLayout, raw)
}

func validFormat(format string) bool {
	switch format {
	case "", FormatJSON, FormatCSV, FormatXLSX:
		return true
	}
	return false
}

func (c Config) Validate() error {
	if _, err := parseBound(c.StartDate, false); err != nil {
		return fmt.Errorf("%w: start_date %q", ErrInvalidConfig, c.StartDate)
	}
	if c.EndDate != "" {
		end, err := parseBound(c.EndDate, true)
		if err != nil {
			return fmt.Errorf("%w: end_date %q", ErrInvalidConfig, c.EndDate)
		}
		start, _ := parseBound(c.StartDate, false)
		if end.Before(start) {
			return fmt.Errorf("%w: end_date %s is before start_date %s", ErrInvalidConfig, c.EndDate, c.StartDate)
		}
	}
	if !validFormat(c.OutputFormat) {
		return fmt.Errorf("%w: output_format %q", ErrInvalidConfig, c.OutputFormat)
	}
	for name, s := range c.Sources {
		if !validFormat(s.Format) {
			return fmt.Errorf("%w: sources.%s.format %q", ErrInvalidConfig, name, s.Format)
		}
	}
	return nil
}

// Range resolves the configured window, `now` fills an empty end date.
func (c Config) Range(now time.Time) (start, end time.Time) {
	start, err := parseBound(c.StartDate, false)
	if err != nil {
		start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	end = now
	if c.EndDate != "" {
		parsed, err := parseBound(c.EndDate, true)
		if err == nil {
			end = parsed
		}
	}
	return start, end
}

// Window is Range as a date filter over records.
func (c Config) Window(now time.Time) record.Window {
	start, end := c.Range(now)
	return record.Window{Start: start, End: end}
}

// Credential looks a credential up in the config first, then in the environment
// under its upper-cased name (fred_api_key -> FRED_API_KEY).
func (c Config) Credential(name string) (string, error) {
	if v := strings.TrimSpace(c.Credentials[name]); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (set credentials.%s or %s)", ErrMissingCredential, name, name, strings.ToUpper(name))
}

func (c Config) Source(name string) SourceConfig {
	return c.Sources[name]
}

// Format returns the output format of a source.
func (c Config) Format(name string) string {
	if f := c.Source(name).Format; f != "" {
		return f
	}
	if c.OutputFormat != "" {
		return c.OutputFormat
	}
	return FormatJSON
}

// OutputPath is where a source's file is written.
func (c Config) OutputPath(name string) (string, error) {
	dir, err := devenv.ResolvePath(c.OutputDir)
	if err != nil {
		return "", err
	}
	base := c.Source(name).Output
	if base == "" {
		base = name
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", base, c.Format(name))), nil
}
