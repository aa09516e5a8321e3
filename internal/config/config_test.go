package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macroscrape.json5")
	writeFile(t, path, `{
		start_date: "2015",
		output_format: "csv",
		credentials: {fred_api_key: "shared"},
		sources: {
			commodity_prices: {output: "commodities", format: "xlsx"},
		},
	}`)
	writeFile(t, filepath.Join(dir, "macroscrape.local.json5"), `{
		credentials: {fred_api_key: "mine"},
		store: {file: "<dev_state>/runs.db"},
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "2015", cfg.StartDate)
	require.Equal(t, "data", cfg.OutputDir)
	require.Equal(t, FormatCSV, cfg.OutputFormat)
	require.Equal(t, "mine", cfg.Credentials["fred_api_key"])
	require.True(t, cfg.Store.Enabled())
	require.Equal(t, FormatXLSX, cfg.Format("commodity_prices"))
	require.Equal(t, FormatCSV, cfg.Format("worldbank"))
}

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		patch func(c *Config)
		ok    bool
	}{
		{name: "default", patch: func(c *Config) {}, ok: true},
		{name: "year bounds", patch: func(c *Config) { c.StartDate = "2010"; c.EndDate = "2012" }, ok: true},
		{name: "bad start", patch: func(c *Config) { c.StartDate = "01/01/2020" }},
		{name: "end before start", patch: func(c *Config) { c.EndDate = "2019-06-30" }},
		{name: "bad format", patch: func(c *Config) { c.OutputFormat = "parquet" }},
		{name: "bad source format", patch: func(c *Config) {
			c.Sources["nbs_pmi"] = SourceConfig{Format: "yaml"}
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.patch(&cfg)
			err := cfg.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRange(t *testing.T) {
	now := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	cfg := Default()
	start, end := cfg.Range(now)
	require.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, now, end)

	cfg.StartDate = "2010"
	cfg.EndDate = "2015"
	start, end = cfg.Range(now)
	require.Equal(t, 2010, start.Year())
	require.Equal(t, time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC), end)

	cfg.StartDate = "2020-06-15"
	cfg.EndDate = "2021-12-31"
	window := cfg.Window(now)
	require.False(t, window.Contains("2020-06-01"))
	require.True(t, window.Contains("2020-06-15"))
	require.True(t, window.Contains("2021-12-31"))
	require.False(t, window.Contains("2024-01-01"))
}

func TestCredential(t *testing.T) {
	cfg := Default()
	t.Setenv("FRED_API_KEY", "")

	_, err := cfg.Credential("fred_api_key")
	require.ErrorIs(t, err, ErrMissingCredential)

	t.Setenv("FRED_API_KEY", "from-env")
	key, err := cfg.Credential("fred_api_key")
	require.NoError(t, err)
	require.Equal(t, "from-env", key)

	cfg.Credentials["fred_api_key"] = "from-config"
	key, err = cfg.Credential("fred_api_key")
	require.NoError(t, err)
	require.Equal(t, "from-config", key)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.OutputDir = dir
	cfg.Sources["china_macro"] = SourceConfig{Output: "china_macro_data"}

	path, err := cfg.OutputPath("china_macro")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "china_macro_data.json"), path)

	path, err = cfg.OutputPath("imf_gdp")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "imf_gdp.json"), path)
}
