package cmd

import (
	"context"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/runner"
	"macroscrape/internal/sources"
	"macroscrape/internal/store"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	batch sources.Batch
}

func (s fixedSource) Name() string { return "dxy" }
func (s fixedSource) Describe() sources.Description {
	return sources.Description{Name: "dxy", Title: "Dollar index", Order: record.ByDateDesc}
}
func (s fixedSource) Collect(ctx context.Context) (sources.Batch, error) {
	return s.batch, nil
}

func fixedCatalog() []runner.Entry {
	src := fixedSource{batch: sources.Batch{Records: []record.Record{
		{Indicator: "DTWEXBGS", Date: "2024-01-02", Value: 119.6, Unit: "Index", Source: "FRED"},
	}}}
	return []runner.Entry{{
		Name: "dxy",
		New: func(deps sources.Deps) (sources.Source, error) {
			return src, nil
		},
	}}
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Store = config.StoreConfig{File: filepath.Join(dir, "runs.db")}
	return cfg
}

func history(t *testing.T, cfg config.Config) []store.Run {
	s, err := store.Open(cfg.Store)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.History(context.Background(), "dxy", 10)
	require.NoError(t, err)
	return runs
}

func TestRunSources(t *testing.T) {
	cfg := testConfig(t)

	outcomes, err := runSources(context.Background(), cfg, []string{"dxy"}, fixedCatalog())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, 1, outcomes[0].Records)
	require.FileExists(t, outcomes[0].Output)

	runs := history(t, cfg)
	require.Len(t, runs, 1)
	require.Equal(t, 1, runs[0].Records)
}

func TestRunSourcesPersistFailure(t *testing.T) {
	cfg := testConfig(t)
	// the output directory is a regular file
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0600))
	cfg.OutputDir = blocked

	outcomes, err := runSources(context.Background(), cfg, []string{"dxy"}, fixedCatalog())
	require.ErrorIs(t, err, runner.ErrPersist)
	require.Len(t, outcomes, 1)

	// the archive was closed cleanly and holds no run for the failed write
	require.Empty(t, history(t, cfg))
}
