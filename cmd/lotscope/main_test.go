package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwulff/lotscope-go/internal/config"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/logging"
	"github.com/jwulff/lotscope-go/internal/metrics"
	"github.com/jwulff/lotscope-go/internal/render"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = domain.NewDate(2024, 3, 15)

func writeDataDir(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultErrorLotFile),
		[]byte("Date,Lot1,Lot2\n2024-03-15,2,\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kemp-abh-sensor-2024.03.15.csv"),
		[]byte("Temp,Current,Process\n70,1.0,1\n71,1.4,2\n72,1.1,1\n75,1.9,2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kemp-abh-sensor-garbage.csv"),
		[]byte("Temp,Current,Process\n"), 0o644))

	cfg := config.Default()
	cfg.Data.BaseDir = dir
	cfg.Storage.Path = filepath.Join(t.TempDir(), "lotscope.db")
	return cfg
}

func TestLoadCatalogFromCSV(t *testing.T) {
	cfg := writeDataDir(t)
	m := metrics.New()

	cat, err := loadCatalog(context.Background(), cfg, logging.Discard(), m)
	require.NoError(t, err)

	assert.Equal(t, []domain.Date{day}, cat.ListAvailableDates())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SensorFilesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailableDates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorLots))
}

func TestLoadCatalogFromSQLiteRequiresImport(t *testing.T) {
	cfg := writeDataDir(t)
	cfg.Data.Source = config.SourceSQLite

	_, err := loadCatalog(context.Background(), cfg, logging.Discard(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run lotscope import first")
}

func TestImportThenLoadFromSQLite(t *testing.T) {
	cfg := writeDataDir(t)
	ctx := context.Background()
	require.NoError(t, importData(ctx, cfg, logging.Discard()))

	cfg.Data.Source = config.SourceSQLite
	cat, err := loadCatalog(ctx, cfg, logging.Discard(), nil)
	require.NoError(t, err)

	assert.Equal(t, []domain.Date{day}, cat.ListAvailableDates())
	assert.Equal(t, []string{"2"}, cat.ErrorProcesses(day).Sorted())
	assert.Len(t, cat.Discards(), 1)
}

func TestExport(t *testing.T) {
	cfg := writeDataDir(t)
	cat, err := loadCatalog(context.Background(), cfg, logging.Discard(), nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out")
	paths, err := export(cat, day, out, render.DefaultAssetsHost)
	require.NoError(t, err)

	for _, name := range []string{
		render.TempDensityFile,
		render.CurrentDensityFile,
		render.ScatterFile,
		"dashboard.html",
		"2024-03-15.xlsx",
	} {
		assert.Contains(t, paths, filepath.Join(out, name))
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestExportAbsentDate(t *testing.T) {
	cfg := writeDataDir(t)
	cat, err := loadCatalog(context.Background(), cfg, logging.Discard(), nil)
	require.NoError(t, err)

	_, err = export(cat, domain.NewDate(2024, 1, 1), t.TempDir(), "")
	assert.ErrorContains(t, err, "no data for this date")
}

func TestProportionBar(t *testing.T) {
	assert.Equal(t, "██████████░░░░░░░░░░", proportionBar(2, 4))
	assert.Equal(t, "░░░░░░░░░░░░░░░░░░░░", proportionBar(0, 0))
	assert.Equal(t, "████████████████████", proportionBar(3, 3))
}
