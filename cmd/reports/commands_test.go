package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pet-owner-reports/internal/domain/pets"
	"pet-owner-reports/internal/reports"
	"pet-owner-reports/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seededServer(t *testing.T, chaos pets.Chaos) string {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{SeedDemo: true, Chaos: chaos}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestList_PrintsEveryReport(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, r := range reports.All() {
		assert.Contains(t, out, r.Name)
	}
}

func TestRun_WritesOneFilePerReport(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")

	out, err := execute(t, "run",
		"--base-url", seededServer(t, pets.Chaos{}),
		"--output-dir", dir,
		"--timeout", "30s",
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err, out)

	for _, r := range reports.All() {
		_, err := os.Stat(filepath.Join(dir, r.Name+".txt"))
		assert.NoError(t, err, r.Name)
		assert.Contains(t, out, r.Name)
	}

	b, err := os.ReadFile(filepath.Join(dir, reports.TotalPets+".txt"))
	require.NoError(t, err)
	assert.Equal(t, "Total number of pets: 10\n", string(b))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `petreports_report_runs_total{report="Task2_totalPets",status="ok"} 1`)
}

func TestRun_OnlyAndFailureExitCode(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()

	out, err := execute(t, "run",
		"--base-url", seededServer(t, pets.Chaos{FailureRate: 1}),
		"--output-dir", dir,
		"--only", reports.TotalDogs+","+reports.UnreliablePetLookup,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 reports failed")
	assert.Contains(t, out, "failed")

	b, err := os.ReadFile(filepath.Join(dir, reports.TotalDogs+".txt"))
	require.NoError(t, err)
	assert.Equal(t, "Number of dogs: 5\n", string(b))

	// el reporte fallido deja su salida vacía
	b, err = os.ReadFile(filepath.Join(dir, reports.UnreliablePetLookup+".txt"))
	require.NoError(t, err)
	assert.Empty(t, b)

	// los no seleccionados no se tocan
	_, err = os.Stat(filepath.Join(dir, reports.TotalPets+".txt"))
	assert.True(t, os.IsNotExist(err))
	assert.False(t, strings.Contains(out, reports.TotalPets))
}

func TestRun_DryRunPrintsBlobsAndWritesNothing(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()

	out, err := execute(t, "run",
		"--base-url", seededServer(t, pets.Chaos{}),
		"--output-dir", dir,
		"--only", reports.TotalPets,
		"--dry-run",
	)
	require.NoError(t, err, out)

	assert.Contains(t, out, "== "+reports.TotalPets+" ==\nTotal number of pets: 10\n")
	assert.Contains(t, out, "(dry run, 25 bytes)")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_RejectsUnknownReport(t *testing.T) {
	_, err := execute(t, "run", "--only", "Task99_nope", "--output-dir", t.TempDir())
	assert.Error(t, err)
}
