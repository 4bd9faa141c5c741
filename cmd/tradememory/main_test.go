package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-memory/internal/api"
	"trade-memory/internal/domain"
)

func findCmd(t *testing.T, path ...string) *cobra.Command {
	t.Helper()
	cmd, rest, err := rootCmd.Find(path)
	require.NoError(t, err)
	require.Empty(t, rest)
	return cmd
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TRADEMEMORY_LOG_LEVEL", "error")
	t.Cleanup(func() {
		useMemory, loadDemo, jsonOutput = false, false, false
		outputDir, configPath = "", ""
		discoverDimensions = nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"reflect", "daily"},
		{"reflect", "weekly"},
		{"reflect", "monthly"},
		{"patterns", "discover"},
		{"patterns", "latest"},
		{"adjustments", "generate"},
		{"adjustments", "list"},
		{"adjustments", "approve"},
		{"adjustments", "reject"},
		{"adjustments", "apply"},
		{"seed"},
		{"serve"},
	} {
		cmd := findCmd(t, path...)
		assert.NotEmpty(t, cmd.Short, "%v", path)
		assert.NotNil(t, cmd.RunE, "%v", path)
	}

	for _, name := range []string{"config", "use-memory", "postgres-dsn", "clickhouse-dsn", "output-dir", "demo", "json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestLastWeekStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 2, 23, 10, 0, 0, 0, time.UTC), time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)}, // Monday
		{time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC), time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)}, // Saturday
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)},   // Sunday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lastWeekStart(tt.now), tt.now.String())
	}
}

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	p, err := resolvePeriod(domain.PeriodDaily, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", p.ID())

	p, err = resolvePeriod(domain.PeriodWeekly, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-22 to 2026-02-28", p.ID())

	p, err = resolvePeriod(domain.PeriodMonthly, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02", p.ID())

	p, err = resolvePeriod(domain.PeriodMonthly, "2025-12", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-12", p.ID())

	_, err = resolvePeriod(domain.PeriodDaily, "yesterday", now)
	assert.Error(t, err)
}

func TestPatternsDiscover_DemoJSON(t *testing.T) {
	out := run(t, "--use-memory", "--demo", "--json", "patterns", "discover", "--dimension", "strategy")

	var found []api.PatternResponse
	require.NoError(t, json.Unmarshal([]byte(out), &found), out)

	edges := make(map[string]string)
	for _, p := range found {
		assert.Equal(t, "strategy", p.Dimension)
		edges[p.Segment] = p.Edge
	}
	assert.Equal(t, map[string]string{
		"Breakout":      "HIGH_EDGE",
		"MeanReversion": "WEAK",
		"Momentum":      "NEUTRAL",
	}, edges)
}

func TestAdjustmentsGenerate_Demo(t *testing.T) {
	out := run(t, "--use-memory", "--demo", "adjustments", "generate")

	assert.Contains(t, out, "strategy:MeanReversion")
	assert.Contains(t, out, "enabled: true -> false")
	assert.Contains(t, out, "allowed_directions: long,short -> long")
	assert.Contains(t, out, "session:asian")
}

func TestReflectWritesFiles(t *testing.T) {
	dir := t.TempDir()
	out := run(t, "--use-memory", "--output-dir", dir, "reflect", "daily", "2026-02-16")

	assert.Contains(t, out, "=== DAILY SUMMARY: 2026-02-16 ===")
	assert.Contains(t, out, "No trades today.")
	assert.Contains(t, out, filepath.Join(dir, "reflection_2026-02-16.txt"))
}
