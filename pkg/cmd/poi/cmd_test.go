package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/poi-engine/pkg/parser"
	"github.com/gilchrisn/poi-engine/pkg/poi"
)

const lineEdgeList = `@height 1000
a0 a1 10
a1 a2 10
a2 a3 10
a3 a4 10
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCalculateCommand(t *testing.T) {
	snapshot := writeFile(t, "line.edges", lineEdgeList)
	output := filepath.Join(t.TempDir(), "out", "result.json")

	out, _, err := execute("calculate", "--snapshot", snapshot, "--output", output, "--top", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "height 1000 (grouped 718), strategy fast_scan")
	assert.Contains(t, out, "clusters 1, hubs 0, outliers 0")
	assert.Contains(t, out, "ADDRESS")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6, "two summary lines, a blank, a header and two rows")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var result poi.Result
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4"}, result.Addresses)

	total := 0.0
	for _, value := range result.Importances {
		total += value
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestCalculateCommandStrategyOverride(t *testing.T) {
	snapshot := writeFile(t, "line.edges", lineEdgeList)

	out, _, err := execute("calculate", "--snapshot", snapshot, "--strategy", "outlier-scan")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy outlier_scan")
	assert.Contains(t, out, "outliers 5")
}

func TestCalculateCommandErrors(t *testing.T) {
	_, _, err := execute("calculate")
	assert.Error(t, err)

	_, _, err = execute("calculate", "--snapshot", writeFile(t, "line.csv", lineEdgeList))
	assert.ErrorContains(t, err, "unsupported snapshot file extension")

	_, _, err = execute("calculate", "--snapshot", writeFile(t, "line.edges", lineEdgeList), "--strategy", "louvain")
	assert.ErrorContains(t, err, "unknown clustering strategy")

	_, _, err = execute("calculate", "--snapshot", writeFile(t, "broken.edges", "a0\n"))
	var parseErr *parser.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestCalculateCommandConfigFile(t *testing.T) {
	snapshot := writeFile(t, "line.edges", lineEdgeList)
	config := writeFile(t, "poi.yaml", "importance:\n  max_iterations: 2\n")

	_, _, err := execute("calculate", "--config", config, "--snapshot", snapshot)
	assert.ErrorIs(t, err, poi.ErrNonConvergence)

	_, _, err = execute("calculate", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--snapshot", snapshot)
	assert.ErrorContains(t, err, "failed to load config")
}

func TestClusterCommand(t *testing.T) {
	snapshot := writeFile(t, "line.edges", lineEdgeList)

	out, _, err := execute("cluster", "--snapshot", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy fast_scan, mu 3, epsilon 0.4")
	assert.Contains(t, out, ": a0 a1 a2 a3 a4")
	assert.Equal(t, 1, strings.Count(out, "cluster "))

	out, _, err = execute("cluster", "--snapshot", snapshot, "--strategy", "outlier_scan")
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(out, "outlier "))
	out, _, err = execute("cluster", "--snapshot", snapshot, "--proximity")
	require.NoError(t, err)
	assert.Contains(t, out, "proximity R, 1 columns x 5 accounts")
	assert.Contains(t, out, "0.2307692")
}

func TestCompareCommand(t *testing.T) {
	snapshot := writeFile(t, "line.edges", lineEdgeList)
	output := filepath.Join(t.TempDir(), "comparison.json")

	out, _, err := execute("compare", "--snapshot", snapshot, "--strategies", "scan,outlier_scan", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "height 1000, reference scan")
	assert.Contains(t, out, "outlier_scan")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var comparison poi.Comparison
	require.NoError(t, json.Unmarshal(data, &comparison))
	require.Len(t, comparison.Strategies, 2)
	assert.Zero(t, comparison.Strategies[0].ImportanceL1)
	assert.Equal(t, 1.0, comparison.Strategies[0].RandIndex)

	_, _, err = execute("compare", "--snapshot", snapshot, "--strategies", "scan,bogus")
	assert.ErrorContains(t, err, "unknown clustering strategy")
}

func TestGroupedHeightCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default interval", []string{"grouped-height", "1000"}, "718"},
		{"first group", []string{"grouped-height", "359"}, "1"},
		{"explicit interval", []string{"grouped-height", "1000", "--interval", "100"}, "900"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestGroupedHeightCommandErrors(t *testing.T) {
	_, _, err := execute("grouped-height", "0")
	assert.ErrorIs(t, err, poi.ErrInvalidConfig)

	_, _, err = execute("grouped-height", "abc")
	assert.ErrorContains(t, err, "invalid height")

	_, _, err = execute("grouped-height", "10", "--interval", "0")
	assert.ErrorIs(t, err, poi.ErrInvalidConfig)

	_, _, err = execute("grouped-height")
	assert.Error(t, err)
}

func TestGenerateCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "sample.json")

	out, _, err := execute("generate", "--output", output, "--communities", "2", "--size", "5", "--degree", "2", "--bridges", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 10 accounts and 21 outlinks")

	snapshot, err := parser.LoadSnapshot(output)
	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.NumAccounts())

	calc, _, err := execute("calculate", "--snapshot", output, "--top", "0")
	require.NoError(t, err)
	assert.Contains(t, calc, "acct0000")

	_, _, err = execute("generate")
	assert.ErrorContains(t, err, "--output is required")
}
