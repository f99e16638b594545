package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var cErr codedError
	require.True(t, errors.As(err, &cErr), "expected coded error, got %v", err)
	return cErr.code
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo")
	require.NoError(t, err)
	require.Equal(t,
		"Capacity: 4, Count: 3, [STRING3,STRING4,STRING5]\n"+
			"Capacity: 4, Count: 2, [STRING3,STRING5]\n",
		out)
}

func TestRunTestdata(t *testing.T) {
	out, err := execute(t, "run", "--parallel", "2", filepath.Join("..", "..", "testdata"))
	require.NoError(t, err)
	require.Contains(t, out, "PASS smoke-demo")
	require.Contains(t, out, "9 scenarios, 0 failed")
}

func TestRunFailingScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
capacity: 1
steps:
  - {op: remove, value: ghost}
`), 0o644))

	out, err := execute(t, "run", path)
	require.Error(t, err)
	require.Equal(t, exitScenarioFailed, exitCode(t, err))
	require.Contains(t, out, "FAIL bad")
	require.Contains(t, out, "unexpected error")
	require.Contains(t, out, "1 scenarios, 1 failed")
}

func TestRunJSON(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "smoke-demo", "scenario.yaml")
	out, err := execute(t, "run", "--json", path)
	require.NoError(t, err)

	var got struct {
		Results []struct {
			Name    string   `json:"name"`
			Success bool     `json:"success"`
			Dumps   []string `json:"dumps"`
		} `json:"results"`
		Stats struct {
			Scenarios int `json:"scenarios"`
			Failed    int `json:"failed"`
		} `json:"stats"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, 1, got.Stats.Scenarios)
	require.Zero(t, got.Stats.Failed)
	require.Len(t, got.Results, 1)
	require.Equal(t, "smoke-demo", got.Results[0].Name)
	require.True(t, got.Results[0].Success)
	require.Len(t, got.Results[0].Dumps, 2)
	require.Equal(t, version, got.Version)
}

func TestRunMissingPath(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Equal(t, exitError, exitCode(t, err))
}
