package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", "name: b\nsteps: []\n")
	writeScenario(t, dir, "a.yml", "name: a\nsteps: []\n")
	writeScenario(t, dir, "notes.txt", "ignored")
	single := writeScenario(t, t.TempDir(), "single.yaml", "name: single\nsteps: []\n")

	files, err := FindScenarios([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		single,
	}, files)
}

func TestFindScenarios_Missing(t *testing.T) {
	_, err := FindScenarios([]string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	passing := writeScenario(t, dir, "pass.yaml", `
name: pass
subscriptions: [counter]
steps:
  - dispatch: counter/increment
assertions:
  - type: final_value
    node: counter
    value: 1
`)
	failing := writeScenario(t, dir, "fail.yaml", `
name: fail
steps: []
assertions:
  - type: final_tick
    tick: 2
`)
	invalid := writeScenario(t, dir, "invalid.yaml", "name: invalid\nsteps: 3\n")

	suite := RunSuite([]string{passing, failing, invalid})

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)
	assert.Equal(t, failing, suite.Failures[0].Path)
	assert.Contains(t, suite.Failures[0].Error, "scenario assertions failed")
	assert.Equal(t, invalid, suite.Failures[1].Path)
	assert.Contains(t, suite.Failures[1].Error, "failed to load scenario")
	assert.Contains(t, suite.Results, passing)
	assert.Contains(t, suite.Results, failing)
}
