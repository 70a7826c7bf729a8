package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/counter"
	"github.com/roach88/selgraph/internal/journal"
)

func TestInvoke_NewSession(t *testing.T) {
	path := journalPath(t)

	out, err := execute(t, "invoke", "counter/set", "--args", `{"value":12}`, "--db", path, "--format", "json")
	require.NoError(t, err)

	env := decodeEnvelope[InvokeResult](t, []byte(out))
	assert.Equal(t, "ok", env.Status)
	assert.Equal(t, "counter/set", env.Data.Kind)
	assert.Equal(t, 0, env.Data.Restored)
	assert.Equal(t, int64(1), env.Data.Seq)
	assert.Equal(t, int64(2), env.Data.Tick)
	assert.Equal(t, float64(12), env.Data.Values[counter.NodeCounter])
	assert.Equal(t, []any{float64(2), float64(2), float64(3)}, env.Data.Values[counter.NodePrimes])

	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.ReadSession(context.Background(), env.Data.Session)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "counter/set", entries[0].Kind)
}

func TestInvoke_ResumeSession(t *testing.T) {
	path := journalPath(t)
	seedSession(t, path, "s1", counter.Set{Value: 12})

	out, err := execute(t, "invoke", "counter/increment", "--db", path, "--session", "s1")
	require.NoError(t, err)

	assert.Contains(t, out, "Applied counter/increment to session s1")
	assert.Contains(t, out, "seq=2 tick=3 restored=1")
	assert.Contains(t, out, "counter  13")
	assert.Contains(t, out, "isEven   true")
}

func TestInvoke_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown_kind", []string{"invoke", "counter/explode"}, "unknown action"},
		{"args_not_object", []string{"invoke", "counter/set", "--args", "[1]"}, "must be a JSON object"},
		{"float_arg", []string{"invoke", "counter/set", "--args", `{"value":1.5}`}, "invalid --args"},
		{"malformed_args", []string{"invoke", "counter/set", "--args", `{"value":`}, "invalid --args"},
		{"unknown_field", []string{"invoke", "counter/set", "--args", `{"valu":3}`}, "invalid keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--db", journalPath(t))
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInvoke_MissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "invoke", "counter/increment")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"empty", "", map[string]any{}},
		{"empty_object", "{}", map[string]any{}},
		{"int", `{"value":7}`, map[string]any{"value": int64(7)}},
		{"nested", `{"a":{"b":[true,"x"]}}`, map[string]any{"a": map[string]any{"b": []any{true, "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
