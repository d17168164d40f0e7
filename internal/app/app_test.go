package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/toolhost/internal/command"
)

func TestFormatResultText(t *testing.T) {
	a := newTestApp(t)
	inv := command.Invocation{Tool: "get_star", Argument: "Vega", Original: "<get_star Vega>"}

	out := a.formatResult(inv, map[string]string{"name": "Vega"}, nil)
	assert.Contains(t, out, "=== TOOL: <get_star Vega> ===")
	assert.Contains(t, out, `"name": "Vega"`)
	assert.Contains(t, out, "=== END TOOL ===")

	out = a.formatResult(inv, nil, errors.New("star not found"))
	assert.Contains(t, out, "=== ERROR ===")
	assert.Contains(t, out, "star not found")
}

func TestFormatResultJSON(t *testing.T) {
	a := newTestApp(t)
	a.cfg.JSONOutput = true
	inv := command.Invocation{Tool: "get_star", Argument: "Vega", Original: "<get_star Vega>"}

	line := a.formatResult(inv, map[string]string{"name": "Vega"}, nil)

	var envelope invocationEnvelope
	require.NoError(t, json.Unmarshal([]byte(line), &envelope))
	assert.Equal(t, "get_star", envelope.Tool)
	assert.True(t, envelope.Success)
	assert.Empty(t, envelope.Error)

	line = a.formatResult(inv, nil, errors.New("star not found"))
	require.NoError(t, json.Unmarshal([]byte(line), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "star not found", envelope.Error)
}

func TestProcessDispatchesEveryInvocation(t *testing.T) {
	a := newTestApp(t)
	a.cfg.JSONOutput = true

	var out strings.Builder
	a.process(context.Background(), "first <get_current_directory> then <get_star Sirius> done", &out)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first, second invocationEnvelope
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "get_current_directory", first.Tool)
	assert.Equal(t, "get_star", second.Tool)
	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, 2, a.session.InvocationsRun())
}
