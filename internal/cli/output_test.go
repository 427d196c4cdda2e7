package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error("QUOTA_EXCEEDED", "result exceeds 2 rows", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
	assert.Equal(t, "result exceeds 2 rows", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("INTERRUPTED", "query cancelled", nil))
	assert.Equal(t, "Error [INTERRUPTED]: query cancelled\n", buf.String())
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(LoadResult{Files: 1, Parsed: 3, Written: 2}))
	assert.Equal(t, "3 statements parsed from 1 files, 2 written\n", buf.String())
}

func sampleResult() *engine.Result {
	s, n := ir.NewVariable("s"), ir.NewVariable("n")
	return &engine.Result{
		QueryID: "q-1",
		Vars:    []ir.Variable{s, n},
		Rows: []ir.Binding{
			ir.EmptyBinding().With(s, ir.NewURI("http://example.org/carol")).With(n, ir.NewPlainLiteral("Carol")),
			ir.EmptyBinding().With(s, ir.NewURI("http://example.org/dave")),
		},
		Duration: 1500 * time.Microsecond,
	}
}

func TestOutputFormatter_RowsText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Rows(sampleResult()))
	out := buf.String()
	assert.Contains(t, out, "?s")
	assert.Contains(t, out, `<http://example.org/carol>  "Carol"`)
	assert.Contains(t, out, "<http://example.org/dave>   -")
	assert.Contains(t, out, "(2 rows, 1.5ms)")
}

func TestOutputFormatter_RowsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Rows(sampleResult()))
	assert.Contains(t, buf.String(), `"<http://example.org/carol>"`)

	var resp struct {
		Status  string     `json:"status"`
		QueryID string     `json:"query_id"`
		Data    ResultData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "q-1", resp.QueryID)
	assert.Equal(t, []string{"s", "n"}, resp.Data.Vars)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, `"Carol"`, resp.Data.Rows[0]["n"])
	_, bound := resp.Data.Rows[1]["n"]
	assert.False(t, bound)
	assert.Equal(t, int64(1), resp.Data.DurationMS)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}
