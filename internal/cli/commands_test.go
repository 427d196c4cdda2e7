package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/config"
)

const peopleData = `PREFIX ex: <http://example.org/>
ex:alice ex:age 17 ; ex:name "Alice" .
ex:bob ex:age 18 ; ex:name "Bob" ; ex:knows ex:carol .
ex:carol ex:age 30 ; ex:name "Carol" .
`

// execute runs the CLI with a config file in dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "kbgraph.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func loadedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "people.ttl")
	require.NoError(t, os.WriteFile(data, []byte(peopleData), 0o644))

	out, err := execute(t, dir, "load", data)
	require.NoError(t, err)
	assert.Equal(t, "7 statements parsed from 1 files, 7 written\n", out)
	return dir
}

func TestLoadAndQuery(t *testing.T) {
	dir := loadedDir(t)

	out, err := execute(t, dir, "query", `?s <http://example.org/knows> ?o .`)
	require.NoError(t, err)
	assert.Contains(t, out, "<http://example.org/bob>")
	assert.Contains(t, out, "(1 rows,")

	out, err = execute(t, dir, "--format", "json", "query",
		`PREFIX ex: <http://example.org/> ?s ex:age ?a . FILTER(?a >= 18)`)
	require.NoError(t, err)
	var resp struct {
		Data ResultData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"s", "a"}, resp.Data.Vars)
	assert.Len(t, resp.Data.Rows, 2)
}

func TestLoad_Delete(t *testing.T) {
	dir := loadedDir(t)
	data := filepath.Join(dir, "retract.ttl")
	require.NoError(t, os.WriteFile(data, []byte(`<http://example.org/bob> <http://example.org/knows> <http://example.org/carol> .`), 0o644))

	out, err := execute(t, dir, "load", "--delete", data)
	require.NoError(t, err)
	assert.Contains(t, out, "1 written")

	out, err = execute(t, dir, "query", `?s <http://example.org/knows> ?o .`)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 rows,")
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "bad.ttl")
	require.NoError(t, os.WriteFile(data, []byte("?s <http://example.org/p> ."), 0o644))

	_, err := execute(t, dir, "load", data)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQuery_ArgumentErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "query")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, dir, "query", "?s ?p")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQuery_FromFile(t *testing.T) {
	dir := loadedDir(t)
	q := filepath.Join(dir, "names.rq")
	require.NoError(t, os.WriteFile(q, []byte(`?s <http://example.org/name> ?n .`), 0o644))

	out, err := execute(t, dir, "query", "-f", q)
	require.NoError(t, err)
	assert.Contains(t, out, "(3 rows,")
}

func TestIndexLifecycle(t *testing.T) {
	dir := loadedDir(t)

	out, err := execute(t, dir, "index", "create",
		"--name", "age",
		"--predicate", "http://example.org/age",
		"--function", "http://example.org/ageAbove,>")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "http://example.org/ageAbove >")

	cfg, err := config.Load(filepath.Join(dir, "kbgraph.yaml"))
	require.NoError(t, err)
	require.Len(t, cfg.Indexes, 1)
	assert.Equal(t, "age", cfg.Indexes[0].Name)
	assert.Equal(t, []config.Function{{URI: "http://example.org/ageAbove", Op: ">"}}, cfg.Indexes[0].Functions)

	out, err = execute(t, dir, "--format", "json", "index", "list")
	require.NoError(t, err)
	var resp struct {
		Data IndexList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Indexes, 1)
	assert.Equal(t, int64(3), resp.Data.Indexes[0].Size)
	assert.Equal(t, "memory", resp.Data.Indexes[0].Backend)

	out, err = execute(t, dir, "query", `?s <http://example.org/ageAbove> 17 . ?s <http://example.org/name> ?n .`)
	require.NoError(t, err)
	assert.Contains(t, out, `"Bob"`)
	assert.Contains(t, out, `"Carol"`)
	assert.NotContains(t, out, `"Alice"`)

	out, err = execute(t, dir, "explain", `?s <http://example.org/age> ?a . ?s <http://example.org/name> ?n .`)
	require.NoError(t, err)
	assert.Contains(t, out, "[index]")

	out, err = execute(t, dir, "index", "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "age")

	out, err = execute(t, dir, "index", "drop", "age")
	require.NoError(t, err)
	assert.Equal(t, "No indexes.\n", out)

	// without the index the function is an ordinary predicate
	out, err = execute(t, dir, "query", `?s <http://example.org/ageAbove> 17 .`)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 rows,")
}

func TestQuery_QuotaExceeded(t *testing.T) {
	dir := loadedDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kbgraph.yaml"), []byte("max_rows: 1\n"), 0o644))

	out, err := execute(t, dir, "query", `?s <http://example.org/name> ?n .`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [QUOTA_EXCEEDED]")
}

func TestIndexCreate_Rejected(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "index", "create", "--name", "age",
		"--predicate", "http://example.org/age", "--function", "no-op-given")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, dir, "index", "create", "--name", "age",
		"--predicate", "http://example.org/age", "--function", "http://example.org/ne,!=")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, statErr := os.Stat(filepath.Join(dir, "kbgraph.yaml"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIndexDrop_Unknown(t *testing.T) {
	_, err := execute(t, t.TempDir(), "index", "drop", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseFunction(t *testing.T) {
	f, err := parseFunction("http://example.org/f,<=")
	require.NoError(t, err)
	assert.Equal(t, config.Function{URI: "http://example.org/f", Op: "<="}, f)

	for _, bad := range []string{"", ",<", "http://example.org/f,", "http://example.org/f"} {
		_, err := parseFunction(bad)
		assert.Error(t, err, bad)
	}
}

const scenarioYAML = `name: adults
prefixes:
  ex: http://example.org/
data: |
  ex:alice ex:age 17 .
  ex:carol ex:age 30 .
indexes:
  - name: age
    predicate: http://example.org/age
    functions:
      - { uri: http://example.org/ageAbove, op: ">" }
steps:
  - name: adults
    query: "?s ex:ageAbove 18 ."
    expect:
      rows: 1
`

func scenarioDir(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.Mkdir(scenarios, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "adults.yaml"), []byte(scenarioYAML), 0o644))
	return dir, scenarios
}

func TestTestCommand(t *testing.T) {
	dir, scenarios := scenarioDir(t)

	out, err := execute(t, dir, "test", scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adults")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out, err = execute(t, dir, "test", "--update", scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")
	golden := filepath.Join(scenarios, "golden", "adults.golden")
	require.FileExists(t, golden)

	_, err = execute(t, dir, "test", scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = execute(t, dir, "--format", "json", "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "golden")
}

func TestTestCommand_Filter(t *testing.T) {
	dir, scenarios := scenarioDir(t)

	out, err := execute(t, dir, "test", "--filter", "range-*", scenarios)
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	_, err = execute(t, dir, "test", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
