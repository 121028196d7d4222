package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteconn "github.com/hyperjump/solrdex/internal/connection/sqlite"
)

const testConfig = `
test:
  log_level: "OFF"
  backend: sqlite
  sqlite:
    database_path: ./data/documents.db
  types:
    - name: Post
      parent: BaseClass
      fields:
        - {name: title, type: text}
        - {name: category_ids, type: integer, multiple: true}
    - name: Comment
      parent: BaseClass
      fields:
        - {name: body, type: text}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// testEnv writes a config and a record file, returning the config path and the
// record file path.
func testEnv(t *testing.T) (string, string) {
	t.Helper()
	t.Setenv("SOLR_URL", "")
	t.Setenv("WEBSOLR_URL", "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "solrdex.yml")
	writeFile(t, cfgPath, testConfig)
	posts := filepath.Join(dir, "posts.json")
	writeFile(t, posts, `[{"type":"Post","id":1,"title":"Hello","category_ids":[3,14]},{"type":"Post","id":2,"title":"World"},{"type":"Comment","id":9,"body":"Hi"}]`)
	return cfgPath, posts
}

func count(t *testing.T, cfgPath, typeName string) int {
	t.Helper()
	conn, err := sqliteconn.Open(filepath.Join(filepath.Dir(cfgPath), "data", "documents.db"))
	require.NoError(t, err)
	defer conn.Close()
	n, err := conn.Count(context.Background(), typeName)
	require.NoError(t, err)
	return n
}

func TestReorderArgs(t *testing.T) {
	newFS := func() *flag.FlagSet {
		fs, _ := newFlagSet("test")
		fs.Bool("commit", false, "")
		fs.String("output", "text", "")
		return fs
	}
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"flags first returns unchanged", []string{"-commit", "Post", "1"}, []string{"-commit", "Post", "1"}},
		{"trailing bool flag moves first", []string{"Post", "1", "-commit"}, []string{"-commit", "Post", "1"}},
		{"flag between positionals keeps order", []string{"Post", "-commit", "1"}, []string{"-commit", "Post", "1"}},
		{"value flags keep their value", []string{"a.json", "-output", "json", "b.json"}, []string{"-output", "json", "a.json", "b.json"}},
		{"inline values", []string{"a.json", "--output=json"}, []string{"--output=json", "a.json"}},
		{"stdin marker is positional", []string{"-", "-env", "test"}, []string{"-env", "test", "-"}},
		{"double dash ends flags", []string{"a", "-commit", "--", "-x"}, []string{"-commit", "--", "a", "-x"}},
		{"empty args", []string{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, reorderArgs(newFS(), tt.args))
		})
	}
}

func TestLoadConfig_LocalFallback(t *testing.T) {
	t.Setenv("SOLR_URL", "")
	t.Setenv("WEBSOLR_URL", "")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, localConfigName), testConfig)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := loadConfig(defaultConfigPath, "test")
	require.NoError(t, err)
	assert.Equal(t, localConfigName, filepath.Base(path))
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Len(t, cfg.Types, 2)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	writeFile(t, path, "test:\n  backend: elastic\n")
	_, _, err := loadConfig(path, "test")
	assert.Error(t, err, "expected validation error")
}

func TestIndexRemoveCommands(t *testing.T) {
	cfgPath, posts := testEnv(t)
	common := []string{"-config", cfgPath, "-env", "test"}
	var out bytes.Buffer

	require.NoError(t, run("index", append([]string{posts, "-commit"}, common...), &out))
	assert.Contains(t, out.String(), "indexed 3 record(s) and committed")
	assert.Equal(t, 3, count(t, cfgPath, "BaseClass"))

	out.Reset()
	require.NoError(t, run("remove", append([]string{"Post", "1", "-commit"}, common...), &out))
	assert.Equal(t, 1, count(t, cfgPath, "Post"), "Post documents after remove")

	require.NoError(t, run("remove-all", append([]string{"-commit", "Comment"}, common...), &out))
	assert.Equal(t, 1, count(t, cfgPath, ""), "documents after remove-all Comment")

	require.NoError(t, run("remove-all", append([]string{"-commit"}, common...), &out))
	assert.Zero(t, count(t, cfgPath, ""), "documents after remove-all")
}

func TestIndexCommand_Errors(t *testing.T) {
	cfgPath, _ := testEnv(t)
	var out bytes.Buffer
	users := filepath.Join(filepath.Dir(cfgPath), "users.json")
	writeFile(t, users, `{"type":"User","id":1}`)

	assert.Error(t, run("index", []string{"-config", cfgPath, "-env", "test", users}, &out), "unconfigured type")
	assert.ErrorIs(t, run("index", []string{"-config", cfgPath, "-env", "test"}, &out), errUsage, "no files")
	assert.ErrorIs(t, run("remove", []string{"-config", cfgPath, "-env", "test", "Post"}, &out), errUsage, "missing id")
}

func TestPreviewCommand(t *testing.T) {
	cfgPath, posts := testEnv(t)
	var out bytes.Buffer
	require.NoError(t, run("preview", []string{"-config", cfgPath, "-env", "test", "-output", "json", posts}, &out))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &docs), out.String())
	require.Len(t, docs, 3)
	assert.Equal(t, "Post 1", docs[0]["id"])
	assert.Equal(t, "Hello", docs[0]["title_text"])
	assert.Zero(t, count(t, cfgPath, ""), "preview should not index")
}

func TestTypesAndCheckCommands(t *testing.T) {
	cfgPath, _ := testEnv(t)
	var out bytes.Buffer
	require.NoError(t, run("types", []string{"-config", cfgPath, "-env", "test"}, &out))
	assert.Contains(t, out.String(), "Post (BaseClass > Post)")

	out.Reset()
	require.NoError(t, run("check", []string{"-config", cfgPath, "-env", "test"}, &out))
	for _, sub := range []string{"environment: test", "backend:     sqlite", "types:       2"} {
		assert.Contains(t, out.String(), sub)
	}
}

func TestRun_VersionAndUnknown(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("version", nil, &out))
	assert.Contains(t, out.String(), "solrdex version")

	out.Reset()
	assert.ErrorIs(t, run("frobnicate", nil, &out), errUsage)
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}
