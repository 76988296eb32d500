package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/grocery/internal/offline"
	"github.com/mesh-intelligence/grocery/internal/server"
	"github.com/mesh-intelligence/grocery/internal/sqlite"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

// env is an isolated CLI environment: config and data directories plus an
// item API backed by its own SQLite store.
type env struct {
	configDir string
	dataDir   string
	apiURL    string
	server    *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	for _, key := range []string{"GROCERY_API_URL", "API_URL", "PORT", "GROCERY_LISTEN", "GROCERY_LOG_LEVEL", "GROCERY_LOG_FORMAT", "GROCERY_DATA_DIR", "GROCERY_CONFIG_DIR"} {
		t.Setenv(key, "")
	}

	backend := sqlite.NewBackend()
	require.NoError(t, backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { backend.Detach() })
	srv, err := server.New(backend, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &env{
		configDir: t.TempDir(),
		dataDir:   t.TempDir(),
		apiURL:    ts.URL + server.BasePath,
		server:    ts,
	}
}

func (e *env) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--api-url", e.apiURL}, args...)
	code := Run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (e *env) view(t *testing.T, args ...string) offline.View {
	t.Helper()
	code, stdout, stderr := e.run(t, append(args, "--json")...)
	require.Equal(t, exitSuccess, code, "stderr: %s", stderr)
	var v offline.View
	require.NoError(t, json.Unmarshal([]byte(stdout), &v), stdout)
	return v
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{})
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout.String(), "grocery v"+Version)
	assert.Contains(t, stdout.String(), modulePath)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	code, stdout, stderr := e.run(t, "init")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stdout, "Grocery initialized successfully")

	data, err := os.ReadFile(filepath.Join(e.configDir, configFileExt))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "5s", cfg.SyncInterval)

	assert.FileExists(t, filepath.Join(e.dataDir, "items.jsonl"))
	assert.FileExists(t, filepath.Join(e.dataDir, types.QueueSlotKey+".json"))

	code, _, _ = e.run(t, "init")
	assert.Equal(t, exitSuccess, code, "init is idempotent")
}

func TestAddListDoneRm(t *testing.T) {
	e := newEnv(t)

	v := e.view(t, "add", "Greek", "yogurt")
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Greek yogurt", v.Items[0].Text)
	assert.False(t, v.Items[0].Pending)
	id := v.Items[0].ID

	v = e.view(t, "list")
	require.Len(t, v.Items, 1)
	assert.Equal(t, 1, v.Total)

	v = e.view(t, "done", id)
	assert.True(t, v.Items[0].Completed)
	assert.Equal(t, 1, v.Completed)

	v = e.view(t, "rm", id)
	assert.Empty(t, v.Items)
}

func TestAddRejectsBlankText(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run(t, "add", "   ")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, types.MsgTextRequired)
}

func TestDoneUnknownItem(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run(t, "done", "does-not-exist")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "not found")
}

func TestSeed(t *testing.T) {
	e := newEnv(t)
	v := e.view(t, "seed")
	texts := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		texts = append(texts, item.Text)
	}
	assert.ElementsMatch(t, offline.DefaultItems, texts)
}

func TestOfflineAddThenSync(t *testing.T) {
	e := newEnv(t)
	online := e.apiURL

	down := httptest.NewServer(http.NotFoundHandler())
	e.apiURL = down.URL + server.BasePath
	down.Close()

	code, stdout, stderr := e.run(t, "add", "Milk", "--json")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, stderr, "will retry")
	var v offline.View
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	require.Len(t, v.Items, 1)
	assert.True(t, v.Items[0].Pending)
	assert.True(t, strings.HasPrefix(v.Items[0].ID, types.TempIDPrefix))

	code, _, stderr = e.run(t, "sync")
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, stderr, "still queued")

	e.apiURL = online
	v = e.view(t, "sync")
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Milk", v.Items[0].Text)
	assert.False(t, v.Items[0].Pending)
	assert.False(t, v.Items[0].Completed)
}

func TestRmQueuedItemStaysLocal(t *testing.T) {
	e := newEnv(t)
	online := e.apiURL

	down := httptest.NewServer(http.NotFoundHandler())
	e.apiURL = down.URL + server.BasePath
	down.Close()
	code, stdout, _ := e.run(t, "add", "Eggs", "--json")
	require.Equal(t, exitSuccess, code)
	var v offline.View
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	tempID := v.Items[0].ID

	e.apiURL = online
	v = e.view(t, "rm", tempID)
	assert.Empty(t, v.Items)

	v = e.view(t, "sync")
	assert.Empty(t, v.Items, "removed item was never sent")
}

func TestTableOutput(t *testing.T) {
	e := newEnv(t)
	code, _, _ := e.run(t, "add", "Bread")
	require.Equal(t, exitSuccess, code)

	code, stdout, _ := e.run(t, "list")
	require.Equal(t, exitSuccess, code)
	assert.Contains(t, stdout, "Bread")
	assert.Contains(t, stdout, "1 items, 0 completed")
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileExt), []byte("backend: mongo\n"), 0o644))

	code, _, stderr := e.run(t, "list")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "backend")
}

func TestUnknownCommand(t *testing.T) {
	code := Run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitUserError, code)
}
