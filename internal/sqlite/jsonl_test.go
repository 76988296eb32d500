// Tests for JSONL persistence in the SQLite backend.
package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

func readItemDocs(t *testing.T, dataDir string) []itemJSONL {
	t.Helper()
	records, err := readJSONL(filepath.Join(dataDir, itemsJSONL))
	require.NoError(t, err)
	docs := make([]itemJSONL, 0, len(records))
	for _, rec := range records {
		var doc itemJSONL
		require.NoError(t, json.Unmarshal(rec, &doc))
		docs = append(docs, doc)
	}
	return docs
}

func TestJSONLFileInitializedEmpty(t *testing.T) {
	b := setupBackend(t)

	info, err := os.Stat(filepath.Join(b.DataDir(), itemsJSONL))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestItemMutationsPersistedToJSONL(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	milk, err := b.Create(ctx, "Milk")
	require.NoError(t, err)
	bread, err := b.Create(ctx, "Bread")
	require.NoError(t, err)

	docs := readItemDocs(t, b.DataDir())
	require.Len(t, docs, 2)
	assert.Equal(t, milk.ID, docs[0].ItemID, "documents are stored in creation order")
	assert.Equal(t, bread.ID, docs[1].ItemID)

	done := true
	_, err = b.Update(ctx, milk.ID, types.ItemUpdate{Completed: &done})
	require.NoError(t, err)
	docs = readItemDocs(t, b.DataDir())
	assert.True(t, docs[0].Completed)

	_, err = b.Delete(ctx, bread.ID)
	require.NoError(t, err)
	docs = readItemDocs(t, b.DataDir())
	require.Len(t, docs, 1)
	assert.Equal(t, milk.ID, docs[0].ItemID)
}

func TestLoadSkipsInvalidDocuments(t *testing.T) {
	dataDir := t.TempDir()
	lines := []string{
		`{"item_id":"a","text":"Milk","completed":false,"created_at":"2026-01-02T10:00:00Z","updated_at":"2026-01-02T10:00:00Z"}`,
		`not json at all`,
		``,
		`{"item_id":"","text":"No id","created_at":"2026-01-02T10:00:00Z"}`,
		`{"item_id":"b","text":"   ","created_at":"2026-01-02T10:00:00Z"}`,
		`{"item_id":"c","text":"Bad time","created_at":"yesterday"}`,
		`{"item_id":"d","text":"Bread","completed":true,"created_at":"2026-01-03T10:00:00Z","updated_at":"2026-01-03T11:00:00Z","extra":"ignored"}`,
		`{"item_id":"a","text":"Duplicate","created_at":"2026-01-04T10:00:00Z","updated_at":"2026-01-04T10:00:00Z"}`,
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, itemsJSONL), []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}))
	defer b.Detach()

	items, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d", items[0].ID)
	assert.True(t, items[0].Completed)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, "Milk", items[1].Text, "first document wins on duplicate ids")
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	records := []json.RawMessage{json.RawMessage(`{"a":1}`), json.RawMessage(`{"b":2}`)}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}
