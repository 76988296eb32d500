// This file implements the items table accessor for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// timeLayout is a fixed-width UTC layout so that created_at sorts
// lexicographically in the same order as chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectItemColumns = "SELECT item_id, text, completed, created_at, updated_at FROM items"

// itemsTable hydrates and dehydrates between SQLite rows and types.Item and
// persists every change to items.jsonl. Callers serialize writes.
type itemsTable struct {
	db      *sql.DB
	dataDir string
}

// itemJSONL is the document format of one line in items.jsonl.
type itemJSONL struct {
	ItemID    string `json:"item_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (t *itemsTable) list(ctx context.Context) ([]types.Item, error) {
	rows, err := t.db.QueryContext(ctx, selectItemColumns+" ORDER BY created_at DESC, item_id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []types.Item{}
	for rows.Next() {
		item, err := hydrateItem(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

func (t *itemsTable) get(ctx context.Context, id string) (*types.Item, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := t.db.QueryRowContext(ctx, selectItemColumns+" WHERE item_id = ?", id)
	item, err := hydrateItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return item, nil
}

func (t *itemsTable) create(ctx context.Context, text string) (*types.Item, error) {
	normalized, err := types.NormalizeText(text)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &types.Item{
		ID:        generateUUID(),
		Text:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = t.db.ExecContext(ctx,
		"INSERT INTO items (item_id, text, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		item.ID, item.Text, boolToInt(item.Completed), formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}

	if err := t.persistJSONL(ctx); err != nil {
		return nil, fmt.Errorf("persisting %s: %w", itemsJSONL, err)
	}
	return item, nil
}

func (t *itemsTable) update(ctx context.Context, id string, u types.ItemUpdate) (*types.Item, error) {
	item, err := t.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := item.Apply(u); err != nil {
		return nil, err
	}

	_, err = t.db.ExecContext(ctx,
		"UPDATE items SET text = ?, completed = ?, updated_at = ? WHERE item_id = ?",
		item.Text, boolToInt(item.Completed), formatTime(item.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}

	if err := t.persistJSONL(ctx); err != nil {
		return nil, fmt.Errorf("persisting %s: %w", itemsJSONL, err)
	}
	return item, nil
}

func (t *itemsTable) delete(ctx context.Context, id string) (*types.Item, error) {
	item, err := t.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := t.db.ExecContext(ctx, "DELETE FROM items WHERE item_id = ?", id); err != nil {
		return nil, fmt.Errorf("deleting item %s: %w", id, err)
	}

	if err := t.persistJSONL(ctx); err != nil {
		return nil, fmt.Errorf("persisting %s: %w", itemsJSONL, err)
	}
	return item, nil
}

// persistJSONL reads all items from SQLite in creation order and rewrites
// items.jsonl using the atomic write pattern.
func (t *itemsTable) persistJSONL(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx, selectItemColumns+" ORDER BY created_at ASC, item_id ASC")
	if err != nil {
		return fmt.Errorf("querying items for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec itemJSONL
		var completed int
		if err := rows.Scan(&rec.ItemID, &rec.Text, &completed, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return fmt.Errorf("scanning item for JSONL: %w", err)
		}
		rec.Completed = completed != 0
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling item for JSONL: %w", err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating items for JSONL: %w", err)
	}

	return writeJSONL(filepath.Join(t.dataDir, itemsJSONL), records)
}

// hydrateItem converts a single SQLite row into a *types.Item.
func hydrateItem(row scanner) (*types.Item, error) {
	var item types.Item
	var completed int
	var createdAt, updatedAt string
	if err := row.Scan(&item.ID, &item.Text, &completed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	item.Completed = completed != 0

	var err error
	item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
