// This file loads items.jsonl into SQLite on attach.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// loadItemsJSONL reads items.jsonl from dataDir and inserts every valid
// document. Loading is transactional: all succeed or the table stays empty.
// Malformed lines, documents with invalid text or timestamps, and duplicate
// ids are skipped. Unknown fields are ignored.
func loadItemsJSONL(db *sql.DB, dataDir string) error {
	records, err := readJSONL(filepath.Join(dataDir, itemsJSONL))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR IGNORE INTO items (item_id, text, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var doc itemJSONL
		if err := json.Unmarshal(rec, &doc); err != nil {
			continue
		}
		if doc.ItemID == "" {
			continue
		}
		text, err := types.NormalizeText(doc.Text)
		if err != nil {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, doc.CreatedAt)
		if err != nil {
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339Nano, doc.UpdatedAt)
		if err != nil {
			updatedAt = createdAt
		}
		if _, err := stmt.Exec(doc.ItemID, text, boolToInt(doc.Completed), formatTime(createdAt), formatTime(updatedAt)); err != nil {
			return fmt.Errorf("loading item %s: %w", doc.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}
