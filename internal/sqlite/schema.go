package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL for the items table.
const (
	createItems = `CREATE TABLE items (
    item_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxItemsCreated = `CREATE INDEX idx_items_created ON items(created_at DESC, item_id DESC);`
)

// schemaDDL lists all statements in execution order.
var schemaDDL = []string{
	createItems,
	idxItemsCreated,
}

// createSchema executes schemaDDL against a fresh database.
func createSchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
