package types

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks client-generated ids. Store ids never carry it.
const TempIDPrefix = "temp-"

// QueueSlotKey names the local slot that holds the serialized queue.
const QueueSlotKey = "grocery_queue"

// QueuedItem is an item created on the client and not yet confirmed by the
// store. It is discarded once the store returns the persisted Item.
type QueuedItem struct {
	TempID string `json:"tempId"`
	Text   string `json:"text"`
}

// NewTempID returns a fresh client-side id carrying TempIDPrefix.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was generated by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
