package offline

import (
	"time"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// DisplayItem is one row of the display list. Pending rows are queued items
// the store has not confirmed yet.
type DisplayItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Merge builds the display list: queued items first, in queue order, followed
// by items whose id is not already shown. No id appears twice.
func Merge(queued []types.QueuedItem, items []types.Item) []DisplayItem {
	out := make([]DisplayItem, 0, len(queued)+len(items))
	seen := make(map[string]struct{}, len(queued)+len(items))
	for _, q := range queued {
		if _, dup := seen[q.TempID]; dup {
			continue
		}
		seen[q.TempID] = struct{}{}
		out = append(out, DisplayItem{ID: q.TempID, Text: q.Text, Pending: true})
	}
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, DisplayItem{
			ID:        item.ID,
			Text:      item.Text,
			Completed: item.Completed,
			CreatedAt: item.CreatedAt,
		})
	}
	return out
}
