package offline

import (
	"context"

	"github.com/mesh-intelligence/grocery/internal/logging"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

type entryState int

const (
	statePending entryState = iota
	stateSyncing
	stateReconciled
	stateAbandoned
)

func (s entryState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateSyncing:
		return "syncing"
	case stateReconciled:
		return "reconciled"
	case stateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// entry is a queued item and its position in the sync lifecycle.
type entry struct {
	item  types.QueuedItem
	state entryState
	// persisted is set once the entry is known to be in the slot.
	persisted bool
	// storedID is the store's id after reconciliation.
	storedID string
}

// Sync flushes the queue to the store, including entries other clients
// sharing the slot queued. With an empty queue it does nothing.
//
// At most one pass runs at a time. A call made while a pass is in flight asks
// the running caller for one more pass and waits until the queue settles or
// ctx is done.
func (c *Client) Sync(ctx context.Context) {
	c.mu.Lock()
	if c.syncing {
		c.rerun = true
		settled := c.settled
		c.mu.Unlock()
		select {
		case <-settled:
		case <-ctx.Done():
		}
		return
	}
	if len(c.queued) == 0 && !c.slotPendingLocked() {
		c.mu.Unlock()
		return
	}
	c.syncing = true
	c.settled = make(chan struct{})
	c.mu.Unlock()
	c.notify()

	for {
		remaining := c.syncPass(ctx)

		c.mu.Lock()
		again := c.rerun && remaining > 0 && ctx.Err() == nil
		c.rerun = false
		if !again {
			c.syncing = false
			close(c.settled)
			c.settled = nil
		}
		c.mu.Unlock()
		if again {
			continue
		}

		c.notify()
		if remaining == 0 {
			c.Refresh(ctx)
		}
		return
	}
}

// syncPass attempts one create per pending entry in insertion order and
// returns the number of entries still queued. The pass holds the slot's sync
// claim, so clients sharing the slot never send the same entry twice.
func (c *Client) syncPass(ctx context.Context) int {
	release, err := c.slot.Claim(ctx, types.QueueSlotKey)
	if err != nil {
		c.logger.Debug("sync claim not acquired", logging.Error(err))
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.queued)
	}
	defer release()

	c.mu.Lock()
	c.adoptSlotLocked()
	batch := make([]*entry, 0, len(c.queued))
	for _, e := range c.queued {
		if e.state == statePending {
			batch = append(batch, e)
		}
	}
	c.mu.Unlock()
	c.notify()

	var synced, failed int
	for _, e := range batch {
		c.mu.Lock()
		if e.state != statePending {
			c.mu.Unlock()
			continue
		}
		if e.persisted && !c.slotHoldsLocked(e.item.TempID) {
			c.forgetLocked(e)
			c.mu.Unlock()
			c.notify()
			continue
		}
		e.state = stateSyncing
		c.mu.Unlock()

		item, err := c.store.Create(ctx, e.item.Text)

		c.mu.Lock()
		switch {
		case err != nil:
			if e.state == stateSyncing {
				e.state = statePending
			}
			c.lastError = MsgAddFailed
			failed++
		case e.state == stateAbandoned:
			c.mu.Unlock()
			c.discardAbandoned(ctx, item.ID)
			continue
		default:
			e.state = stateReconciled
			e.storedID = item.ID
			c.reconcileLocked(e.item.TempID, *item)
			synced++
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Debug("queued item not synced",
				logging.String(logging.FieldItemID, e.item.TempID),
				logging.Error(err))
		}
		c.notify()
	}

	c.mu.Lock()
	reconciled := make(map[string]*entry)
	surviving := c.queued[:0:0]
	for _, e := range c.queued {
		if e.state == stateReconciled {
			reconciled[e.item.TempID] = e
		} else {
			surviving = append(surviving, e)
		}
	}
	c.queued = surviving
	var orphans []string
	if len(reconciled) > 0 {
		c.updateSlotLocked(func(queue []types.QueuedItem, fromSlot bool) []types.QueuedItem {
			orphans = orphans[:0]
			present := make(map[string]bool, len(reconciled))
			kept := queue[:0:0]
			for _, q := range queue {
				if _, done := reconciled[q.TempID]; done {
					present[q.TempID] = true
					continue
				}
				kept = append(kept, q)
			}
			if fromSlot {
				for tempID, e := range reconciled {
					if e.persisted && !present[tempID] {
						orphans = append(orphans, e.storedID)
					}
				}
			}
			return kept
		})
	}
	for _, id := range orphans {
		c.removeItemLocked(id)
	}
	remaining := len(c.queued)
	c.mu.Unlock()

	for _, id := range orphans {
		c.discardAbandoned(ctx, id)
	}
	if len(orphans) > 0 {
		c.notify()
	}
	if len(batch) > 0 {
		c.logger.Info("sync pass finished",
			logging.Int("synced", synced),
			logging.Int("failed", failed),
			logging.Int("queued", remaining),
			logging.String(logging.FieldEventType, "sync_pass"))
	}
	return remaining
}

// adoptSlotLocked brings the queue in line with the slot, which other clients
// sharing the data directory also write. Entries they appended are adopted in
// slot order. Persisted entries missing from the slot were synced or deleted
// elsewhere and are forgotten. Entries never persisted are kept.
func (c *Client) adoptSlotLocked() {
	stored, ok := c.loadSlotLocked()
	if !ok {
		return
	}
	known := make(map[string]*entry, len(c.queued))
	for _, e := range c.queued {
		known[e.item.TempID] = e
	}
	inSlot := make(map[string]struct{}, len(stored))
	next := make([]*entry, 0, len(stored)+len(c.queued))
	for _, q := range stored {
		if _, dup := inSlot[q.TempID]; dup {
			continue
		}
		inSlot[q.TempID] = struct{}{}
		if e, ok := known[q.TempID]; ok {
			next = append(next, e)
			continue
		}
		next = append(next, &entry{item: q, state: statePending, persisted: true})
	}
	for _, e := range c.queued {
		if _, ok := inSlot[e.item.TempID]; ok {
			continue
		}
		if e.persisted {
			e.state = stateAbandoned
			c.removeItemLocked(e.item.TempID)
			continue
		}
		next = append(next, e)
	}
	c.queued = next
}

// slotHoldsLocked reports whether tempID is still in the slot. An unreadable
// slot counts as holding it.
func (c *Client) slotHoldsLocked(tempID string) bool {
	stored, ok := c.loadSlotLocked()
	if !ok {
		return true
	}
	return queueHas(stored, tempID)
}

// slotPendingLocked reports whether the slot holds entries, possibly queued
// by another client.
func (c *Client) slotPendingLocked() bool {
	stored, ok := c.loadSlotLocked()
	return ok && len(stored) > 0
}

// forgetLocked drops an entry another client removed from the slot.
func (c *Client) forgetLocked(e *entry) {
	e.state = stateAbandoned
	if idx := c.queueIndex(e.item.TempID); idx >= 0 {
		c.queued = append(c.queued[:idx:idx], c.queued[idx+1:]...)
	}
	c.removeItemLocked(e.item.TempID)
}

// reconcileLocked replaces the pending item shown under tempID with the stored
// item, keeping its position. If the pending item is gone the stored item is
// prepended. Any other copy of the stored item is removed.
func (c *Client) reconcileLocked(tempID string, item types.Item) {
	kept := make([]types.Item, 0, len(c.items)+1)
	placed := false
	for _, existing := range c.items {
		switch existing.ID {
		case tempID:
			if !placed {
				kept = append(kept, item)
				placed = true
			}
		case item.ID:
		default:
			kept = append(kept, existing)
		}
	}
	if !placed {
		kept = append([]types.Item{item}, kept...)
	}
	c.items = kept
	c.reconciles++
}

// discardAbandoned deletes the item created for an entry the user removed
// while its create was in flight.
func (c *Client) discardAbandoned(ctx context.Context, id string) {
	if _, err := c.store.Delete(ctx, id); err != nil {
		c.logger.Warn("removing abandoned item failed",
			logging.String(logging.FieldItemID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "item deleted while syncing may reappear"))
		return
	}
	c.logger.Debug("removed abandoned item", logging.String(logging.FieldItemID, id))
}
