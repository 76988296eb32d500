package offline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/grocery/internal/logging"
	"github.com/mesh-intelligence/grocery/internal/remote"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

// DefaultSyncInterval is how often a started client attempts a sync pass.
const DefaultSyncInterval = 5 * time.Second

// Messages stored in View.LastError.
const (
	MsgFetchUnreachable = "Failed to fetch items (backend unreachable)"
	MsgFetchFailed      = "Failed to fetch items"
	MsgAddFailed        = "Failed to add item (will retry)"
	MsgAddDefaults      = "Failed to add default items"
	MsgDeleteFailed     = "Failed to delete item"
	MsgUpdateFailed     = "Failed to update item"
)

// DefaultItems are the items AddDefaults creates.
var DefaultItems = []string{"Milk", "Bread"}

// Store is the item store contract the client consumes. *remote.Client
// satisfies it.
type Store interface {
	List(ctx context.Context) ([]types.Item, error)
	Create(ctx context.Context, text string) (*types.Item, error)
	Update(ctx context.Context, id, text string, completed bool) (*types.Item, error)
	Delete(ctx context.Context, id string) (*types.Item, error)
}

// Options configures a Client.
type Options struct {
	// SyncInterval is the scheduler period. Zero means DefaultSyncInterval.
	SyncInterval time.Duration
	// Monitor, when set, triggers a sync on every connectivity-restored event
	// while the client is started.
	Monitor *Monitor
	Logger  *slog.Logger
}

// View is a snapshot of the client state for rendering.
type View struct {
	Items     []DisplayItem `json:"items"`
	Loading   bool          `json:"loading"`
	Syncing   bool          `json:"syncing"`
	LastError string        `json:"lastError,omitempty"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
}

// Client is the offline-capable grocery list client. Methods are safe for
// concurrent use. Remote failures are recorded in View().LastError and are
// never returned to the caller.
type Client struct {
	store   Store
	slot    Slot
	monitor *Monitor
	logger  *slog.Logger
	sched   *scheduler

	mu        sync.Mutex
	items     []types.Item
	queued    []*entry
	loading   bool
	syncing   bool
	rerun     bool
	settled   chan struct{}
	lastError string
	// reconciles counts reconciled entries; Refresh uses it to drop lists
	// fetched before a reconcile.
	reconciles uint64

	lifecycle    sync.Mutex
	started      bool
	stopListener func()

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(View)

	background sync.WaitGroup
}

// New creates a client and restores the queue from slot. A missing or
// corrupt slot yields an empty queue.
func New(store Store, slot Slot, opts Options) (*Client, error) {
	if store == nil {
		return nil, errors.New("offline: store is required")
	}
	if slot == nil {
		return nil, errors.New("offline: slot is required")
	}
	interval := opts.SyncInterval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	c := &Client{
		store:   store,
		slot:    slot,
		monitor: opts.Monitor,
		logger:  logging.NewComponentLogger(opts.Logger, "offline"),
		items:   []types.Item{},
		subs:    make(map[int]func(View)),
	}
	c.sched = newScheduler(interval, c.tick)
	c.restoreQueue()
	return c, nil
}

func (c *Client) restoreQueue() {
	data, err := c.slot.Load(types.QueueSlotKey)
	if err != nil {
		c.logger.Warn("queue slot unreadable, starting with empty queue",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_restore_failed"))
		return
	}
	queue, err := DecodeQueue(data)
	if err != nil {
		c.logger.Warn("queue slot corrupt, starting with empty queue",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_corrupt"),
			logging.String(logging.FieldImpact, "pending items from the previous session are dropped"))
		return
	}
	for _, q := range queue {
		c.queued = append(c.queued, &entry{item: q, state: statePending, persisted: true})
	}
	if len(queue) > 0 {
		c.logger.Info("restored queued items", logging.Int("count", len(queue)))
	}
}

// Start fetches the item list, starts the sync scheduler, and registers the
// connectivity listener. Starting a started client is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.lifecycle.Lock()
	if c.started {
		c.lifecycle.Unlock()
		return
	}
	c.started = true
	c.sched.start()
	if c.monitor != nil {
		c.stopListener = c.monitor.OnOnline(c.NotifyOnline)
	}
	c.lifecycle.Unlock()

	c.Refresh(ctx)
}

// Stop cancels the scheduler and deregisters the connectivity listener.
// In-flight passes run to completion. The client can be started again.
func (c *Client) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if !c.started {
		return
	}
	c.started = false
	c.sched.stop()
	if c.stopListener != nil {
		c.stopListener()
		c.stopListener = nil
	}
}

// Wait blocks until sync passes started in the background have finished.
func (c *Client) Wait() {
	c.background.Wait()
}

// NotifyOnline handles a connectivity-restored event: it clears the last
// error and triggers a sync pass in the background.
func (c *Client) NotifyOnline() {
	c.mu.Lock()
	c.lastError = ""
	c.mu.Unlock()
	c.notify()
	c.syncInBackground()
}

func (c *Client) tick() {
	c.Sync(context.Background())
}

func (c *Client) syncInBackground() {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		c.Sync(context.Background())
	}()
}

// Refresh replaces the item list with the store's. A list fetched before an
// entry was reconciled is discarded, since it may lack the reconciled item.
func (c *Client) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.loading = true
	generation := c.reconciles
	c.mu.Unlock()
	c.notify()

	items, err := c.store.List(ctx)

	c.mu.Lock()
	c.loading = false
	stale := err == nil && c.reconciles != generation
	switch {
	case err != nil:
		c.lastError = fetchErrorMessage(err)
	case stale:
	default:
		c.items = append([]types.Item{}, items...)
		c.lastError = ""
	}
	c.mu.Unlock()
	if stale {
		c.logger.Debug("discarded item list fetched before a reconcile")
	}
	if err != nil {
		c.logger.Warn("fetching items failed", logging.Error(err),
			logging.String(logging.FieldEventType, "refresh_failed"))
	}
	c.notify()
}

func fetchErrorMessage(err error) string {
	if remote.IsUnreachable(err) {
		return MsgFetchUnreachable
	}
	return MsgFetchFailed
}

// Add shows text as a pending item, queues it, and starts a sync pass without
// waiting for it. It returns the temporary id, or "" when text is blank or
// rejected.
func (c *Client) Add(ctx context.Context, text string) string {
	id := c.enqueue(text)
	if id != "" {
		c.syncInBackground()
	}
	return id
}

// AddAndWait is Add followed by a sync pass the caller waits for.
func (c *Client) AddAndWait(ctx context.Context, text string) string {
	id := c.enqueue(text)
	if id != "" {
		c.Sync(ctx)
	}
	return id
}

func (c *Client) enqueue(text string) string {
	normalized, err := types.NormalizeText(text)
	if errors.Is(err, types.ErrTextRequired) {
		return ""
	}
	if err != nil {
		c.mu.Lock()
		c.lastError = validationMessage(err)
		c.mu.Unlock()
		c.notify()
		return ""
	}

	q := types.QueuedItem{TempID: types.NewTempID(), Text: normalized}
	e := &entry{item: q, state: statePending}
	c.mu.Lock()
	c.items = append([]types.Item{{ID: q.TempID, Text: q.Text, CreatedAt: time.Now().UTC()}}, c.items...)
	c.queued = append(c.queued, e)
	e.persisted = c.updateSlotLocked(func(queue []types.QueuedItem, _ bool) []types.QueuedItem {
		if queueHas(queue, q.TempID) {
			return queue
		}
		return append(queue, q)
	})
	c.mu.Unlock()
	c.notify()
	return q.TempID
}

func validationMessage(err error) string {
	if errors.Is(err, types.ErrTextTooLong) {
		return "Item name cannot exceed 100 characters"
	}
	return types.MsgTextRequired
}

// Delete removes an item. Queued items are removed locally without a store
// call; stored items are deleted remotely and the list refreshed.
func (c *Client) Delete(ctx context.Context, id string) {
	if c.dropQueued(id) {
		c.notify()
		return
	}

	if _, err := c.store.Delete(ctx, id); err != nil {
		c.fail(MsgDeleteFailed, err, id)
		return
	}
	c.Refresh(ctx)
}

// dropQueued removes a queued entry and its pending item. The entry is marked
// abandoned: a pass that has not sent it skips it, and a pass whose create is
// in flight deletes the created item.
func (c *Client) dropQueued(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.queueIndex(id)
	if idx < 0 {
		return false
	}
	c.queued[idx].state = stateAbandoned
	c.queued = append(c.queued[:idx:idx], c.queued[idx+1:]...)
	c.removeItemLocked(id)
	c.lastError = ""
	c.updateSlotLocked(func(queue []types.QueuedItem, _ bool) []types.QueuedItem {
		return queueWithout(queue, id)
	})
	return true
}

// ToggleComplete flips the completion flag of a stored item. Pending and
// unknown ids are ignored.
func (c *Client) ToggleComplete(ctx context.Context, id string) {
	c.mu.Lock()
	if c.queueIndex(id) >= 0 || types.IsTempID(id) {
		c.mu.Unlock()
		return
	}
	var current *types.Item
	for i := range c.items {
		if c.items[i].ID == id {
			item := c.items[i]
			current = &item
			break
		}
	}
	c.mu.Unlock()
	if current == nil {
		return
	}

	current.Toggle()
	if _, err := c.store.Update(ctx, id, current.Text, current.Completed); err != nil {
		c.fail(MsgUpdateFailed, err, id)
		return
	}
	c.Refresh(ctx)
}

// AddDefaults creates DefaultItems directly in the store and refreshes.
func (c *Client) AddDefaults(ctx context.Context) {
	for _, text := range DefaultItems {
		if _, err := c.store.Create(ctx, text); err != nil {
			c.fail(MsgAddDefaults, err, "")
			return
		}
	}
	c.Refresh(ctx)
}

func (c *Client) fail(msg string, err error, id string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
	c.logger.Warn(msg, logging.Error(err), logging.String(logging.FieldItemID, id))
	c.notify()
}

// View returns a snapshot of the display state.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Client) viewLocked() View {
	items := Merge(c.queueLocked(), c.items)
	v := View{
		Items:     items,
		Loading:   c.loading,
		Syncing:   c.syncing,
		LastError: c.lastError,
		Total:     len(items),
	}
	for _, item := range items {
		if item.Completed {
			v.Completed++
		}
	}
	return v
}

// Items returns a copy of the item list, including pending items shown under
// temporary ids.
func (c *Client) Items() []types.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Item{}, c.items...)
}

// Queued returns a copy of the queue in insertion order.
func (c *Client) Queued() []types.QueuedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueLocked()
}

// OnChange registers fn to receive a View after every state change. The
// returned function deregisters it.
func (c *Client) OnChange(fn func(View)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Client) notify() {
	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	v := c.View()
	for _, fn := range fns {
		fn(v)
	}
}

func (c *Client) queueLocked() []types.QueuedItem {
	out := make([]types.QueuedItem, 0, len(c.queued))
	for _, e := range c.queued {
		out = append(out, e.item)
	}
	return out
}

func (c *Client) queueIndex(id string) int {
	for i, e := range c.queued {
		if e.item.TempID == id {
			return i
		}
	}
	return -1
}

func (c *Client) removeItemLocked(id string) {
	kept := c.items[:0:0]
	for _, item := range c.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// updateSlotLocked applies fn to the queue stored in the slot and writes the
// result back. fromSlot is false when the stored queue was unreadable and fn
// starts from the in-memory queue instead. It reports whether the write
// succeeded; on failure the in-memory queue stays authoritative for this
// session.
func (c *Client) updateSlotLocked(fn func(queue []types.QueuedItem, fromSlot bool) []types.QueuedItem) bool {
	err := c.slot.Update(types.QueueSlotKey, func(data []byte) ([]byte, error) {
		queue, err := DecodeQueue(data)
		if err != nil {
			return EncodeQueue(fn(c.queueLocked(), false))
		}
		return EncodeQueue(fn(queue, true))
	})
	if err != nil {
		c.logger.Error("persisting queue failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_persist_failed"),
			logging.String(logging.FieldErrorHint, "check permissions on the data directory"))
		return false
	}
	return true
}

// loadSlotLocked reads the queue other clients sharing the slot see.
func (c *Client) loadSlotLocked() ([]types.QueuedItem, bool) {
	data, err := c.slot.Load(types.QueueSlotKey)
	if err != nil {
		c.logger.Warn("reading queue slot failed", logging.Error(err))
		return nil, false
	}
	queue, err := DecodeQueue(data)
	if err != nil {
		c.logger.Warn("queue slot corrupt", logging.Error(err))
		return nil, false
	}
	return queue, true
}

func queueHas(queue []types.QueuedItem, tempID string) bool {
	for _, q := range queue {
		if q.TempID == tempID {
			return true
		}
	}
	return false
}

func queueWithout(queue []types.QueuedItem, tempID string) []types.QueuedItem {
	kept := queue[:0:0]
	for _, q := range queue {
		if q.TempID != tempID {
			kept = append(kept, q)
		}
	}
	return kept
}
