package offline

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/grocery/internal/remote"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

var errUnreachable = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

// fakeStore is an in-memory Store that records calls and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	items   map[string]types.Item
	seq     int
	down    bool
	failFor map[string]bool // create texts that fail
	calls   map[string]int
	creates []string

	// createGate, when set, blocks Create until it receives a value.
	createGate chan struct{}
	// createStarted receives the text of every Create call.
	createStarted chan string
	// listGate, when set, blocks the next List call after it has taken its
	// snapshot, until the gate is closed. listStarted is signalled first.
	listGate    chan struct{}
	listStarted chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   make(map[string]types.Item),
		failFor: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (f *fakeStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeStore) failCreate(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[text] = true
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeStore) createdTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.creates...)
}

func (f *fakeStore) seed(texts ...string) []types.Item {
	var out []types.Item
	for _, text := range texts {
		item, _ := f.Create(context.Background(), text)
		out = append(out, *item)
	}
	f.mu.Lock()
	f.calls = make(map[string]int)
	f.creates = nil
	f.mu.Unlock()
	return out
}

func (f *fakeStore) List(ctx context.Context) ([]types.Item, error) {
	f.mu.Lock()
	f.calls["list"]++
	if f.down {
		f.mu.Unlock()
		return nil, errUnreachable
	}
	items := make([]types.Item, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	gate := f.listGate
	f.listGate = nil
	f.mu.Unlock()

	if gate != nil {
		f.listStarted <- struct{}{}
		<-gate
	}
	return items, nil
}

func (f *fakeStore) Create(ctx context.Context, text string) (*types.Item, error) {
	if f.createStarted != nil {
		f.createStarted <- text
	}
	if f.createGate != nil {
		<-f.createGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	f.creates = append(f.creates, text)
	if f.down {
		return nil, errUnreachable
	}
	if f.failFor[text] {
		return nil, &remote.APIError{StatusCode: http.StatusInternalServerError, Message: "Server error"}
	}
	f.seq++
	now := time.Date(2026, 1, 1, 0, 0, f.seq, 0, time.UTC)
	item := types.Item{ID: uuid.NewString(), Text: text, CreatedAt: now, UpdatedAt: now}
	f.items[item.ID] = item
	return &item, nil
}

func (f *fakeStore) Update(ctx context.Context, id, text string, completed bool) (*types.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.down {
		return nil, errUnreachable
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &remote.APIError{StatusCode: http.StatusNotFound, Message: types.MsgItemNotFound}
	}
	item.Text = text
	item.Completed = completed
	f.items[id] = item
	return &item, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) (*types.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.down {
		return nil, errUnreachable
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &remote.APIError{StatusCode: http.StatusNotFound, Message: types.MsgItemNotFound}
	}
	delete(f.items, id)
	return &item, nil
}
