package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

// Slot is a string-keyed local store holding serialized client state. A slot
// may be shared by several clients, in this process or others.
//
// Load returns nil data and no error when the key has never been saved.
// Update replaces the data under key with fn's result; no other write to key
// happens between the read and the write. Claim blocks until the caller holds
// the key's sync claim, which at most one holder has at a time, or ctx is
// done.
type Slot interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Update(key string, fn func(data []byte) ([]byte, error)) error
	Claim(ctx context.Context, key string) (release func(), err error)
}

// claimRetry is how often FileSlot.Claim retries a held claim.
const claimRetry = 25 * time.Millisecond

// EncodeQueue serializes the queue as a JSON array.
func EncodeQueue(queue []types.QueuedItem) ([]byte, error) {
	if queue == nil {
		queue = []types.QueuedItem{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return nil, fmt.Errorf("encoding queue: %w", err)
	}
	return data, nil
}

// DecodeQueue parses a serialized queue. Empty data decodes to an empty
// queue. Entries without a temporary id or text are rejected.
func DecodeQueue(data []byte) ([]types.QueuedItem, error) {
	queue := []types.QueuedItem{}
	if len(data) == 0 {
		return queue, nil
	}
	var decoded []types.QueuedItem
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding queue: %w", err)
	}
	for i, q := range decoded {
		if !types.IsTempID(q.TempID) {
			return nil, fmt.Errorf("decoding queue: entry %d: %w", i, types.ErrInvalidID)
		}
		if q.Text == "" {
			return nil, fmt.Errorf("decoding queue: entry %d: %w", i, types.ErrTextRequired)
		}
		queue = append(queue, q)
	}
	return queue, nil
}

// FileSlot stores each key as <dir>/<key>.json. Writes are atomic and guarded
// by the advisory lock <key>.json.lock; sync claims use <key>.json.sync.lock.
type FileSlot struct {
	dir string
}

// NewFileSlot returns a FileSlot rooted at dir, creating the directory.
func NewFileSlot(dir string) (*FileSlot, error) {
	if dir == "" {
		return nil, errors.New("slot directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating slot directory %s: %w", dir, err)
	}
	return &FileSlot{dir: dir}, nil
}

// Path returns the file backing key.
func (s *FileSlot) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileSlot) Load(key string) ([]byte, error) {
	lock := flock.New(s.Path(key) + ".lock")
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking slot %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return data, nil
}

func (s *FileSlot) Save(key string, data []byte) error {
	lock := flock.New(s.Path(key) + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking slot %s: %w", key, err)
	}
	defer lock.Unlock()
	return s.write(key, data)
}

func (s *FileSlot) Update(key string, fn func(data []byte) ([]byte, error)) error {
	lock := flock.New(s.Path(key) + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking slot %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("reading slot %s: %w", key, err)
	}
	next, err := fn(data)
	if err != nil {
		return err
	}
	return s.write(key, next)
}

func (s *FileSlot) Claim(ctx context.Context, key string) (func(), error) {
	lock := flock.New(s.Path(key) + ".sync.lock")
	ok, err := lock.TryLockContext(ctx, claimRetry)
	if err != nil {
		return nil, fmt.Errorf("claiming slot %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("claiming slot %s: %w", key, ctx.Err())
	}
	return func() { lock.Unlock() }, nil
}

// write replaces the file behind key atomically. The caller holds the lock.
func (s *FileSlot) write(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// MemorySlot is an in-process Slot.
type MemorySlot struct {
	mu     sync.Mutex
	data   map[string][]byte
	claims map[string]chan struct{}
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{
		data:   make(map[string][]byte),
		claims: make(map[string]chan struct{}),
	}
}

func (s *MemorySlot) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemorySlot) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemorySlot) Update(key string, fn func(data []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current []byte
	if data, ok := s.data[key]; ok {
		current = append([]byte(nil), data...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	s.data[key] = append([]byte(nil), next...)
	return nil
}

func (s *MemorySlot) Claim(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.claims[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.claims[key] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("claiming slot %s: %w", key, ctx.Err())
	}
}
