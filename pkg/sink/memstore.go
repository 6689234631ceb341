package sink

import (
	"bytes"
	"context"
	"sync"
)

// 🧠 MemStore is an in-memory destination store. It backs tests and records
// enough to assert on the abort-on-error contract: committed objects, their
// content types, and how many writes were aborted per key.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]MemObject
	aborted map[string]int
}

// MemObject is one committed object.
type MemObject struct {
	Data        []byte
	ContentType string
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]MemObject),
		aborted: make(map[string]int),
	}
}

func (s *MemStore) Name() string {
	return "mem"
}

func (s *MemStore) NewWriter(ctx context.Context, key, contentType string) (WriteCommitter, error) {
	return &memWriter{store: s, key: key, contentType: contentType}, nil
}

// 🔍 Object returns a committed object by key.
func (s *MemStore) Object(key string) (MemObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// 🔍 Aborted returns how many writes for the key were rolled back.
func (s *MemStore) Aborted(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted[key]
}

// 🔍 Len returns the number of committed objects.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type memWriter struct {
	store       *MemStore
	key         string
	contentType string
	buf         bytes.Buffer
}

func (w *memWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *memWriter) Commit() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = MemObject{
		Data:        append([]byte(nil), w.buf.Bytes()...),
		ContentType: w.contentType,
	}
	return nil
}

func (w *memWriter) Abort() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.aborted[w.key]++
	return nil
}
