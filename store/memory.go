package store

import (
	"sync"
	"sync/atomic"
)

// MemoryBackend keeps maps in process memory. It exists for tests: besides
// avoiding the filesystem, every committed map counts its backing reads so
// cache behavior is observable.
type MemoryBackend struct {
	mu   sync.Mutex
	maps map[string]*MemoryMap
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{maps: make(map[string]*MemoryMap)}
}

func memKey(dir, name string) string { return dir + "/" + name }

// Create starts building an in-memory map.
func (b *MemoryBackend) Create(dir, name string, meta Meta) (Builder, error) {
	m := &MemoryMap{
		name:    name,
		meta:    make(Meta, len(meta)),
		buckets: make(map[string][]byte),
	}
	for k, v := range meta {
		m.meta[k] = v
	}
	return &memoryBuilder{backend: b, key: memKey(dir, name), m: m}, nil
}

// Open returns a committed map.
func (b *MemoryBackend) Open(dir, name string) (Map, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.maps[memKey(dir, name)]
	if !ok {
		return nil, NewStorageError("open", name, ErrNotFound)
	}
	return m, nil
}

// Remove deletes a committed map.
func (b *MemoryBackend) Remove(dir, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.maps, memKey(dir, name))
	return nil
}

type memoryBuilder struct {
	backend   *MemoryBackend
	key       string
	m         *MemoryMap
	committed bool
}

func (b *memoryBuilder) Put(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	if _, ok := b.m.buckets[key]; !ok {
		b.m.keys = append(b.m.keys, key)
	}
	b.m.buckets[key] = cp
	return nil
}

func (b *memoryBuilder) Commit() error {
	if b.committed {
		return nil
	}
	b.committed = true
	b.backend.mu.Lock()
	defer b.backend.mu.Unlock()
	b.backend.maps[b.key] = b.m
	return nil
}

// MemoryMap is the committed read side. Reads returns how many times Get or
// Each touched the backing data; a cache hit must leave it unchanged.
type MemoryMap struct {
	name    string
	meta    Meta
	keys    []string
	buckets map[string][]byte
	reads   atomic.Int64
}

func (m *MemoryMap) Get(key string) ([]byte, error) {
	m.reads.Add(1)
	value, ok := m.buckets[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (m *MemoryMap) Len() int { return len(m.keys) }

func (m *MemoryMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *MemoryMap) Each(fn func(key string, value []byte) error) error {
	for _, key := range m.keys {
		m.reads.Add(1)
		if err := fn(key, m.buckets[key]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryMap) Meta(name string) (string, bool) {
	v, ok := m.meta[name]
	return v, ok
}

func (m *MemoryMap) Close() error { return nil }

// Reads returns the number of backing-store reads served so far.
func (m *MemoryMap) Reads() int64 { return m.reads.Load() }
