// Package store provides the durable key→bucket maps backing the persistent
// index. A map is written once by a Builder, committed atomically, and read
// many times across process restarts.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Map.Get when a key has no bucket. It is the
// only non-fatal read outcome.
var ErrNotFound = errors.New("store: key not found")

// StorageError indicates a backing store that cannot be opened, created,
// written, or read. It is fatal to the operation that raised it.
//
// The original underlying error can be accessed via errors.Unwrap.
type StorageError struct {
	Op    string // "create", "open", "write", "read", "commit", "remove"
	Name  string // map name
	cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Name, e.cause)
}

func (e *StorageError) Unwrap() error { return e.cause }

// NewStorageError wraps a cause as a StorageError.
func NewStorageError(op, name string, cause error) *StorageError {
	return &StorageError{Op: op, Name: name, cause: cause}
}

// CorruptionError indicates stored bytes that fail validation: bad magic,
// unsupported version, checksum mismatch, or an undecodable bucket. There is
// no partial recovery; a corrupted map must be rebuilt.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type CorruptionError struct {
	Name   string // map name
	Detail string
	cause  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt map %q: %s", e.Name, e.Detail)
}

func (e *CorruptionError) Unwrap() error { return e.cause }

// NewCorruptionError creates a CorruptionError.
func NewCorruptionError(name, detail string, cause error) *CorruptionError {
	return &CorruptionError{Name: name, Detail: detail, cause: cause}
}

// Meta is the self-describing metadata persisted with a map: codec and
// compressor names, record counts. Values are opaque strings.
type Meta map[string]string

// Map is a read-only durable key→bucket map.
type Map interface {
	// Get returns the bucket stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Len returns the number of keys.
	Len() int
	// Keys returns every key in Put order.
	Keys() []string
	// Each visits every key/bucket pair in Put order. It stops at the
	// first error from fn and returns it.
	Each(fn func(key string, value []byte) error) error
	// Meta returns a metadata value recorded at build time.
	Meta(name string) (string, bool)
	// Close releases the map's resources.
	Close() error
}

// Builder writes a new map. Nothing is durable until Commit returns.
type Builder interface {
	// Put stores a bucket under key. Keys must be distinct.
	Put(key string, value []byte) error
	// Commit makes the map durable and visible to Open, atomically
	// replacing any prior map of the same name.
	Commit() error
}

// Backend creates, opens, and removes named maps under a directory.
type Backend interface {
	// Create starts building a map, destroying any prior map of that
	// name once the build commits.
	Create(dir, name string, meta Meta) (Builder, error)
	// Open opens a committed map for reading.
	Open(dir, name string) (Map, error)
	// Remove deletes a map. Removing a map that does not exist is not
	// an error.
	Remove(dir, name string) error
}
