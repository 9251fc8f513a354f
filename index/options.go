package index

import (
	"github.com/hupe1980/mimetypes"
	"github.com/hupe1980/mimetypes/codec"
	"github.com/hupe1980/mimetypes/store"
)

// DefaultCacheSize is the per-map LRU capacity in entries.
const DefaultCacheSize = 100

type options struct {
	backend    store.Backend
	codec      codec.Codec
	compressor codec.Compressor
	cacheSize  int
	logger     *mimetypes.Logger
}

// Option configures Build and Open behavior.
type Option func(*options)

// WithBackend selects the backing store. The default is the filesystem
// backend.
func WithBackend(backend store.Backend) Option {
	return func(o *options) {
		if backend != nil {
			o.backend = backend
		}
	}
}

// WithCodec selects the bucket codec for newly-built maps. Opening an
// existing index ignores this: persisted maps record their codec name and
// are decoded with the codec they were written with.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompressor selects the bucket compressor for newly-built maps. As
// with WithCodec, existing maps reopen with their recorded compressor.
func WithCompressor(c codec.Compressor) Option {
	return func(o *options) {
		if c == nil {
			c = codec.DefaultCompressor
		}
		o.compressor = c
	}
}

// WithCacheSize sets the per-map LRU capacity in entries.
func WithCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.cacheSize = size
		}
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *mimetypes.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		backend:    store.NewFileBackend(),
		codec:      codec.Default,
		compressor: codec.DefaultCompressor,
		cacheSize:  DefaultCacheSize,
		logger:     mimetypes.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
