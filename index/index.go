// Package index persists a registry snapshot as two durable key→bucket maps,
// one keyed by simplified type and one by extension, and serves lookups from
// them through bounded LRU caches instead of holding the registry resident.
package index

import (
	"errors"
	"fmt"
	"iter"
	"path"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mimetypes"
	"github.com/hupe1980/mimetypes/cache"
	"github.com/hupe1980/mimetypes/codec"
	"github.com/hupe1980/mimetypes/store"
)

// Map names under the index directory.
const (
	TypesMap      = "types"
	ExtensionsMap = "extensions"
)

// Metadata recorded at build time. Codec and compressor names make the maps
// self-describing; the count avoids a full scan.
const (
	metaCodec      = "codec"
	metaCompressor = "compressor"
	metaCount      = "count"
)

// Index is the read side of a built persistent index. Exactly one writer
// builds it per build cycle; Build must never run concurrently with reads
// against the same directory.
type Index struct {
	dir    string
	codec  codec.Codec
	comp   codec.Compressor
	logger *mimetypes.Logger

	types      store.Map
	extensions store.Map

	// Buckets are cached decoded; a nil bucket is the cached "not found"
	// marker, so repeated misses never re-touch the backing store.
	typeCache *cache.LRU[string, []*mimetypes.Type]
	extCache  *cache.LRU[string, []*mimetypes.Type]

	count int
}

// Build deletes any prior index under dir and writes a fresh one from the
// registry snapshot: one bucket per simplified key in the types map, one
// bucket per extension in the extensions map, each bucket the serialized
// whole record list for its key. The two maps are written concurrently. On
// success the returned index is open with empty caches.
//
// The registry must not be mutated during the build.
func Build(dir string, reg *mimetypes.Registry, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)

	for _, name := range []string{TypesMap, ExtensionsMap} {
		if err := o.backend.Remove(dir, name); err != nil {
			o.logger.LogBuild(dir, 0, err)
			return nil, err
		}
	}

	meta := store.Meta{
		metaCodec:      o.codec.Name(),
		metaCompressor: o.compressor.Name(),
		metaCount:      strconv.Itoa(reg.Count()),
	}

	var g errgroup.Group
	g.Go(func() error {
		return buildMap(dir, TypesMap, meta, o, reg.EachSimplified())
	})
	g.Go(func() error {
		return buildMap(dir, ExtensionsMap, meta, o, reg.EachExtension())
	})
	if err := g.Wait(); err != nil {
		o.logger.LogBuild(dir, 0, err)
		return nil, err
	}

	idx, err := open(dir, o)
	o.logger.LogBuild(dir, reg.Count(), err)
	return idx, err
}

func buildMap(dir, name string, meta store.Meta, o options, buckets iter.Seq2[string, []*mimetypes.Type]) error {
	builder, err := o.backend.Create(dir, name, meta)
	if err != nil {
		return err
	}
	for key, bucket := range buckets {
		encoded, err := encodeBucket(o.codec, o.compressor, bucket)
		if err != nil {
			return store.NewStorageError("write", name, err)
		}
		if err := builder.Put(key, encoded); err != nil {
			return err
		}
	}
	return builder.Commit()
}

// Open reopens a built index, selecting codec and compressor by the names
// recorded in the maps' metadata.
func Open(dir string, optFns ...Option) (*Index, error) {
	return open(dir, applyOptions(optFns))
}

func open(dir string, o options) (*Index, error) {
	types, err := o.backend.Open(dir, TypesMap)
	if err != nil {
		return nil, err
	}
	extensions, err := o.backend.Open(dir, ExtensionsMap)
	if err != nil {
		types.Close()
		return nil, err
	}

	idx := &Index{
		dir:        dir,
		logger:     o.logger,
		types:      types,
		extensions: extensions,
		typeCache:  cache.NewLRU[string, []*mimetypes.Type](o.cacheSize),
		extCache:   cache.NewLRU[string, []*mimetypes.Type](o.cacheSize),
	}
	if err := idx.describe(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// describe resolves the codec, compressor, and count recorded at build time.
func (idx *Index) describe() error {
	codecName, ok := idx.types.Meta(metaCodec)
	if !ok {
		return store.NewCorruptionError(TypesMap, "missing codec metadata", nil)
	}
	c, ok := codec.ByName(codecName)
	if !ok {
		return store.NewCorruptionError(TypesMap, fmt.Sprintf("unknown codec %q", codecName), nil)
	}
	idx.codec = c

	compName, ok := idx.types.Meta(metaCompressor)
	if !ok {
		compName = codec.DefaultCompressor.Name()
	}
	comp, ok := codec.CompressorByName(compName)
	if !ok {
		return store.NewCorruptionError(TypesMap, fmt.Sprintf("unknown compressor %q", compName), nil)
	}
	idx.comp = comp

	if raw, ok := idx.types.Meta(metaCount); ok {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return store.NewCorruptionError(TypesMap, "bad count metadata", err)
		}
		idx.count = count
	}
	return nil
}

// LookupSimplified returns the bucket stored under a simplified type key.
// The argument is simplified first, so raw content types work the same as
// they do against a registry. A missing key returns an empty, error-free
// result.
func (idx *Index) LookupSimplified(key string) ([]*mimetypes.Type, error) {
	if simplified, ok := mimetypes.Simplify(key); ok {
		key = simplified
	}
	return idx.lookup(idx.typeCache, idx.types, TypesMap, key)
}

// LookupExtension returns the bucket stored under a lowercased extension.
func (idx *Index) LookupExtension(ext string) ([]*mimetypes.Type, error) {
	return idx.lookup(idx.extCache, idx.extensions, ExtensionsMap, strings.ToLower(ext))
}

// Lookup resolves a content type or a glob pattern, like Registry.Lookup: a
// pattern (any of "*?[") is matched against every simplified key and the
// matching buckets are unioned and sorted by PriorityCompare; anything else
// goes through LookupSimplified. Pattern reads share the simplified-key
// cache, one entry per matched key.
func (idx *Index) Lookup(typeOrPattern string) ([]*mimetypes.Type, error) {
	if !strings.ContainsAny(typeOrPattern, "*?[") {
		return idx.LookupSimplified(typeOrPattern)
	}

	pattern := strings.ToLower(typeOrPattern)
	var results []*mimetypes.Type
	for _, key := range idx.types.Keys() {
		if ok, err := path.Match(pattern, key); err != nil || !ok {
			continue
		}
		bucket, err := idx.lookup(idx.typeCache, idx.types, TypesMap, key)
		if err != nil {
			return nil, err
		}
		results = append(results, bucket...)
	}
	slices.SortStableFunc(results, (*mimetypes.Type).PriorityCompare)
	return results, nil
}

// TypeFor returns the types claiming the extension of the given filename,
// matched case-insensitively like Registry.TypeFor.
func (idx *Index) TypeFor(filename string) ([]*mimetypes.Type, error) {
	ext := mimetypes.Extension(filename)
	if ext == "" {
		return nil, nil
	}
	return idx.LookupExtension(ext)
}

// lookup is the cache-then-store read path shared by both maps. A store
// miss is cached as a nil bucket; a cache hit of either kind never touches
// the store.
func (idx *Index) lookup(c *cache.LRU[string, []*mimetypes.Type], m store.Map, name, key string) ([]*mimetypes.Type, error) {
	if bucket, ok := c.Get(key); ok {
		idx.logger.LogLookup(key, len(bucket))
		return bucket, nil
	}

	raw, err := m.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		c.Set(key, nil)
		idx.logger.LogLookup(key, 0)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	bucket, err := idx.decodeBucket(name, raw)
	if err != nil {
		return nil, err
	}
	c.Set(key, bucket)
	idx.logger.LogLookup(key, len(bucket))
	return bucket, nil
}

// Each iterates every type in the simplified-key map directly, bypassing
// the caches. The yielded error is non-nil exactly once, on the first
// storage or corruption failure, and ends the sequence.
func (idx *Index) Each() iter.Seq2[*mimetypes.Type, error] {
	return func(yield func(*mimetypes.Type, error) bool) {
		err := idx.types.Each(func(key string, raw []byte) error {
			bucket, err := idx.decodeBucket(TypesMap, raw)
			if err != nil {
				return err
			}
			for _, t := range bucket {
				if !yield(t, nil) {
					return errStopIteration
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

var errStopIteration = errors.New("stop iteration")

// Count returns the number of records the index was built from.
func (idx *Index) Count() int { return idx.count }

// CacheStats returns cumulative hit/miss counters across both caches.
func (idx *Index) CacheStats() (hits, misses int64) {
	th, tm := idx.typeCache.Stats()
	eh, em := idx.extCache.Stats()
	return th + eh, tm + em
}

// Close releases both backing maps. The caches are dropped with the index.
func (idx *Index) Close() error {
	err := idx.types.Close()
	if cerr := idx.extensions.Close(); err == nil {
		err = cerr
	}
	return err
}

func encodeBucket(c codec.Codec, comp codec.Compressor, bucket []*mimetypes.Type) ([]byte, error) {
	encoded, err := c.Marshal(bucket)
	if err != nil {
		return nil, err
	}
	return comp.Compress(encoded)
}

func (idx *Index) decodeBucket(name string, raw []byte) ([]*mimetypes.Type, error) {
	decompressed, err := idx.comp.Decompress(raw)
	if err != nil {
		return nil, store.NewCorruptionError(name, "bucket decompression failed", err)
	}
	var bucket []*mimetypes.Type
	if err := idx.codec.Unmarshal(decompressed, &bucket); err != nil {
		return nil, store.NewCorruptionError(name, "bucket decode failed", err)
	}
	return bucket, nil
}
