package mimetypes

import (
	"iter"
	"path"
	"slices"
	"strings"
)

// Registry is the in-memory, authoritative multimap of types. It maintains
// two indexes in lock-step through a single insertion path: one keyed by
// simplified type, one by extension. Every record reachable from one index
// is reachable from the other.
//
// A Registry is created empty, populated by Add, and treated as an immutable
// snapshot once handed to an index build. It is not safe for concurrent
// mutation.
type Registry struct {
	logger *Logger

	bySimplified map[string][]*Type
	byExtension  map[string][]*Type

	// Key insertion orders, kept so iteration is deterministic.
	simplifiedKeys []string
	extensionKeys  []string

	count int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for duplicate-registration warnings.
// Pass nil to keep the default no-op logger.
func WithLogger(logger *Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...RegistryOption) *Registry {
	r := &Registry{
		logger:       NoopLogger(),
		bySimplified: make(map[string][]*Type),
		byExtension:  make(map[string][]*Type),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(r)
		}
	}
	return r
}

// Add inserts types into both indexes. Adding a record value-identical to
// one already present under the same simplified key logs a warning and
// inserts nothing; this is deliberately lenient so overlapping definition
// sources load cleanly. Add never fails on constructed types.
func (r *Registry) Add(types ...*Type) {
	for _, t := range types {
		r.add(t)
	}
}

func (r *Registry) add(t *Type) {
	key := t.simplified
	existing, known := r.bySimplified[key]
	for _, e := range existing {
		if e.Eql(t) {
			r.logger.LogDuplicate(t.contentType, key)
			return
		}
	}
	if !known {
		r.simplifiedKeys = append(r.simplifiedKeys, key)
	}
	r.bySimplified[key] = append(existing, t)
	for _, ext := range t.extensions {
		if _, ok := r.byExtension[ext]; !ok {
			r.extensionKeys = append(r.extensionKeys, ext)
		}
		r.byExtension[ext] = append(r.byExtension[ext], t)
	}
	r.count++
	r.logger.LogAdd(t.contentType, len(t.extensions))
}

// AddRegistry merges every type of another registry into this one, with the
// same duplicate policy as Add.
func (r *Registry) AddRegistry(other *Registry) {
	for t := range other.Each() {
		r.add(t)
	}
}

// lookupConfig collects lookup filters.
type lookupConfig struct {
	complete bool
	platform string
}

// LookupOption filters Lookup and TypeFor results.
type LookupOption func(*lookupConfig)

// MatchComplete keeps only types that claim at least one extension.
func MatchComplete() LookupOption {
	return func(c *lookupConfig) { c.complete = true }
}

// MatchPlatform keeps only types restricted to a pattern matching the given
// platform identifier. The platform is always explicit; pass
// CurrentPlatform() for the running process.
func MatchPlatform(platform string) LookupOption {
	return func(c *lookupConfig) { c.platform = platform }
}

func applyLookupOptions(optFns []LookupOption) lookupConfig {
	var c lookupConfig
	for _, fn := range optFns {
		if fn != nil {
			fn(&c)
		}
	}
	return c
}

func (c lookupConfig) keep(t *Type) bool {
	if c.complete && !t.Complete() {
		return false
	}
	if c.platform != "" && !t.Platform(c.platform) {
		return false
	}
	return true
}

// Lookup returns the types matching a content type or a glob pattern,
// sorted by PriorityCompare so the first result is the best match. A
// pattern (any of "*?[") is matched against every simplified key and the
// matches are unioned; an exact string is simplified and looked up
// directly. Empty results are not errors.
func (r *Registry) Lookup(typeOrPattern string, optFns ...LookupOption) []*Type {
	cfg := applyLookupOptions(optFns)

	var matched []*Type
	if strings.ContainsAny(typeOrPattern, "*?[") {
		pattern := strings.ToLower(typeOrPattern)
		for _, key := range r.simplifiedKeys {
			if ok, err := path.Match(pattern, key); err == nil && ok {
				matched = append(matched, r.bySimplified[key]...)
			}
		}
	} else if key, ok := Simplify(typeOrPattern); ok {
		matched = append(matched, r.bySimplified[key]...)
	}

	results := make([]*Type, 0, len(matched))
	for _, t := range matched {
		if cfg.keep(t) {
			results = append(results, t)
		}
	}
	slices.SortStableFunc(results, (*Type).PriorityCompare)
	r.logger.LogLookup(typeOrPattern, len(results))
	return results
}

// TypeFor returns the types claiming the extension of the given filename.
// The extension is everything after the last dot of the lowercased name;
// matching is therefore case-insensitive, and a name with no dot matches
// nothing.
func (r *Registry) TypeFor(filename string, optFns ...LookupOption) []*Type {
	cfg := applyLookupOptions(optFns)

	ext := Extension(filename)
	if ext == "" {
		return nil
	}
	candidates := r.byExtension[ext]
	results := make([]*Type, 0, len(candidates))
	for _, t := range candidates {
		if cfg.keep(t) {
			results = append(results, t)
		}
	}
	slices.SortStableFunc(results, (*Type).PriorityCompare)
	return results
}

// Extension returns the lowercased extension of a filename: everything
// after the last dot, or "" when there is none.
func Extension(filename string) string {
	filename = strings.ToLower(filename)
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}

// Count returns the number of types held.
func (r *Registry) Count() int { return r.count }

// Each iterates every type: simplified keys in insertion order, records
// within a key in insertion order. The sequence is finite and restartable.
func (r *Registry) Each() iter.Seq[*Type] {
	return func(yield func(*Type) bool) {
		for _, key := range r.simplifiedKeys {
			for _, t := range r.bySimplified[key] {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// EachSimplified iterates the simplified-key buckets in key insertion
// order. It is the snapshot surface an index build consumes.
func (r *Registry) EachSimplified() iter.Seq2[string, []*Type] {
	return func(yield func(string, []*Type) bool) {
		for _, key := range r.simplifiedKeys {
			if !yield(key, r.bySimplified[key]) {
				return
			}
		}
	}
}

// EachExtension iterates the extension buckets in key insertion order.
func (r *Registry) EachExtension() iter.Seq2[string, []*Type] {
	return func(yield func(string, []*Type) bool) {
		for _, ext := range r.extensionKeys {
			if !yield(ext, r.byExtension[ext]) {
				return
			}
		}
	}
}
