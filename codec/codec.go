// Package codec centralizes bucket encoding for the persistent index.
//
// Codec and compressor selection is a breaking-change boundary: persisted
// maps record both names in their metadata and are reopened by selecting the
// implementations by name, so bytes written by one codec are never fed to
// another.
package codec

import "fmt"

// Codec encodes/decodes bucket values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// This is used by self-describing persisted maps that store the codec name
// in their metadata.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used for newly-built indexes. Existing maps are
// self-describing and reopen with whatever codec they were written with.
var Default Codec = GoJSON{}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
