package mimetypes

import "sync"

// internPool deduplicates equal extension strings across types. Thousands of
// records share a small set of extensions, so pooling keeps one copy of each.
// Interning is an optimization only; callers must never rely on pointer
// identity, just on ordinary string equality.
var internPool sync.Map

func intern(s string) string {
	if v, ok := internPool.Load(s); ok {
		return v.(string)
	}
	v, _ := internPool.LoadOrStore(s, s)
	return v.(string)
}
