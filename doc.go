// Package mimetypes resolves MIME content-type metadata: given a content
// type, a file extension, or a glob pattern, it returns the matching type
// records ranked by reliability.
//
// The in-memory Registry is the authoritative store. It is populated from
// parsed definitions (see the loader package) and serves exact, pattern, and
// extension lookups:
//
//	reg, _ := loader.DefaultRegistry()
//	types := reg.Lookup("text/plain")         // best match first
//	types = reg.TypeFor("citydesk.xml")       // by filename extension
//	types = reg.Lookup("image/*")             // glob over simplified keys
//
// For processes that should not re-parse definitions or hold the full
// registry resident, the index package persists a registry snapshot as two
// durable key→bucket maps fronted by bounded LRU caches:
//
//	idx, _ := index.Build("./mime-index", reg)
//	...
//	idx, _ = index.Open("./mime-index")
//	types, _ := idx.TypeFor("report.asc")
//
// Ambiguous matches are ordered by a fixed precedence: registered before
// unregistered, generic before platform-specific, complete before
// incomplete, current before obsolete. See Type.PriorityCompare.
package mimetypes
