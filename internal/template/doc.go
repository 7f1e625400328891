// Package template analyzes certificate templates and caches the results.
//
// An analysis bundles the template's image metadata with its placeholder
// layout. Layouts come from a manual sidecar file when one exists and from
// OCR detection otherwise. Because detection runs a dozen OCR passes,
// results are cached keyed by template path and modification time: editing
// a template changes its mtime and therefore misses the cache, so stale
// layouts are never served. Entries expire after a TTL and the cache
// evicts least-recently-used entries beyond its size limit.
package template
