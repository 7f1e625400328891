// Package ocr provides Optical Character Recognition using Tesseract.
//
// This package defines the Engine interface the template analyzer runs
// against and a gosseract-backed implementation of it. Recognition works on
// in-memory images and returns word-level results with bounding boxes and
// confidence scores on Tesseract's native 0-100 scale.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Additional languages use their Tesseract language codes and the matching
// tesseract-ocr-<lang> data packages. A custom tessdata directory can be
// configured when the system default is not writable or not wanted.
//
// # Availability
//
// OCR availability is a runtime property: the library may link while the
// language data is missing. Ping performs a cheap end-to-end probe so
// callers can decide between full analysis and degraded fallbacks before
// starting work. Describe packages the same probe as a diagnostic report.
//
// # Concurrency
//
// Engine implementations are safe for concurrent use. The Tesseract
// implementation creates one client per recognition pass; clients are cheap
// relative to the recognition itself and per-call clients avoid sharing
// cgo state across goroutines.
package ocr
