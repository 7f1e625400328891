// Package job tracks certificate generation jobs on disk.
//
// Each job owns a directory under the store root holding status.json
// (identity, counters, status) and errors.json (ordered per-row
// failures). Files are written atomically via temp-and-rename, so a
// reader never observes a partial record and a process crash leaves the
// last committed state intact. Mutations are serialized through an
// in-process mutex plus a file lock on the store root, which also keeps
// concurrent processes from interleaving writes.
//
// Job status only moves forward: queued, processing, then one of
// completed, completed_with_errors or failed. Counters never decrease,
// and processed always equals successful plus failed.
package job
