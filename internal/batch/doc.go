// Package batch coordinates certificate generation runs: one output
// image per data row, rendered under a bounded concurrency budget and
// tracked through the durable job store.
//
// Rows are partitioned into outer batches and small sub-batches. Tasks
// within a sub-batch run concurrently, each holding a slot on a global
// counting semaphore, and an explicit memory reclamation pass runs after
// every sub-batch so long runs cannot accumulate decoded image buffers.
// The decoded template is shared read-only across tasks and every render
// copies before drawing. A failed row is recorded against the job and
// never aborts the rest of the run.
package batch
