// Package main hosts the certforge CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the certificate pipeline from the
// terminal: placeholder detection, one-shot batch generation, single-row
// previews, job inspection, archive export, and the stdio tool server. It
// centralizes configuration resolution and service wiring so subcommands can
// focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
