// Package relocation implements the archive merge engine: it builds a
// global rename mapping across all input archives, streams every entry
// into one output archive, rewrites compiled-module references that
// point at renamed entries, and synthesizes the runtime mapper module
// that carries the rename table for code compiled against old names.
package relocation

import "errors"

// ErrInconsistentMapping indicates the emission pass encountered an
// entry the mapping pass never saw. The engine reads every archive
// twice and depends on both traversals observing identical contents;
// a mismatch is an invariant breach, not a recoverable condition.
var ErrInconsistentMapping = errors.New("archive changed between passes")
