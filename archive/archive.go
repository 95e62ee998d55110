// Package archive abstracts the container files the merge engine reads
// and writes.
//
// An Archive is a re-openable, ordered source of named binary entries.
// The merge engine opens every archive exactly twice (mapping pass,
// then emission pass) and depends on both traversals enumerating the
// same entries in the same order. Writer is the append-only entry sink
// the merged output is streamed into.
package archive

import (
	"errors"
	"io"
)

// Archive is an externally-owned input container. Implementations must
// support repeated Open calls, each yielding a fresh traversal of the
// same entries in the same order.
type Archive interface {
	// Prefix is the namespace prefix prepended to every entry name
	// this archive contributes to the merged output. May be empty.
	Prefix() string

	// Open starts a fresh sequential traversal of the entries.
	Open() (EntryReader, error)
}

// Entry is one named payload read from an archive. Body is only valid
// until the next call to EntryReader.Next and is nil for directories.
type Entry struct {
	Name string
	Dir  bool
	Body io.Reader
}

// EntryReader enumerates an archive's entries in order.
type EntryReader interface {
	// Next returns the next entry, or io.EOF after the last one.
	Next() (*Entry, error)

	// Close releases the traversal. Safe to call after io.EOF and on
	// error paths.
	Close() error
}

// Writer is the output container entries are appended to. Entries must
// be written strictly sequentially: BeginEntry, any number of Write
// calls, EndEntry.
type Writer interface {
	// BeginEntry starts a new output entry with the given name.
	BeginEntry(name string) error

	// Write appends bytes to the entry opened by BeginEntry.
	Write(p []byte) (int, error)

	// EndEntry finishes the current entry.
	EndEntry() error

	// Close finalizes the container. No further calls are valid.
	Close() error
}

// ErrNoEntry is returned by Writer.Write and Writer.EndEntry when no
// entry is open.
var ErrNoEntry = errors.New("no open entry")
