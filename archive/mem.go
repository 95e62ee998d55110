package archive

import (
	"bytes"
	"io"
)

// MemEntry is one entry of an in-memory archive.
type MemEntry struct {
	Name string
	Dir  bool
	Data []byte
}

// MemArchive is an in-memory Archive. Tests and embedders use it in
// place of on-disk containers; Open can be called any number of times
// and always replays the same entries in insertion order.
type MemArchive struct {
	ArchivePrefix string
	Entries       []MemEntry
	Opens         int
}

// NewMemArchive creates an empty in-memory archive with the given
// namespace prefix.
func NewMemArchive(prefix string) *MemArchive {
	return &MemArchive{ArchivePrefix: prefix}
}

// Add appends a file entry.
func (a *MemArchive) Add(name string, data []byte) *MemArchive {
	a.Entries = append(a.Entries, MemEntry{Name: name, Data: data})
	return a
}

// AddDir appends a directory marker entry.
func (a *MemArchive) AddDir(name string) *MemArchive {
	a.Entries = append(a.Entries, MemEntry{Name: name, Dir: true})
	return a
}

// Prefix implements Archive.
func (a *MemArchive) Prefix() string {
	return a.ArchivePrefix
}

// Open implements Archive.
func (a *MemArchive) Open() (EntryReader, error) {
	a.Opens++
	return &memEntryReader{entries: a.Entries}, nil
}

type memEntryReader struct {
	entries []MemEntry
	next    int
}

func (r *memEntryReader) Next() (*Entry, error) {
	if r.next >= len(r.entries) {
		return nil, io.EOF
	}
	e := r.entries[r.next]
	r.next++
	if e.Dir {
		return &Entry{Name: e.Name, Dir: true}, nil
	}
	return &Entry{Name: e.Name, Body: bytes.NewReader(e.Data)}, nil
}

func (r *memEntryReader) Close() error {
	return nil
}

// MemWriter records written entries for inspection. It implements
// Writer and enforces the same sequencing the zip writer needs.
type MemWriter struct {
	Written []MemEntry
	Closed  bool

	current *bytes.Buffer
	name    string
}

// NewMemWriter creates an empty recording writer.
func NewMemWriter() *MemWriter {
	return &MemWriter{}
}

// BeginEntry implements Writer.
func (w *MemWriter) BeginEntry(name string) error {
	w.name = name
	w.current = &bytes.Buffer{}
	return nil
}

// Write implements Writer.
func (w *MemWriter) Write(p []byte) (int, error) {
	if w.current == nil {
		return 0, ErrNoEntry
	}
	return w.current.Write(p)
}

// EndEntry implements Writer.
func (w *MemWriter) EndEntry() error {
	if w.current == nil {
		return ErrNoEntry
	}
	w.Written = append(w.Written, MemEntry{Name: w.name, Data: w.current.Bytes()})
	w.current = nil
	w.name = ""
	return nil
}

// Close implements Writer.
func (w *MemWriter) Close() error {
	w.current = nil
	w.Closed = true
	return nil
}

// Entry returns the recorded entry with the given name, or nil.
func (w *MemWriter) Entry(name string) *MemEntry {
	for i := range w.Written {
		if w.Written[i].Name == name {
			return &w.Written[i]
		}
	}
	return nil
}

// Names returns the recorded entry names in write order.
func (w *MemWriter) Names() []string {
	names := make([]string, len(w.Written))
	for i, e := range w.Written {
		names[i] = e.Name
	}
	return names
}
