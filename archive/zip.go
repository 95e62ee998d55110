package archive

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
)

// FileArchive is a zip container on disk. Each Open call re-opens the
// file, which gives the merge engine the deterministic second
// traversal it needs.
type FileArchive struct {
	path   string
	prefix string
}

// File creates an archive backed by the zip file at path. The prefix
// is applied to every entry name during the merge; pass "" to keep
// names unchanged.
func File(path, prefix string) *FileArchive {
	return &FileArchive{path: path, prefix: prefix}
}

// Prefix implements Archive.
func (a *FileArchive) Prefix() string {
	return a.prefix
}

// Path returns the location of the underlying file.
func (a *FileArchive) Path() string {
	return a.path
}

// Open implements Archive.
func (a *FileArchive) Open() (EntryReader, error) {
	rc, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", a.path, err)
	}
	return &zipEntryReader{archive: a.path, rc: rc}, nil
}

type zipEntryReader struct {
	archive string
	rc      *zip.ReadCloser
	next    int
	body    io.ReadCloser
}

func (r *zipEntryReader) Next() (*Entry, error) {
	if r.body != nil {
		r.body.Close()
		r.body = nil
	}
	if r.next >= len(r.rc.File) {
		return nil, io.EOF
	}
	f := r.rc.File[r.next]
	r.next++

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return &Entry{Name: f.Name, Dir: true}, nil
	}

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %s in %s: %w", f.Name, r.archive, err)
	}
	r.body = body
	return &Entry{Name: f.Name, Body: body}, nil
}

func (r *zipEntryReader) Close() error {
	if r.body != nil {
		r.body.Close()
		r.body = nil
	}
	return r.rc.Close()
}

// ZipWriter writes a zip container entry by entry.
type ZipWriter struct {
	zw      *zip.Writer
	closer  io.Closer
	current io.Writer
}

// NewFileWriter creates the output file at path and returns a writer
// appending zip entries to it. Closing the writer closes the file.
func NewFileWriter(path string) (*ZipWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output archive %s: %w", path, err)
	}
	return &ZipWriter{zw: zip.NewWriter(f), closer: f}, nil
}

// NewZipWriter wraps an arbitrary output stream.
func NewZipWriter(w io.Writer) *ZipWriter {
	return &ZipWriter{zw: zip.NewWriter(w)}
}

// BeginEntry implements Writer.
func (w *ZipWriter) BeginEntry(name string) error {
	ew, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating output entry %s: %w", name, err)
	}
	w.current = ew
	return nil
}

// Write implements Writer.
func (w *ZipWriter) Write(p []byte) (int, error) {
	if w.current == nil {
		return 0, ErrNoEntry
	}
	return w.current.Write(p)
}

// EndEntry implements Writer. The zip writer finishes an entry when
// the next one starts or the container is closed, so this only clears
// the current entry.
func (w *ZipWriter) EndEntry() error {
	if w.current == nil {
		return ErrNoEntry
	}
	w.current = nil
	return nil
}

// Close implements Writer.
func (w *ZipWriter) Close() error {
	w.current = nil
	if err := w.zw.Close(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return fmt.Errorf("closing output archive: %w", err)
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("closing output archive: %w", err)
		}
	}
	return nil
}
