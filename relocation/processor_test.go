package relocation

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kuzukami/jdependency/archive"
	"github.com/kuzukami/jdependency/digest"
	"github.com/kuzukami/jdependency/log"
	"github.com/kuzukami/jdependency/modbin"
)

func testProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	engine, err := digest.New("")
	if err != nil {
		t.Fatalf("digest.New failed: %v", err)
	}
	return NewProcessor(engine, opts)
}

func encodeModule(t *testing.T, m *modbin.Module) []byte {
	t.Helper()
	data, err := modbin.Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestProcess_DisjointPrefixes(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("one.txt", []byte("1")),
		archive.NewMemArchive("b/").Add("two.txt", []byte("2")),
	}
	w := archive.NewMemWriter()

	report, err := testProcessor(t, Options{}).Process(archives, nil, w)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if w.Entry("a/one.txt") == nil || w.Entry("b/two.txt") == nil {
		t.Errorf("entries = %v, want prefixed names", w.Names())
	}
	if report.Entries != 2 || report.Renamed != 2 {
		t.Errorf("report = %+v, want 2 entries, 2 renamed", report)
	}
	if !report.MapperWritten {
		t.Error("mapper not written despite renames")
	}
	if !w.Closed {
		t.Error("writer not closed")
	}
}

func TestProcess_PassthroughWithoutPrefixes(t *testing.T) {
	moduleBytes := encodeModule(t, &modbin.Module{Name: "app", Refs: []string{"one.txt"}})
	archives := []archive.Archive{
		archive.NewMemArchive("").
			Add("one.txt", []byte("payload one")).
			Add("app.mod", moduleBytes),
	}
	w := archive.NewMemWriter()

	report, err := testProcessor(t, Options{}).Process(archives, nil, w)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if report.MapperWritten {
		t.Error("mapper written for a passthrough merge")
	}
	if report.Rewritten != 0 {
		t.Errorf("Rewritten = %d, want 0: no rename means no rewriting at all", report.Rewritten)
	}
	e := w.Entry("app.mod")
	if e == nil {
		t.Fatal("app.mod missing from output")
	}
	if !bytes.Equal(e.Data, moduleBytes) {
		t.Error("module bytes changed in a passthrough merge")
	}
	if len(w.Written) != 2 {
		t.Errorf("entries = %v, want exactly the two inputs", w.Names())
	}
}

func TestProcess_DirectoriesSkipped(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("").
			Add("keep1.txt", []byte("one")).
			AddDir("dir/").
			Add("keep2.txt", []byte("two")),
	}
	w := archive.NewMemWriter()

	report, err := testProcessor(t, Options{}).Process(archives, nil, w)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(w.Written) != 2 {
		t.Fatalf("entries = %v, want 2 (directory skipped)", w.Names())
	}
	if string(w.Entry("keep1.txt").Data) != "one" || string(w.Entry("keep2.txt").Data) != "two" {
		t.Error("entry content not byte-identical")
	}
	if report.MapperWritten {
		t.Error("directories counted toward renaming")
	}
}

func TestProcess_ScenarioSharedNameDifferentContent(t *testing.T) {
	moduleBytes := encodeModule(t, &modbin.Module{Name: "app", Refs: []string{"lib.txt"}})
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("lib.txt", []byte("a's lib")).Add("app.mod", moduleBytes),
		archive.NewMemArchive("b/").Add("lib.txt", []byte("b's lib")),
	}
	w := archive.NewMemWriter()

	report, err := testProcessor(t, Options{}).Process(archives, nil, w)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Both contributions survive under their own prefixes.
	if w.Entry("a/lib.txt") == nil || w.Entry("b/lib.txt") == nil {
		t.Fatalf("entries = %v, want both prefixed libs", w.Names())
	}
	if string(w.Entry("a/lib.txt").Data) != "a's lib" || string(w.Entry("b/lib.txt").Data) != "b's lib" {
		t.Error("collided entries swapped or merged content")
	}

	// The module was rewritten against the first-seen name.
	m, err := modbin.Decode(w.Entry("a/app.mod").Data)
	if err != nil {
		t.Fatalf("decoding rewritten module: %v", err)
	}
	if m.Refs[0] != "a/lib.txt" {
		t.Errorf("ref = %q, want a/lib.txt", m.Refs[0])
	}
	if m.Mapper != modbin.MapperName {
		t.Errorf("Mapper = %q, want %q", m.Mapper, modbin.MapperName)
	}
	if report.Rewritten != 1 {
		t.Errorf("Rewritten = %d, want 1", report.Rewritten)
	}
	if !report.MapperWritten {
		t.Error("mapper missing")
	}
}

func TestProcess_MapperAppendedLastAndQueryable(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("lib.txt", []byte("x")),
		archive.NewMemArchive("b/").Add("other.txt", []byte("y")),
	}
	w := archive.NewMemWriter()

	if _, err := testProcessor(t, Options{}).Process(archives, nil, w); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	mapperEntry := modbin.MapperName + modbin.Extension
	names := w.Names()
	if names[len(names)-1] != mapperEntry {
		t.Fatalf("last entry = %q, want %q", names[len(names)-1], mapperEntry)
	}

	var count int
	for _, n := range names {
		if n == mapperEntry {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("mapper entries = %d, want exactly 1", count)
	}

	lookup, err := modbin.Lookup(w.Entry(mapperEntry).Data)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := lookup("lib.txt"); got != "a/lib.txt" {
		t.Errorf("lookup(lib.txt) = %q, want a/lib.txt", got)
	}
	if got := lookup("other.txt"); got != "b/other.txt" {
		t.Errorf("lookup(other.txt) = %q, want b/other.txt", got)
	}
	if got := lookup("unknown.txt"); got != "unknown.txt" {
		t.Errorf("lookup(unknown.txt) = %q, want identity", got)
	}
}

func TestProcess_HandlerDropSuppresses(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("").
			Add("keep.txt", []byte("kept")).
			Add("secret.txt", []byte("dropped")),
	}
	handler := NewStubHandler()
	handler.Decisions["secret.txt"] = Drop()
	w := archive.NewMemWriter()

	report, err := testProcessor(t, Options{}).Process(archives, handler, w)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if w.Entry("secret.txt") != nil {
		t.Error("dropped entry reached the output")
	}
	if w.Entry("keep.txt") == nil {
		t.Error("kept entry missing")
	}
	if report.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", report.Suppressed)
	}
}

func TestProcess_HandlerReplaceSubstitutes(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("").Add("note.txt", []byte("original")),
	}
	handler := NewStubHandler()
	handler.Decisions["note.txt"] = Replace([]byte("replaced"))
	w := archive.NewMemWriter()

	if _, err := testProcessor(t, Options{}).Process(archives, handler, w); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := string(w.Entry("note.txt").Data); got != "replaced" {
		t.Errorf("note.txt = %q, want replaced content", got)
	}
}

func TestProcess_HandlerLifecycleOrder(t *testing.T) {
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("x.txt", []byte("x")),
		archive.NewMemArchive("b/").Add("y.txt", []byte("y")),
	}
	handler := NewStubHandler()

	if _, err := testProcessor(t, Options{}).Process(archives, handler, archive.NewMemWriter()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []string{
		"start",
		"start-archive a/",
		"resource x.txt -> a/x.txt",
		"stop-archive a/",
		"start-archive b/",
		"resource y.txt -> b/y.txt",
		"stop-archive b/",
		"stop",
	}
	if len(handler.Calls) != len(want) {
		t.Fatalf("calls = %v, want %v", handler.Calls, want)
	}
	for i := range want {
		if handler.Calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, handler.Calls[i], want[i])
		}
	}
}

func TestProcess_InconsistentArchiveFails(t *testing.T) {
	a := &mutatingArchive{
		first:  archive.NewMemArchive("").Add("seen.txt", []byte("x")),
		second: archive.NewMemArchive("").Add("surprise.txt", []byte("y")),
	}
	w := archive.NewMemWriter()

	_, err := testProcessor(t, Options{}).Process([]archive.Archive{a}, nil, w)
	if !errors.Is(err, ErrInconsistentMapping) {
		t.Fatalf("error = %v, want ErrInconsistentMapping", err)
	}
	if !w.Closed {
		t.Error("writer not closed on failure")
	}
}

func TestProcess_ConsoleReportsMapping(t *testing.T) {
	var buf bytes.Buffer
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("lib.txt", []byte("x")),
	}

	p := testProcessor(t, Options{Console: log.Writer(&buf)})
	if _, err := p.Process(archives, nil, archive.NewMemWriter()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "lib.txt -> a/lib.txt [1]") {
		t.Errorf("console output missing mapping line:\n%s", out)
	}
	if !strings.Contains(out, "Creating runtime mapper") {
		t.Errorf("console output missing mapper notice:\n%s", out)
	}
}

func TestProcess_GeneratorFailureAborts(t *testing.T) {
	genErr := errors.New("boom")
	archives := []archive.Archive{
		archive.NewMemArchive("a/").Add("lib.txt", []byte("x")),
	}
	w := archive.NewMemWriter()

	p := testProcessor(t, Options{Generator: failingGenerator{err: genErr}})
	_, err := p.Process(archives, nil, w)
	if !errors.Is(err, genErr) {
		t.Fatalf("error = %v, want wrapped %v", err, genErr)
	}
	if !w.Closed {
		t.Error("writer not closed on generation failure")
	}
}

// mutatingArchive yields different contents on its second open,
// simulating an input that changed between the two passes.
type mutatingArchive struct {
	first  *archive.MemArchive
	second *archive.MemArchive
	opens  int
}

func (a *mutatingArchive) Prefix() string { return "" }

func (a *mutatingArchive) Open() (archive.EntryReader, error) {
	a.opens++
	if a.opens == 1 {
		return a.first.Open()
	}
	return a.second.Open()
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate(string, map[string]string) ([]byte, error) {
	return nil, g.err
}

var _ modbin.Generator = failingGenerator{}

func TestProcess_ReaderDrainedOnDrop(t *testing.T) {
	body := &trackingReader{r: strings.NewReader("must be drained")}
	a := &readerArchive{entries: []archive.Entry{{Name: "drop.txt", Body: body}}}

	handler := NewStubHandler()
	handler.Decisions["drop.txt"] = Drop()

	// The mapping pass digests (and thereby drains) its own traversal;
	// this archive replays the tracked body only on the second open.
	if _, err := testProcessor(t, Options{}).Process([]archive.Archive{a}, handler, archive.NewMemWriter()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !body.exhausted {
		t.Error("dropped entry's body was not drained")
	}
}

// readerArchive serves canned entries; the first open digests from a
// copy so the tracked reader is only consumed by the emission pass.
type readerArchive struct {
	entries []archive.Entry
	opens   int
}

func (a *readerArchive) Prefix() string { return "" }

func (a *readerArchive) Open() (archive.EntryReader, error) {
	a.opens++
	if a.opens == 1 {
		mem := archive.NewMemArchive("")
		for _, e := range a.entries {
			mem.Add(e.Name, []byte("must be drained"))
		}
		return mem.Open()
	}
	return &cannedReader{entries: a.entries}, nil
}

type cannedReader struct {
	entries []archive.Entry
	next    int
}

func (r *cannedReader) Next() (*archive.Entry, error) {
	if r.next >= len(r.entries) {
		return nil, io.EOF
	}
	e := r.entries[r.next]
	r.next++
	return &e, nil
}

func (r *cannedReader) Close() error { return nil }

type trackingReader struct {
	r         *strings.Reader
	exhausted bool
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err == io.EOF {
		t.exhausted = true
	}
	return n, err
}
