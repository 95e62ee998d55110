package relocation

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kuzukami/jdependency/archive"
	"github.com/kuzukami/jdependency/digest"
	"github.com/kuzukami/jdependency/log"
	"github.com/kuzukami/jdependency/modbin"
)

// Options configures a Processor. The zero value is usable: a no-op
// console, the modbin rewriter and generator, and the well-known
// mapper name.
type Options struct {
	// Console receives the mapping report and synthesis notices.
	Console log.Console

	// Rewriter patches compiled modules after renames. Defaults to
	// the modbin table rewriter.
	Rewriter modbin.Rewriter

	// Generator synthesizes the runtime mapper module. Defaults to
	// the modbin mapper generator.
	Generator modbin.Generator

	// MapperName overrides the runtime mapper module name.
	MapperName string
}

// Processor merges input archives into one output archive. A
// processor is single-use state-free between runs: every Process call
// builds its own mapping and final-name table.
type Processor struct {
	engine     *digest.Engine
	console    log.Console
	rewriter   modbin.Rewriter
	generator  modbin.Generator
	mapperName string
}

// NewProcessor creates a processor digesting content with the given
// engine.
func NewProcessor(engine *digest.Engine, opts Options) *Processor {
	p := &Processor{
		engine:     engine,
		console:    opts.Console,
		rewriter:   opts.Rewriter,
		generator:  opts.Generator,
		mapperName: opts.MapperName,
	}
	if p.console == nil {
		p.console = log.Nop()
	}
	if p.rewriter == nil {
		p.rewriter = modbin.NewTableRewriter()
	}
	if p.generator == nil {
		p.generator = modbin.NewMapperGenerator()
	}
	if p.mapperName == "" {
		p.mapperName = modbin.MapperName
	}
	return p
}

// BuildMapping runs the mapping pass: every archive is traversed once,
// every non-directory entry is digested, and the per-original-name
// version history is accumulated. Directory entries are never mapped
// or digested.
func (p *Processor) BuildMapping(archives []archive.Archive) (*Mapping, error) {
	mapping := newMapping()
	for _, a := range archives {
		if err := p.scanArchive(a, mapping); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}

func (p *Processor) scanArchive(a archive.Archive, mapping *Mapping) (err error) {
	r, err := a.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	for {
		e, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if e.Dir {
			continue
		}
		d, err := p.engine.Sum(e.Body)
		if err != nil {
			return fmt.Errorf("digesting entry %s: %w", e.Name, err)
		}
		mapping.add(a, e.Name, a.Prefix()+e.Name, d)
	}
}

// Report summarizes a finished merge.
type Report struct {
	// Entries is the number of entries written to the output,
	// excluding the runtime mapper.
	Entries int

	// Renamed counts emitted entries whose output name differs from
	// their original name.
	Renamed int

	// Suppressed counts entries a handler dropped.
	Suppressed int

	// Rewritten counts compiled modules that went through the
	// rewriter.
	Rewritten int

	// MapperWritten reports whether the runtime mapper module was
	// appended.
	MapperWritten bool
}

// Process merges the archives into w. The mapping pass runs to
// completion before any entry is emitted: rewriting a module in the
// emission pass may depend on collisions only discovered in the last
// archive. The writer is closed exactly once, whatever the outcome;
// partial output on failure is the caller's responsibility to discard.
func (p *Processor) Process(archives []archive.Archive, handler ResourceHandler, w archive.Writer) (report *Report, err error) {
	if handler == nil {
		handler = NopHandler{}
	}
	defer func() {
		if closeErr := w.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	report = &Report{}

	mapping, err := p.BuildMapping(archives)
	if err != nil {
		return nil, err
	}

	p.console.Println("Building new archive with mappings:")
	for _, e := range mapping.Entries() {
		p.console.Println(fmt.Sprintf(" %s -> %s [%d]", e.OldName, e.NewName, len(e.Versions)))
	}
	required := mapping.Required()

	finalMapping := make(map[string]string, mapping.Len())

	if err := handler.OnStartProcessing(w); err != nil {
		return nil, err
	}
	for _, a := range archives {
		if err := p.emitArchive(a, mapping, required, finalMapping, handler, w, report); err != nil {
			return nil, err
		}
	}
	if err := handler.OnStopProcessing(w); err != nil {
		return nil, err
	}

	if !required {
		return report, nil
	}

	p.console.Println("Creating runtime mapper " + p.mapperName)
	moduleBytes, err := p.generator.Generate(p.mapperName, finalMapping)
	if err != nil {
		return nil, fmt.Errorf("could not generate mapper module %s: %w", p.mapperName, err)
	}
	if err := w.BeginEntry(p.mapperName + modbin.Extension); err != nil {
		return nil, err
	}
	if _, err := w.Write(moduleBytes); err != nil {
		return nil, fmt.Errorf("writing mapper module: %w", err)
	}
	if err := w.EndEntry(); err != nil {
		return nil, err
	}
	report.MapperWritten = true
	return report, nil
}

// emitArchive runs one archive's slice of the emission pass.
func (p *Processor) emitArchive(a archive.Archive, mapping *Mapping, required bool, finalMapping map[string]string, handler ResourceHandler, w archive.Writer, report *Report) (err error) {
	if err := handler.OnStartArchive(a, w); err != nil {
		return err
	}

	r, err := a.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if e.Dir {
			continue
		}
		if err := p.emitEntry(a, e, mapping, required, finalMapping, handler, w, report); err != nil {
			return err
		}
	}

	return handler.OnStopArchive(a, w)
}

func (p *Processor) emitEntry(a archive.Archive, e *archive.Entry, mapping *Mapping, required bool, finalMapping map[string]string, handler ResourceHandler, w archive.Writer, report *Report) error {
	entry := mapping.Get(e.Name)
	if entry == nil {
		return fmt.Errorf("%w: entry %q appeared in the emission pass only", ErrInconsistentMapping, e.Name)
	}

	// Entries from a later archive than the first sighting emit under
	// their own prefix, not the first-seen name. Resolve still answers
	// with the first-seen name; ambiguous references go through the
	// runtime mapper.
	newName := a.Prefix() + e.Name
	finalMapping[entry.OldName] = newName

	decision, err := handler.OnResource(a, entry.OldName, newName, entry.Versions, e.Body)
	if err != nil {
		return err
	}

	body := e.Body
	switch decision.kind {
	case decisionDrop:
		report.Suppressed++
		_, err := io.Copy(io.Discard, body)
		return err
	case decisionReplace:
		if _, err := io.Copy(io.Discard, body); err != nil {
			return err
		}
		body = bytes.NewReader(decision.data)
	}

	if err := w.BeginEntry(newName); err != nil {
		return err
	}

	if modbin.IsModuleName(newName) && required {
		raw, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("reading module %s: %w", newName, err)
		}
		rewritten, err := p.rewriter.Rewrite(raw, mapping.Resolve, p.mapperName)
		if err != nil {
			return fmt.Errorf("rewriting module %s: %w", newName, err)
		}
		if _, err := w.Write(rewritten); err != nil {
			return fmt.Errorf("writing entry %s: %w", newName, err)
		}
		report.Rewritten++
	} else if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("writing entry %s: %w", newName, err)
	}

	if err := w.EndEntry(); err != nil {
		return err
	}
	report.Entries++
	if newName != entry.OldName {
		report.Renamed++
	}
	return nil
}
