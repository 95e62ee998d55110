package relocation

import (
	"io"

	"github.com/kuzukami/jdependency/archive"
)

// ResourceHandler is the injected per-run policy that observes a merge
// and may transform or suppress individual entries before they reach
// the output. One instance serves one run; hooks are called from a
// single goroutine in strict lifecycle order.
type ResourceHandler interface {
	// OnStartProcessing runs once, before any archive is emitted.
	OnStartProcessing(w archive.Writer) error

	// OnStartArchive and OnStopArchive bracket each input archive's
	// entries during the emission pass.
	OnStartArchive(a archive.Archive, w archive.Writer) error
	OnStopArchive(a archive.Archive, w archive.Writer) error

	// OnStopProcessing runs once, after the last archive and before
	// the runtime mapper is synthesized.
	OnStopProcessing(w archive.Writer) error

	// OnResource is offered every entry about to be emitted. body is
	// the entry's content; a handler that reads from it must either
	// consume it fully or return a Replace decision, since the engine
	// streams whatever is left to the output on Keep.
	OnResource(a archive.Archive, oldName, newName string, versions []ContentVersion, body io.Reader) (Decision, error)
}

type decisionKind int

const (
	decisionKeep decisionKind = iota
	decisionReplace
	decisionDrop
)

// Decision is a handler's verdict on one entry.
type Decision struct {
	kind decisionKind
	data []byte
}

// Keep emits the entry unchanged.
func Keep() Decision {
	return Decision{kind: decisionKeep}
}

// Replace emits the given bytes instead of the entry's content. The
// engine drains the original body.
func Replace(data []byte) Decision {
	return Decision{kind: decisionReplace, data: data}
}

// Drop suppresses the entry entirely; nothing is written to the
// output. The engine drains the body.
func Drop() Decision {
	return Decision{kind: decisionDrop}
}

// NopHandler keeps every entry and ignores all lifecycle hooks. It is
// the default when no handler is configured.
type NopHandler struct{}

func (NopHandler) OnStartProcessing(archive.Writer) error               { return nil }
func (NopHandler) OnStartArchive(archive.Archive, archive.Writer) error { return nil }
func (NopHandler) OnStopArchive(archive.Archive, archive.Writer) error  { return nil }
func (NopHandler) OnStopProcessing(archive.Writer) error                { return nil }
func (NopHandler) OnResource(_ archive.Archive, _, _ string, _ []ContentVersion, _ io.Reader) (Decision, error) {
	return Keep(), nil
}

// Verify NopHandler implements ResourceHandler.
var _ ResourceHandler = NopHandler{}

// StubHandler records hook invocations and applies a fixed decision
// per old name. Use for testing merge policies without a real handler.
type StubHandler struct {
	// Decisions maps old names to the decision to return. Names not
	// present are kept.
	Decisions map[string]Decision

	// Calls records hook invocations in order, as
	// "start"/"stop"/"start-archive <prefix>"/"stop-archive <prefix>"
	// and "resource <oldName> -> <newName>".
	Calls []string
}

// NewStubHandler creates a stub keeping every entry.
func NewStubHandler() *StubHandler {
	return &StubHandler{Decisions: make(map[string]Decision)}
}

// OnStartProcessing implements ResourceHandler.
func (h *StubHandler) OnStartProcessing(archive.Writer) error {
	h.Calls = append(h.Calls, "start")
	return nil
}

// OnStartArchive implements ResourceHandler.
func (h *StubHandler) OnStartArchive(a archive.Archive, _ archive.Writer) error {
	h.Calls = append(h.Calls, "start-archive "+a.Prefix())
	return nil
}

// OnStopArchive implements ResourceHandler.
func (h *StubHandler) OnStopArchive(a archive.Archive, _ archive.Writer) error {
	h.Calls = append(h.Calls, "stop-archive "+a.Prefix())
	return nil
}

// OnStopProcessing implements ResourceHandler.
func (h *StubHandler) OnStopProcessing(archive.Writer) error {
	h.Calls = append(h.Calls, "stop")
	return nil
}

// OnResource implements ResourceHandler.
func (h *StubHandler) OnResource(_ archive.Archive, oldName, newName string, _ []ContentVersion, _ io.Reader) (Decision, error) {
	h.Calls = append(h.Calls, "resource "+oldName+" -> "+newName)
	if d, ok := h.Decisions[oldName]; ok {
		return d, nil
	}
	return Keep(), nil
}

// Verify StubHandler implements ResourceHandler.
var _ ResourceHandler = (*StubHandler)(nil)
