package relocation

import (
	"github.com/kuzukami/jdependency/archive"
	"github.com/kuzukami/jdependency/digest"
)

// ContentVersion identifies one physical variant of content that was
// contributed under a given original name. Versions accumulate in
// discovery order across all input archives.
type ContentVersion struct {
	// Origin is the archive that contributed this version.
	Origin archive.Archive

	// Digest fingerprints the version's content.
	Digest digest.Digest

	// NewName is the output name this version's origin produces for
	// the entry (origin prefix + original name).
	NewName string
}

// MappingEntry is the per-original-name record built during the
// mapping pass. Entries are keyed by the unprefixed original name, so
// the same logical resource contributed by several archives is tracked
// as multiple versions of one entry even when the prefixed output
// names differ.
type MappingEntry struct {
	// OldName is the original entry name, as found in the inputs.
	OldName string

	// NewName is the output name of the first-seen version. Resolve
	// answers with this name; later versions keep their own names in
	// Versions.
	NewName string

	// Versions holds every contribution seen for OldName, in
	// discovery order. Never empty. More than one element signals a
	// same-name contribution from multiple inputs.
	Versions []ContentVersion
}

// RenameRequired reports whether emitting this entry changes its name.
func (e *MappingEntry) RenameRequired() bool {
	return e.OldName != e.NewName
}

// Mapping is the complete original-name index built by the mapping
// pass. It is read-only during emission.
type Mapping struct {
	entries map[string]*MappingEntry
	order   []string
}

// Get returns the entry for an original name, or nil.
func (m *Mapping) Get(oldName string) *MappingEntry {
	return m.entries[oldName]
}

// Entries returns all mapping entries in discovery order.
func (m *Mapping) Entries() []*MappingEntry {
	out := make([]*MappingEntry, len(m.order))
	for i, name := range m.order {
		out[i] = m.entries[name]
	}
	return out
}

// Len returns the number of distinct original names seen.
func (m *Mapping) Len() int {
	return len(m.order)
}

// Resolve translates a pre-merge name to its post-merge name. Unknown
// names pass through unchanged: references to entries outside the
// merged set are legitimate and must not fail. Pure and side-effect
// free; module rewriters call it once per reference.
func (m *Mapping) Resolve(name string) string {
	if e, ok := m.entries[name]; ok {
		return e.NewName
	}
	return name
}

// Required reports whether any contribution in the mapping changes an
// entry's name. When false the merge is a pure passthrough: no module
// is rewritten and no runtime mapper is synthesized.
func (m *Mapping) Required() bool {
	for _, e := range m.entries {
		for _, v := range e.Versions {
			if v.NewName != e.OldName {
				return true
			}
		}
	}
	return false
}

func (m *Mapping) add(a archive.Archive, oldName, newName string, d digest.Digest) {
	v := ContentVersion{Origin: a, Digest: d, NewName: newName}
	if e, ok := m.entries[oldName]; ok {
		e.Versions = append(e.Versions, v)
		return
	}
	m.entries[oldName] = &MappingEntry{
		OldName:  oldName,
		NewName:  newName,
		Versions: []ContentVersion{v},
	}
	m.order = append(m.order, oldName)
}

func newMapping() *Mapping {
	return &Mapping{entries: make(map[string]*MappingEntry)}
}
