package modbin

import "fmt"

// Rewriter patches the symbolic references of a compiled module after
// a merge renamed entries. The resolve function is pure and total: it
// returns the post-merge name for any known pre-merge name and its
// input unchanged otherwise. mapperName names the runtime mapper
// module references should fall back to when a target stays ambiguous
// until run time.
type Rewriter interface {
	Rewrite(moduleBytes []byte, resolve func(string) string, mapperName string) ([]byte, error)
}

// TableRewriter rewrites modules in the modbin format: every entry of
// the reference table goes through resolve, the module's own name goes
// through resolve, and the mapper name is recorded so the module's
// loader can route late-bound references through the runtime mapper.
type TableRewriter struct{}

// NewTableRewriter creates a rewriter for modbin modules.
func NewTableRewriter() *TableRewriter {
	return &TableRewriter{}
}

// Rewrite implements Rewriter.
func (*TableRewriter) Rewrite(moduleBytes []byte, resolve func(string) string, mapperName string) ([]byte, error) {
	m, err := Decode(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("rewriting module: %w", err)
	}

	m.Name = resolve(m.Name)
	for i, ref := range m.Refs {
		m.Refs[i] = resolve(ref)
	}
	m.Mapper = mapperName

	out, err := Encode(m)
	if err != nil {
		return nil, fmt.Errorf("rewriting module: %w", err)
	}
	return out, nil
}

// Generator synthesizes the runtime mapper module for a finished
// merge. mapping is the accumulated old-name to new-name table of
// every emitted entry.
type Generator interface {
	Generate(mapperName string, mapping map[string]string) ([]byte, error)
}

// MapperGenerator emits modbin runtime mapper modules.
type MapperGenerator struct{}

// NewMapperGenerator creates a generator for modbin mapper modules.
func NewMapperGenerator() *MapperGenerator {
	return &MapperGenerator{}
}

// Generate implements Generator.
func (*MapperGenerator) Generate(mapperName string, mapping map[string]string) ([]byte, error) {
	table := make(map[string]string, len(mapping))
	for oldName, newName := range mapping {
		table[oldName] = newName
	}
	out, err := Encode(&Module{Name: mapperName, Table: table})
	if err != nil {
		return nil, fmt.Errorf("generating mapper module %s: %w", mapperName, err)
	}
	return out, nil
}

// Lookup loads a runtime mapper module and returns its resolution
// function: known old names map to their new names, anything else is
// returned unchanged. This is what merged code calls at run time when
// it was compiled against pre-merge names.
func Lookup(moduleBytes []byte) (func(string) string, error) {
	m, err := Decode(moduleBytes)
	if err != nil {
		return nil, fmt.Errorf("loading mapper module: %w", err)
	}
	table := m.Table
	return func(name string) string {
		if mapped, ok := table[name]; ok {
			return mapped
		}
		return name
	}, nil
}
