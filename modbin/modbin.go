// Package modbin implements the compiled-module binary format.
//
// A compiled module is an archive entry holding executable payload
// plus a table of symbolic references to other entries, resolved by
// name at load time. The on-disk form is an 8-byte magic header
// followed by a msgpack-encoded Module frame.
//
// The package also implements the two collaborators the merge engine
// drives against this format: the reference rewriter that patches a
// module after its dependencies were renamed, and the generator for
// the runtime mapper module that carries the old-name to new-name
// table into the merged archive.
package modbin

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is the current module format version. The magic header
// embeds it; decoders reject anything newer.
const FormatVersion = 1

// Extension marks archive entries that contain compiled modules.
const Extension = ".mod"

// MapperName is the well-known name of the synthesized runtime mapper
// module. The archive entry is MapperName + Extension.
const MapperName = "jdependency/RuntimeMapper"

// magic is the 8-byte module file signature: "JDEPMOD" plus the format
// version byte.
var magic = [8]byte{'J', 'D', 'E', 'P', 'M', 'O', 'D', FormatVersion}

// Decoding errors.
var (
	ErrBadMagic           = errors.New("not a compiled module")
	ErrUnsupportedVersion = errors.New("unsupported module format version")
	ErrTruncated          = errors.New("truncated module")
)

// Module is the decoded form of a compiled-module entry.
type Module struct {
	// Name is the module's own entry name, without Extension.
	Name string `msgpack:"name"`

	// Refs are the names of entries this module resolves at load
	// time. The rewriter patches these.
	Refs []string `msgpack:"refs,omitempty"`

	// Mapper names the runtime mapper module to consult for any
	// reference that could not be resolved statically. Empty until a
	// merge with renames rewrites the module.
	Mapper string `msgpack:"mapper,omitempty"`

	// Table is the old-name to new-name lookup table. Only the
	// synthesized runtime mapper module carries one.
	Table map[string]string `msgpack:"table,omitempty"`

	// Code is the opaque executable payload.
	Code []byte `msgpack:"code,omitempty"`
}

// IsModuleName reports whether an entry name denotes a compiled
// module.
func IsModuleName(name string) bool {
	return strings.HasSuffix(name, Extension)
}

// Encode serializes a module with the magic header.
func Encode(m *Module) ([]byte, error) {
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding module %s: %w", m.Name, err)
	}
	out := make([]byte, 0, len(magic)+len(payload))
	out = append(out, magic[:]...)
	return append(out, payload...), nil
}

// Decode parses a module entry, validating the magic header and
// format version.
func Decode(data []byte) (*Module, error) {
	if len(data) < len(magic) {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:7], magic[:7]) {
		return nil, ErrBadMagic
	}
	if data[7] != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[7])
	}
	var m Module
	if err := msgpack.Unmarshal(data[len(magic):], &m); err != nil {
		return nil, fmt.Errorf("decoding module frame: %w", err)
	}
	return &m, nil
}
