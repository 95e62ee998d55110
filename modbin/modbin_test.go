package modbin

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := &Module{
		Name: "app/main",
		Refs: []string{"lib/util", "lib/strings"},
		Code: []byte{0x01, 0x02, 0x03},
	}

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Name != m.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, m.Name)
	}
	if len(decoded.Refs) != 2 || decoded.Refs[0] != "lib/util" || decoded.Refs[1] != "lib/strings" {
		t.Errorf("Refs = %v", decoded.Refs)
	}
	if !bytes.Equal(decoded.Code, m.Code) {
		t.Errorf("Code = %v, want %v", decoded.Code, m.Code)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	if _, err := Decode([]byte("NOTAMODULE______")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("error = %v, want ErrBadMagic", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	if _, err := Decode([]byte("JDE")); !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	data, err := Encode(&Module{Name: "x"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	data[7] = FormatVersion + 1
	if _, err := Decode(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestIsModuleName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"app/main.mod", true},
		{"lib/util.mod", true},
		{"readme.txt", false},
		{"mod", false},
		{"app/main.mod.txt", false},
	}
	for _, c := range cases {
		if got := IsModuleName(c.name); got != c.want {
			t.Errorf("IsModuleName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTableRewriter_PatchesRefs(t *testing.T) {
	original, err := Encode(&Module{
		Name: "app/main",
		Refs: []string{"lib/util", "vendor/json", "external/thing"},
		Code: []byte("payload"),
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	renames := map[string]string{
		"lib/util":    "a/lib/util",
		"vendor/json": "a/vendor/json",
		"app/main":    "a/app/main",
	}
	resolve := func(name string) string {
		if mapped, ok := renames[name]; ok {
			return mapped
		}
		return name
	}

	rewritten, err := NewTableRewriter().Rewrite(original, resolve, MapperName)
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	m, err := Decode(rewritten)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Name != "a/app/main" {
		t.Errorf("Name = %q, want %q", m.Name, "a/app/main")
	}
	if m.Refs[0] != "a/lib/util" || m.Refs[1] != "a/vendor/json" {
		t.Errorf("Refs = %v", m.Refs)
	}
	if m.Refs[2] != "external/thing" {
		t.Errorf("unknown ref rewritten: %q", m.Refs[2])
	}
	if m.Mapper != MapperName {
		t.Errorf("Mapper = %q, want %q", m.Mapper, MapperName)
	}
	if string(m.Code) != "payload" {
		t.Errorf("Code changed: %q", m.Code)
	}
}

func TestTableRewriter_RejectsNonModule(t *testing.T) {
	if _, err := NewTableRewriter().Rewrite([]byte("plain text"), func(s string) string { return s }, MapperName); err == nil {
		t.Fatal("expected error for non-module bytes")
	}
}

func TestMapperGenerator_LookupRoundTrip(t *testing.T) {
	mapping := map[string]string{
		"lib/util":  "a/lib/util",
		"assets/ui": "b/assets/ui",
	}

	data, err := NewMapperGenerator().Generate(MapperName, mapping)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lookup, err := Lookup(data)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := lookup("lib/util"); got != "a/lib/util" {
		t.Errorf("lookup(lib/util) = %q, want a/lib/util", got)
	}
	if got := lookup("assets/ui"); got != "b/assets/ui" {
		t.Errorf("lookup(assets/ui) = %q, want b/assets/ui", got)
	}
	if got := lookup("never/seen"); got != "never/seen" {
		t.Errorf("lookup(never/seen) = %q, want identity", got)
	}
}
