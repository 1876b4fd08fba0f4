package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// FieldSpec declares one child field of a wire type.
type FieldSpec struct {
	// Name is the element name.
	Name string

	// Array marks fields whose wire type is a list, even when the server
	// returns a single element.
	Array bool

	// Type is the declared wire type of the field (a table type for
	// composites, or an XSD scalar name such as "long").
	Type string
}

// String renders the spec in the table file syntax: name[]:Type.
func (f FieldSpec) String() string {
	s := f.Name
	if f.Array {
		s += "[]"
	}
	if f.Type != "" {
		s += ":" + f.Type
	}
	return s
}

// ParseFieldSpec parses "name", "name[]", "name:Type" or "name[]:Type".
func ParseFieldSpec(s string) (FieldSpec, error) {
	var f FieldSpec
	name, typ, _ := strings.Cut(strings.TrimSpace(s), ":")
	if strings.HasSuffix(name, "[]") {
		f.Array = true
		name = strings.TrimSuffix(name, "[]")
	}
	if name == "" {
		return FieldSpec{}, fmt.Errorf("codec: empty field name in %q", s)
	}
	f.Name = name
	f.Type = strings.TrimSpace(typ)
	return f, nil
}

// TypeOrderEntry is the child field order for one (field, type) pair.
type TypeOrderEntry struct {
	// Field is the element name this entry applies to. Empty entries apply
	// to Type wherever it appears.
	Field string

	// Type is the discriminator this entry applies to. Empty for
	// non-polymorphic fields.
	Type string

	// Fields lists the children in wire order.
	Fields []FieldSpec
}

// Spec returns the declaration of the named child.
func (e TypeOrderEntry) Spec(name string) (FieldSpec, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// TypeOrderTable resolves field order and discriminators for the wire
// format. It is read-only after construction and safe for concurrent use.
type TypeOrderTable struct {
	byField map[string][]TypeOrderEntry
	byType  map[string]TypeOrderEntry
}

// NewTypeOrderTable builds a table from entries.
func NewTypeOrderTable(entries ...TypeOrderEntry) *TypeOrderTable {
	t := &TypeOrderTable{
		byField: make(map[string][]TypeOrderEntry),
		byType:  make(map[string]TypeOrderEntry),
	}
	for _, e := range entries {
		if e.Field != "" {
			t.byField[e.Field] = append(t.byField[e.Field], e)
		}
		if e.Type != "" {
			if _, dup := t.byType[e.Type]; !dup || e.Field == "" {
				t.byType[e.Type] = e
			}
		}
	}
	return t
}

// Lookup returns the entry for a field, disambiguated by typ.
//
// An entry whose type matches typ wins, first among the field's entries and
// then among type-only entries. Otherwise the field's single type-less entry
// is used. A field with exactly one entry resolves to it when typ is empty.
// Anything else is ambiguous and reports false.
func (t *TypeOrderTable) Lookup(field, typ string) (TypeOrderEntry, bool) {
	if t == nil {
		return TypeOrderEntry{}, false
	}
	candidates := t.byField[field]
	if typ != "" {
		for _, e := range candidates {
			if e.Type == typ {
				return e, true
			}
		}
		if e, ok := t.byType[typ]; ok {
			return e, true
		}
	}

	var untyped []TypeOrderEntry
	for _, e := range candidates {
		if e.Type == "" {
			untyped = append(untyped, e)
		}
	}
	if len(untyped) == 1 {
		return untyped[0], true
	}
	if typ == "" && len(candidates) == 1 {
		return candidates[0], true
	}
	return TypeOrderEntry{}, false
}

// IsType reports whether name is a composite type known to the table.
func (t *TypeOrderTable) IsType(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byType[name]
	return ok
}

// Polymorphic reports whether field is declared with any concrete type,
// which makes a discriminator mandatory when creating it.
func (t *TypeOrderTable) Polymorphic(field string) bool {
	if t == nil {
		return false
	}
	typed := 0
	for _, e := range t.byField[field] {
		if e.Type != "" {
			typed++
		}
	}
	return typed > 0
}

// Entries returns every entry declared for field.
func (t *TypeOrderTable) Entries(field string) []TypeOrderEntry {
	if t == nil {
		return nil
	}
	return t.byField[field]
}

// tableFile is the YAML representation of a table.
type tableFile struct {
	Entries []struct {
		Field  string   `yaml:"field"`
		Type   string   `yaml:"type"`
		Fields []string `yaml:"fields"`
	} `yaml:"entries"`
}

// ParseTable decodes a YAML table document:
//
//	entries:
//	  - field: criterion
//	    type: Keyword
//	    fields: [id, text, url, matchType, contentLabelType]
//	  - type: ReportPage
//	    fields: ["dimensions[]:Dimension", "totalNumEntries:int"]
func ParseTable(data []byte) (*TypeOrderTable, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("codec: parse type table: %w", err)
	}

	entries := make([]TypeOrderEntry, 0, len(tf.Entries))
	for i, raw := range tf.Entries {
		if raw.Field == "" && raw.Type == "" {
			return nil, fmt.Errorf("codec: type table entry %d has neither field nor type", i)
		}
		e := TypeOrderEntry{Field: raw.Field, Type: raw.Type}
		for _, s := range raw.Fields {
			f, err := ParseFieldSpec(s)
			if err != nil {
				return nil, fmt.Errorf("codec: type table entry %d: %w", i, err)
			}
			e.Fields = append(e.Fields, f)
		}
		entries = append(entries, e)
	}
	return NewTypeOrderTable(entries...), nil
}

// LoadTable reads a YAML table from r.
func LoadTable(r io.Reader) (*TypeOrderTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: read type table: %w", err)
	}
	return ParseTable(data)
}
