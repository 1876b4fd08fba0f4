package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
)

// XsiPrefix is the namespace prefix the encoder uses for xsi:type and
// xsi:nil. The enclosing envelope must declare it.
const XsiPrefix = "xsi"

// Encoder packs Values into XML fragments in wire order.
type Encoder struct {
	table *TypeOrderTable
}

// NewEncoder creates an encoder that orders fields using table. A nil table
// packs every composite in lexical field order.
func NewEncoder(table *TypeOrderTable) *Encoder {
	return &Encoder{table: table}
}

// PackOption adjusts a single Pack call.
type PackOption func(*packOptions)

type packOptions struct {
	wrapItem string
}

// Wrapped packs a top-level Sequence inside one element named after the
// field, with each item emitted as an itemName child.
func Wrapped(itemName string) PackOption {
	return func(o *packOptions) {
		o.wrapItem = itemName
	}
}

// Pack encodes v as the XML fragment for field. typeHint is the
// discriminator the caller expects; a Composite's own discriminator
// overrides it.
func (e *Encoder) Pack(v Value, field, typeHint string, opts ...PackOption) ([]byte, error) {
	var o packOptions
	for _, opt := range opts {
		opt(&o)
	}

	var buf bytes.Buffer
	if o.wrapItem != "" && v.Kind() == KindSequence {
		buf.WriteString("<" + field + ">")
		if err := e.pack(&buf, v, o.wrapItem, typeHint, true); err != nil {
			return nil, err
		}
		buf.WriteString("</" + field + ">")
		return buf.Bytes(), nil
	}
	if err := e.pack(&buf, v, field, typeHint, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pack writes v under field. emitType controls whether a caller-supplied
// hint is written as xsi:type; declared child types from the table are
// lookup context only.
func (e *Encoder) pack(buf *bytes.Buffer, v Value, field, typeHint string, emitType bool) error {
	if field == "" {
		return fmt.Errorf("codec: cannot pack %s without a field name", v.Kind())
	}

	switch v.Kind() {
	case KindNull:
		writeNil(buf, field)
		return nil
	case KindScalar:
		if v.Str() == Unset {
			writeNil(buf, field)
			return nil
		}
		buf.WriteString("<" + field + ">")
		if err := xml.EscapeText(buf, []byte(v.Str())); err != nil {
			return fmt.Errorf("codec: escape %s: %w", field, err)
		}
		buf.WriteString("</" + field + ">")
		return nil
	case KindSequence:
		for i, item := range v.Items() {
			if err := e.pack(buf, item, field, typeHint, emitType); err != nil {
				return fmt.Errorf("%s[%d]: %w", field, i, err)
			}
		}
		return nil
	case KindComposite:
		return e.packComposite(buf, v, field, typeHint, emitType)
	default:
		return fmt.Errorf("codec: unknown value kind %d", v.Kind())
	}
}

func (e *Encoder) packComposite(buf *bytes.Buffer, v Value, field, typeHint string, emitType bool) error {
	typ := typeHint
	explicit := emitType && typeHint != ""
	if v.Type() != "" {
		typ = v.Type()
		explicit = true
	}

	open := "<" + field
	if explicit {
		open += ` ` + XsiPrefix + `:type="` + escapeAttr(typ) + `"`
	}

	if v.Len() == 0 {
		if explicit {
			buf.WriteString(open + "/>")
		} else {
			buf.WriteString(open + "></" + field + ">")
		}
		return nil
	}

	buf.WriteString(open + ">")
	entry, ok := e.table.Lookup(field, typ)
	for _, child := range orderedChildren(v, entry, ok) {
		fv, _ := v.Get(child.Name)
		if err := e.pack(buf, fv, child.Name, child.Type, false); err != nil {
			return fmt.Errorf("%s.%w", field, err)
		}
	}
	buf.WriteString("</" + field + ">")
	return nil
}

// orderedChildren returns the present children of v in table order,
// followed by fields the table does not declare in lexical order.
func orderedChildren(v Value, entry TypeOrderEntry, ok bool) []FieldSpec {
	out := make([]FieldSpec, 0, v.Len())
	seen := make(map[string]bool, v.Len())
	if ok {
		for _, spec := range entry.Fields {
			if _, present := v.Get(spec.Name); present {
				out = append(out, spec)
				seen[spec.Name] = true
			}
		}
	}

	var rest []string
	for name := range v.Fields() {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, FieldSpec{Name: name})
	}
	return out
}

func writeNil(buf *bytes.Buffer, field string) {
	buf.WriteString("<" + field + " " + XsiPrefix + `:nil="true"/>`)
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Param is one named argument of a remote method.
type Param struct {
	Name  string
	Value Value
	Type  string
}

// PackParams encodes method arguments in order.
func (e *Encoder) PackParams(params ...Param) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range params {
		frag, err := e.Pack(p.Value, p.Name, p.Type)
		if err != nil {
			return nil, err
		}
		buf.Write(frag)
	}
	return buf.Bytes(), nil
}
