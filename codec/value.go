package codec

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// Kind identifies which arm of the Value union is populated.
type Kind int

const (
	// KindNull is an absent or explicitly nil value.
	KindNull Kind = iota
	// KindScalar is a textual leaf value.
	KindScalar
	// KindComposite is a keyed object, optionally carrying a discriminator.
	KindComposite
	// KindSequence is an ordered list of values.
	KindSequence
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindScalar:
		return "Scalar"
	case KindComposite:
		return "Composite"
	case KindSequence:
		return "Sequence"
	default:
		return "Unknown"
	}
}

// Unset is the placeholder string callers use for optional fields they want
// to leave unset. Validation skips it and the encoder emits it as nil.
const Unset = "None"

// DiscriminatorKeys are the map keys FromAny folds into a Composite's
// discriminator. The first entry is the canonical name; criterionType is
// the name criterion operands use.
var DiscriminatorKeys = []string{"type", "xsi_type", "xsi:type", "criterionType"}

// Value is the interchange type between application code and the codec.
// The zero Value is Null.
type Value struct {
	kind   Kind
	text   string
	typ    string
	fields map[string]Value
	items  []Value
}

// Null returns a nil value.
func Null() Value { return Value{} }

// Scalar returns a textual leaf value.
func Scalar(s string) Value { return Value{kind: KindScalar, text: s} }

// Composite returns a keyed value with no discriminator.
func Composite(fields map[string]Value) Value {
	return TypedComposite("", fields)
}

// TypedComposite returns a keyed value whose concrete wire type is typ.
func TypedComposite(typ string, fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindComposite, typ: typ, fields: fields}
}

// Sequence returns an ordered list value.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, items: items}
}

// Kind reports which arm of the union is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is nil.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the scalar text. It is empty for non-scalars.
func (v Value) Str() string { return v.text }

// Type returns the discriminator of a Composite, or "".
func (v Value) Type() string { return v.typ }

// WithType returns a copy of a Composite with its discriminator replaced.
func (v Value) WithType(typ string) Value {
	if v.kind != KindComposite {
		return v
	}
	v.typ = typ
	return v
}

// Get returns the named field of a Composite.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindComposite {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Fields returns the fields of a Composite. The map must not be modified.
func (v Value) Fields() map[string]Value { return v.fields }

// Keys returns the field names of a Composite in lexical order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the elements of a Sequence.
func (v Value) Items() []Value { return v.items }

// Len returns the number of fields or items.
func (v Value) Len() int {
	switch v.kind {
	case KindComposite:
		return len(v.fields)
	case KindSequence:
		return len(v.items)
	default:
		return 0
	}
}

// Equal reports structural equality, discriminators included.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindScalar:
		return v.text == o.text
	case KindComposite:
		if v.typ != o.typ || len(v.fields) != len(o.fields) {
			return false
		}
		for k, fv := range v.fields {
			ov, ok := o.fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v back to plain Go data: nil, string, map[string]any
// or []any. A discriminator is stored under the canonical "type" key.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.text
	case KindComposite:
		m := make(map[string]any, len(v.fields)+1)
		for k, f := range v.fields {
			m[k] = f.Interface()
		}
		if v.typ != "" {
			m[DiscriminatorKeys[0]] = v.typ
		}
		return m
	case KindSequence:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders v for logs and test failures.
func (v Value) String() string {
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(b)
}

// FromAny converts plain Go data into a Value. Maps become Composites with
// any of DiscriminatorKeys folded into the discriminator, slices become
// Sequences, numbers and booleans are rendered as text.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return Scalar(t), nil
	case bool:
		return Scalar(strconv.FormatBool(t)), nil
	case int:
		return Scalar(strconv.Itoa(t)), nil
	case int32:
		return Scalar(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return Scalar(strconv.FormatInt(t, 10)), nil
	case uint64:
		return Scalar(strconv.FormatUint(t, 10)), nil
	case float64:
		return Scalar(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case json.Number:
		return Scalar(t.String()), nil
	case *big.Int:
		if t == nil {
			return Null(), nil
		}
		return Scalar(t.String()), nil
	case fmt.Stringer:
		return Scalar(t.String()), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		var typ string
		for k, raw := range t {
			if isDiscriminatorKey(k) {
				s, ok := raw.(string)
				if !ok {
					return Value{}, fmt.Errorf("codec: discriminator %q must be a string, got %T", k, raw)
				}
				typ = s
				continue
			}
			fv, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = fv
		}
		return TypedComposite(typ, fields), nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return FromAny(m)
	case []any:
		items := make([]Value, 0, len(t))
		for i, raw := range t {
			iv, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return Sequence(items...), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = Scalar(s)
		}
		return Sequence(items...), nil
	case []map[string]any:
		items := make([]Value, 0, len(t))
		for i, m := range t {
			iv, err := FromAny(m)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return Sequence(items...), nil
	default:
		return Value{}, fmt.Errorf("codec: unsupported native type %T", in)
	}
}

// MustFromAny is FromAny for literals in tests and examples.
func MustFromAny(in any) Value {
	v, err := FromAny(in)
	if err != nil {
		panic(err)
	}
	return v
}

func isDiscriminatorKey(k string) bool {
	for _, d := range DiscriminatorKeys {
		if k == d {
			return true
		}
	}
	return false
}
