package codec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValidationError reports a request value that does not match its expected
// shape. It is raised before any network I/O.
type ValidationError struct {
	// Path locates the offending value, e.g. "operations[0].operand.text".
	Path string

	// Msg describes the failure.
	Msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "validation: " + e.Msg
	}
	return "validation: " + e.Path + ": " + e.Msg
}

// ScalarKind restricts the textual format of a scalar.
type ScalarKind int

const (
	// ScalarAny accepts any text.
	ScalarAny ScalarKind = iota
	// ScalarString accepts any text but rejects non-scalars.
	ScalarString
	// ScalarInt accepts base-10 integers of any size.
	ScalarInt
	// ScalarFloat accepts decimal numbers.
	ScalarFloat
	// ScalarBool accepts "true" or "false".
	ScalarBool
)

// String returns the string representation of the scalar kind.
func (k ScalarKind) String() string {
	switch k {
	case ScalarString:
		return "string"
	case ScalarInt:
		return "integer"
	case ScalarFloat:
		return "number"
	case ScalarBool:
		return "boolean"
	default:
		return "any"
	}
}

// scalarKindFor maps an XSD type name to the scalar check it implies.
func scalarKindFor(xsdType string) (ScalarKind, bool) {
	switch xsdType {
	case "string", "dateTime", "date":
		return ScalarString, true
	case "int", "long", "short", "byte":
		return ScalarInt, true
	case "double", "float", "decimal":
		return ScalarFloat, true
	case "boolean":
		return ScalarBool, true
	}
	return ScalarAny, false
}

// Shape describes what a value is allowed to look like.
type Shape struct {
	// Kinds lists the accepted kinds. Empty accepts any kind.
	Kinds []Kind

	// Scalar restricts scalar text when the value is a Scalar.
	Scalar ScalarKind

	// Fields are the recognized keys of a Composite.
	Fields map[string]*Shape

	// Required keys must be present in a Composite.
	Required []string

	// Discriminator lists the accepted discriminator key names. A non-empty
	// list marks the shape as polymorphic.
	Discriminator []string

	// Variants narrow Fields for a specific discriminator.
	Variants map[string]*Shape

	// Elem is the shape of each element when the value is a Sequence.
	Elem *Shape

	// AllowUnknown accepts keys not listed in Fields.
	AllowUnknown bool
}

func (s *Shape) accepts(k Kind) bool {
	if len(s.Kinds) == 0 {
		return true
	}
	for _, allowed := range s.Kinds {
		if allowed == k {
			return true
		}
	}
	return false
}

// Validate checks v against shape. A nil shape accepts anything. The Unset
// placeholder is treated as absent and never type-checked.
func Validate(v Value, shape *Shape) error {
	return validate(v, shape, "")
}

func validate(v Value, s *Shape, path string) error {
	if s == nil || v.IsNull() {
		return nil
	}
	if v.Kind() == KindScalar && v.Str() == Unset {
		return nil
	}

	if s.Elem != nil {
		if v.Kind() != KindSequence {
			return validate(v, s.Elem, path)
		}
		for i, item := range v.Items() {
			if err := validate(item, s.Elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	if !s.accepts(v.Kind()) {
		return &ValidationError{Path: path, Msg: fmt.Sprintf("expected %s, got %s", kindList(s.Kinds), v.Kind())}
	}

	switch v.Kind() {
	case KindScalar:
		return validateScalar(v.Str(), s.Scalar, path)
	case KindSequence:
		for i, item := range v.Items() {
			if item.Kind() == KindSequence {
				return &ValidationError{Path: fmt.Sprintf("%s[%d]", path, i), Msg: "nested sequences are not supported"}
			}
		}
		return nil
	case KindComposite:
		return validateComposite(v, s, path)
	}
	return nil
}

func validateScalar(text string, kind ScalarKind, path string) error {
	var ok bool
	switch kind {
	case ScalarInt:
		ok = isInteger(text)
	case ScalarFloat:
		_, err := strconv.ParseFloat(text, 64)
		ok = err == nil
	case ScalarBool:
		ok = text == "true" || text == "false"
	default:
		ok = true
	}
	if !ok {
		return &ValidationError{Path: path, Msg: fmt.Sprintf("%q is not a valid %s", text, kind)}
	}
	return nil
}

func validateComposite(v Value, s *Shape, path string) error {
	effective := s
	if v.Type() != "" && s.Variants != nil {
		variant, ok := s.Variants[v.Type()]
		switch {
		case ok:
			effective = variant
		case s.AllowUnknown:
			effective = s.generic()
		default:
			return &ValidationError{Path: path, Msg: fmt.Sprintf("unknown type %q", v.Type())}
		}
	}

	for _, req := range effective.Required {
		f, ok := v.Get(req)
		if !ok || f.IsNull() {
			return &ValidationError{Path: path, Msg: fmt.Sprintf("missing required field %q", req)}
		}
	}

	for _, name := range v.Keys() {
		fv, _ := v.Get(name)
		fs, known := effective.Fields[name]
		if !known {
			if effective.AllowUnknown || len(effective.Fields) == 0 {
				continue
			}
			return &ValidationError{Path: join(path, name), Msg: "unrecognized field"}
		}
		if err := validate(fv, fs, join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOperation checks an operation's operator and operand. ADD on a
// polymorphic shape requires the operand to name its concrete type; SET and
// REMOVE identify their target by id and skip that requirement.
func ValidateOperation(op Operation, operand *Shape) error {
	if !op.Operator.Valid() {
		return &ValidationError{Path: "operator", Msg: fmt.Sprintf("unknown operator %q", op.Operator)}
	}
	if op.Operand.IsNull() {
		return &ValidationError{Path: "operand", Msg: "operand is required"}
	}
	if operand == nil {
		return nil
	}

	if op.Operator == OperatorAdd && len(operand.Discriminator) > 0 && op.Operand.Type() == "" {
		return &ValidationError{
			Path: "operand",
			Msg:  fmt.Sprintf("missing required discriminator %q for %s", operand.Discriminator[0], op.Operator),
		}
	}

	shape := operand
	if op.Operator != OperatorAdd {
		shape = operand.generic()
	}
	return validate(op.Operand, shape, "operand")
}

// ValidateOperations checks each operation packed under field against the
// operand shape the table declares for its operation type. Paths in the
// returned error are prefixed with "field[i]".
func ValidateOperations(table *TypeOrderTable, field string, strict bool, ops ...Operation) error {
	for i, op := range ops {
		spec := operandSpec(table, field, op.Type)
		err := ValidateOperation(op, table.Shape(spec.Name, spec.Type, strict))
		if err == nil {
			continue
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Path: join(fmt.Sprintf("%s[%d]", field, i), verr.Path), Msg: verr.Msg}
		}
		return err
	}
	return nil
}

// generic returns s without its per-type variants, accepting the union of
// all variant fields.
func (s *Shape) generic() *Shape {
	if len(s.Variants) == 0 {
		return s
	}
	g := *s
	g.Required = nil
	g.Variants = nil
	g.Fields = make(map[string]*Shape, len(s.Fields))
	for k, f := range s.Fields {
		g.Fields[k] = f
	}
	for _, variant := range s.Variants {
		for k, f := range variant.Fields {
			if _, ok := g.Fields[k]; !ok {
				g.Fields[k] = f
			}
		}
	}
	return &g
}

// Shape derives the expected shape of field (with declared type typ) from
// the table. It returns nil when the table knows nothing about the field,
// which Validate treats as "accept anything". Unknown keys are rejected
// only when strict is set.
func (t *TypeOrderTable) Shape(field, typ string, strict bool) *Shape {
	b := &shapeBuilder{table: t, strict: strict, memo: map[string]*Shape{}}
	return b.field(field, typ)
}

type shapeBuilder struct {
	table  *TypeOrderTable
	strict bool
	memo   map[string]*Shape
}

func (b *shapeBuilder) field(field, typ string) *Shape {
	if b.table == nil {
		return nil
	}

	if typ != "" && !b.table.Polymorphic(field) {
		if e, ok := b.table.Lookup(field, typ); ok {
			return b.entry(e)
		}
	}

	entries := b.table.Entries(field)
	if len(entries) == 0 {
		if e, ok := b.table.Lookup("", typ); ok {
			return b.entry(e)
		}
		return nil
	}

	if !b.table.Polymorphic(field) {
		e, ok := b.table.Lookup(field, "")
		if !ok {
			return nil
		}
		return b.entry(e)
	}

	key := "field:" + field
	if s, ok := b.memo[key]; ok {
		return s
	}
	s := &Shape{
		Kinds:         []Kind{KindComposite},
		Fields:        map[string]*Shape{},
		Discriminator: append([]string(nil), DiscriminatorKeys...),
		Variants:      map[string]*Shape{},
		AllowUnknown:  !b.strict,
	}
	b.memo[key] = s
	for _, e := range entries {
		variant := b.entry(e)
		if e.Type == "" {
			for k, f := range variant.Fields {
				s.Fields[k] = f
			}
			continue
		}
		s.Variants[e.Type] = variant
	}
	return s
}

func (b *shapeBuilder) entry(e TypeOrderEntry) *Shape {
	key := e.Field + "|" + e.Type
	if s, ok := b.memo[key]; ok {
		return s
	}
	s := &Shape{
		Kinds:        []Kind{KindComposite},
		Fields:       make(map[string]*Shape, len(e.Fields)),
		AllowUnknown: !b.strict,
	}
	b.memo[key] = s
	for _, f := range e.Fields {
		s.Fields[f.Name] = b.spec(f)
	}
	return s
}

func (b *shapeBuilder) spec(f FieldSpec) *Shape {
	var elem *Shape
	switch {
	case f.Type == "":
		elem = b.field(f.Name, "")
		if elem == nil {
			elem = &Shape{}
		}
	case b.table.IsType(f.Type) || b.table.Polymorphic(f.Name):
		elem = b.field(f.Name, f.Type)
		if elem == nil {
			elem = &Shape{Kinds: []Kind{KindComposite}, AllowUnknown: true}
		}
	default:
		kind, _ := scalarKindFor(f.Type)
		elem = &Shape{Kinds: []Kind{KindScalar}, Scalar: kind}
	}

	if f.Array {
		return &Shape{Elem: elem}
	}
	return elem
}

// isInteger accepts integers too large for int64; ids are compared as text.
func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func kindList(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	sort.Strings(names)
	return strings.Join(names, " or ")
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
