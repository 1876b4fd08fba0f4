package codec

// Decoder unpacks parsed response nodes into Values.
type Decoder struct {
	table *TypeOrderTable
}

// NewDecoder creates a decoder that consults table for array-typed fields.
func NewDecoder(table *TypeOrderTable) *Decoder {
	return &Decoder{table: table}
}

// Unpack converts n into a Value. field and declaredType locate n's entry in
// the table; an xsi:type on n takes precedence over declaredType.
//
// Children declared as arrays always unpack to a Sequence, even when the
// response carried a single element. Nil placeholders inside lists are
// dropped. Scalar text is kept verbatim so large identifiers keep their
// exact digits. An empty element the table declares as a composite unpacks
// to an empty Composite rather than an empty Scalar.
//
// An empty Sequence packs to no elements at all, so it cannot be restored:
// the field is simply absent after a round trip.
func (d *Decoder) Unpack(n *Node, field, declaredType string) Value {
	if n == nil || n.Nil {
		return Null()
	}
	if n.IsLeaf() {
		if n.Type != "" && (d.table.IsType(n.Type) || (n.Text == "" && !xsdScalars[n.Type])) {
			return TypedComposite(n.Type, nil)
		}
		if n.Type == "" && n.Text == "" && d.composite(field, declaredType) {
			return Composite(nil)
		}
		return Scalar(n.Text)
	}

	typ := declaredType
	if n.Type != "" {
		typ = n.Type
	}
	entry, hasEntry := d.table.Lookup(field, typ)

	groups, order := groupChildren(n.Children)
	fields := make(map[string]Value, len(order))
	for _, name := range order {
		nodes := groups[name]

		var spec FieldSpec
		if hasEntry {
			spec, _ = entry.Spec(name)
		}

		if len(nodes) == 1 && !spec.Array {
			fields[name] = d.Unpack(nodes[0], name, spec.Type)
			continue
		}

		items := make([]Value, 0, len(nodes))
		for _, c := range nodes {
			if c.Nil {
				continue
			}
			items = append(items, d.Unpack(c, name, spec.Type))
		}
		fields[name] = Sequence(items...)
	}

	return TypedComposite(n.Type, fields)
}

// UnpackChildren unpacks every child of n as a field of one Composite,
// using field as n's own table key. It is the entry point for method
// response wrappers such as <getResponse>.
func (d *Decoder) UnpackChildren(n *Node, field string) Value {
	if n == nil {
		return Null()
	}
	if n.IsLeaf() {
		return Composite(nil)
	}
	return d.Unpack(n, field, "")
}

// composite reports whether the table declares field, of type typ, as a
// composite rather than a scalar.
func (d *Decoder) composite(field, typ string) bool {
	if xsdScalars[typ] {
		return false
	}
	_, ok := d.table.Lookup(field, typ)
	return ok
}

func groupChildren(children []*Node) (map[string][]*Node, []string) {
	groups := make(map[string][]*Node, len(children))
	var order []string
	for _, c := range children {
		if _, ok := groups[c.Name]; !ok {
			order = append(order, c.Name)
		}
		groups[c.Name] = append(groups[c.Name], c)
	}
	return groups, order
}

// xsdScalars are the XML Schema built-in types that mark a leaf as a scalar
// even when it carries an xsi:type.
var xsdScalars = map[string]bool{
	"string":       true,
	"int":          true,
	"long":         true,
	"short":        true,
	"byte":         true,
	"double":       true,
	"float":        true,
	"decimal":      true,
	"boolean":      true,
	"date":         true,
	"dateTime":     true,
	"base64Binary": true,
}
