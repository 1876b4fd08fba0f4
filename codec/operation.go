package codec

import (
	"bytes"
	"fmt"
)

// Operator is the mutation verb of an Operation.
type Operator string

const (
	// OperatorAdd creates a new object. Polymorphic operands must carry a
	// discriminator.
	OperatorAdd Operator = "ADD"
	// OperatorSet updates an existing object identified by id.
	OperatorSet Operator = "SET"
	// OperatorRemove deletes an existing object identified by id.
	OperatorRemove Operator = "REMOVE"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OperatorAdd, OperatorSet, OperatorRemove:
		return true
	}
	return false
}

// Operation is one mutation request. Type is the discriminator of the
// operation element itself (for example "AdGroupCriterionOperation").
type Operation struct {
	Operator Operator
	Operand  Value
	Type     string
}

// Value returns the operation as a Composite.
func (op Operation) Value() Value {
	return TypedComposite(op.Type, map[string]Value{
		"operator": Scalar(string(op.Operator)),
		"operand":  op.Operand,
	})
}

// operandSpec returns the declared operand field for the operation type.
func operandSpec(table *TypeOrderTable, field, opType string) FieldSpec {
	if entry, ok := table.Lookup(field, opType); ok {
		if spec, ok := entry.Spec("operand"); ok {
			return spec
		}
	}
	return FieldSpec{Name: "operand"}
}

// PackOperations encodes ops as repeated field elements. The operator is
// always emitted before the operand.
func (e *Encoder) PackOperations(field string, ops ...Operation) ([]byte, error) {
	var buf bytes.Buffer
	for i, op := range ops {
		open := "<" + field
		if op.Type != "" {
			open += ` ` + XsiPrefix + `:type="` + escapeAttr(op.Type) + `"`
		}
		buf.WriteString(open + ">")
		buf.WriteString("<operator>" + escapeAttr(string(op.Operator)) + "</operator>")

		spec := operandSpec(e.table, field, op.Type)
		if err := e.pack(&buf, op.Operand, spec.Name, spec.Type, false); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		buf.WriteString("</" + field + ">")
	}
	return buf.Bytes(), nil
}
