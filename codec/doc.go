// Package codec converts native values to and from the positional,
// polymorphically typed XML used in SOAP request and response bodies.
//
// # Values
//
// Value is a tagged union of Null, Scalar, Composite and Sequence. A
// Composite may carry a discriminator naming its concrete wire type; it is
// written as xsi:type on the wire. FromAny builds Values from plain Go data
// and folds the "type", "xsi_type" and "xsi:type" keys into the
// discriminator.
//
// # Type order table
//
// The wire format encodes some information by element position, so the
// children of a composite must be written in the order the server's schema
// declares. TypeOrderTable supplies that order per (field, type) pair and
// marks list-typed fields:
//
//	table, err := codec.ParseTable([]byte(`
//	entries:
//	  - field: criterion
//	    type: Keyword
//	    fields: [id, text, url, matchType, contentLabelType]
//	`))
//
// # Encoding and decoding
//
// Encoder.Pack writes a Value as an XML fragment in table order. ParseXML
// turns a response into a Node tree and Decoder.Unpack converts it back into
// a Value, re-wrapping single elements of list-typed fields into one-element
// Sequences.
//
// # Validation
//
// Validate and ValidateOperation check a request value against a Shape
// before anything is sent. Shapes can be written by hand or derived from a
// table with TypeOrderTable.Shape.
package codec
