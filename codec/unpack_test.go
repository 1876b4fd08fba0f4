package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xsiDecl = `xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`

func reportTable() *TypeOrderTable {
	return NewTypeOrderTable(
		TypeOrderEntry{Field: "rval", Fields: []FieldSpec{
			{Name: "dimensions", Array: true, Type: "Dimension"},
			{Name: "totalNumEntries", Type: "int"},
			{Name: "entries", Array: true, Type: "Campaign"},
		}},
		TypeOrderEntry{Type: "Dimension", Fields: []FieldSpec{{Name: "id"}, {Name: "name"}}},
		TypeOrderEntry{Type: "Campaign", Fields: []FieldSpec{
			{Name: "id", Type: "long"},
			{Name: "name"},
			{Name: "labels", Array: true},
		}},
		TypeOrderEntry{Field: "criterion", Type: "Keyword", Fields: []FieldSpec{
			{Name: "id", Type: "long"}, {Name: "text"}, {Name: "url"}, {Name: "matchType"},
		}},
	)
}

func parse(t *testing.T, doc string) *Node {
	t.Helper()
	n, err := ParseXML([]byte(doc))
	require.NoError(t, err)
	return n
}

func TestUnpack_RestoresSingleElementArray(t *testing.T) {
	root := parse(t, `<rval><dimensions><id>1</id><name>Mars</name></dimensions><totalNumEntries>1</totalNumEntries></rval>`)

	got := NewDecoder(reportTable()).Unpack(root, "rval", "")

	require.Equal(t, KindComposite, got.Kind())
	dims, ok := got.Get("dimensions")
	require.True(t, ok)
	require.Equal(t, KindSequence, dims.Kind(), "array-typed field must unpack to a sequence")
	require.Len(t, dims.Items(), 1)
	assert.Equal(t, KindComposite, dims.Items()[0].Kind())

	total, _ := got.Get("totalNumEntries")
	assert.Equal(t, Scalar("1"), total)
}

func TestUnpack_RepeatedElementsBecomeSequence(t *testing.T) {
	root := parse(t, `<page><item>a</item><item>b</item><single>c</single></page>`)

	got := NewDecoder(nil).Unpack(root, "page", "")

	items, _ := got.Get("item")
	assert.True(t, items.Equal(Sequence(Scalar("a"), Scalar("b"))))
	single, _ := got.Get("single")
	assert.Equal(t, Scalar("c"), single)
}

func TestUnpack_SkipsNilPlaceholdersInLists(t *testing.T) {
	root := parse(t, `<rval `+xsiDecl+`><entries><id>1</id></entries><entries xsi:nil="true"/><entries><id>2</id></entries></rval>`)

	got := NewDecoder(reportTable()).Unpack(root, "rval", "")

	entries, _ := got.Get("entries")
	require.Equal(t, KindSequence, entries.Kind())
	assert.Len(t, entries.Items(), 2)
}

func TestUnpack_NilLeafIsNull(t *testing.T) {
	root := parse(t, `<campaign `+xsiDecl+`><id>1</id><endDate xsi:nil="true"/></campaign>`)

	got := NewDecoder(nil).Unpack(root, "campaign", "")

	end, ok := got.Get("endDate")
	require.True(t, ok)
	assert.True(t, end.IsNull())
}

func TestUnpack_KeepsLargeIdentifiersVerbatim(t *testing.T) {
	root := parse(t, `<rval><entries><id>98765432109876543210</id></entries></rval>`)

	got := NewDecoder(reportTable()).Unpack(root, "rval", "")

	entries, _ := got.Get("entries")
	id, _ := entries.Items()[0].Get("id")
	assert.Equal(t, "98765432109876543210", id.Str())
}

func TestUnpack_XsiTypeSelectsEntry(t *testing.T) {
	root := parse(t, `<x `+xsiDecl+`><criterion xsi:type="ns2:Keyword"><text>mars</text></criterion></x>`)

	got := NewDecoder(reportTable()).Unpack(root.Child("criterion"), "criterion", "")

	assert.Equal(t, "Keyword", got.Type())
	text, _ := got.Get("text")
	assert.Equal(t, "mars", text.Str())
}

func TestRoundTrip_PackThenUnpack(t *testing.T) {
	table := reportTable()
	cases := []struct {
		name  string
		field string
		value Value
	}{
		{
			name:  "typed keyword",
			field: "criterion",
			value: MustFromAny(map[string]any{
				"type":      "Keyword",
				"id":        "123456789012345678901",
				"text":      "mars & venus",
				"matchType": "EXACT",
			}),
		},
		{
			name:  "typed campaign with one-element list",
			field: "campaign",
			value: MustFromAny(map[string]any{
				"type":   "Campaign",
				"id":     int64(9),
				"name":   "Interplanetary",
				"labels": []any{"space"},
			}),
		},
		{
			name:  "type-only composite",
			field: "criterion",
			value: TypedComposite("Keyword", nil),
		},
	}

	enc := NewEncoder(table)
	dec := NewDecoder(table)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frag, err := enc.Pack(tc.value, tc.field, "")
			require.NoError(t, err)

			root := parse(t, `<root `+xsiDecl+`>`+string(frag)+`</root>`)
			got := dec.Unpack(root.Child(tc.field), tc.field, "")

			assert.True(t, tc.value.Equal(got), "round trip mismatch:\nwant %s\ngot  %s", tc.value, got)
		})
	}
}

func TestRoundTrip_EmptyCompositeChildren(t *testing.T) {
	table := NewTypeOrderTable(
		TypeOrderEntry{Type: "Campaign", Fields: []FieldSpec{
			{Name: "id", Type: "long"},
			{Name: "budget", Type: "Budget"},
			{Name: "settings"},
			{Name: "labels", Array: true},
		}},
		TypeOrderEntry{Type: "Budget", Fields: []FieldSpec{{Name: "amount"}}},
		TypeOrderEntry{Field: "settings", Fields: []FieldSpec{{Name: "geo"}}},
	)
	v := TypedComposite("Campaign", map[string]Value{
		"id":       Scalar("7"),
		"budget":   Composite(nil),
		"settings": Composite(nil),
	})

	frag, err := NewEncoder(table).Pack(v, "campaign", "")
	require.NoError(t, err)
	assert.Equal(t,
		`<campaign xsi:type="Campaign"><id>7</id><budget></budget><settings></settings></campaign>`,
		string(frag))

	root := parse(t, `<root `+xsiDecl+`>`+string(frag)+`</root>`)
	got := NewDecoder(table).Unpack(root.Child("campaign"), "campaign", "")
	assert.True(t, v.Equal(got), "want %s\ngot  %s", v, got)

	withEmptyList := TypedComposite("Campaign", map[string]Value{"id": Scalar("7"), "labels": Sequence()})
	frag, err = NewEncoder(table).Pack(withEmptyList, "campaign", "")
	require.NoError(t, err)
	root = parse(t, `<root `+xsiDecl+`>`+string(frag)+`</root>`)
	got = NewDecoder(table).Unpack(root.Child("campaign"), "campaign", "")
	_, present := got.Get("labels")
	assert.False(t, present, "an empty sequence has no elements on the wire")
}

func TestUnpack_EmptyUndeclaredElementIsEmptyScalar(t *testing.T) {
	root := parse(t, `<x><note></note></x>`)

	got := NewDecoder(nil).Unpack(root, "x", "")

	note, _ := got.Get("note")
	assert.Equal(t, Scalar(""), note)
}

func TestParseXML_Errors(t *testing.T) {
	_, err := ParseXML([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ParseXML([]byte("<html><body>Bad Gateway<br></body></html>"))
	assert.Error(t, err)
}

func TestNode_Find(t *testing.T) {
	root := parse(t, `<a><b><c>x</c></b></a>`)
	require.NotNil(t, root.Find("c"))
	assert.Equal(t, "x", root.Find("c").Text)
	assert.Nil(t, root.Find("d"))
	assert.Nil(t, root.Child("c"))
}
