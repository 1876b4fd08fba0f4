package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keywordTable(t *testing.T) *TypeOrderTable {
	t.Helper()
	table, err := ParseTable([]byte(`
entries:
  - field: criterion
    type: Keyword
    fields: [id, text, url, matchType, contentLabelType]
  - field: criterion
    type: Placement
    fields: [id, url]
  - field: operations
    type: AdGroupCriterionOperation
    fields: [operator, "operand:BiddableAdGroupCriterion"]
  - type: BiddableAdGroupCriterion
    fields: ["adGroupId:long", "criterion:Criterion", userStatus]
`))
	require.NoError(t, err)
	return table
}

func TestPack_FieldOrderFollowsTable(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	operand := MustFromAny(map[string]any{
		"type":      "Keyword",
		"matchType": "BROAD",
		"text":      "mars cruise",
	})

	out, err := enc.Pack(operand, "criterion", "")
	require.NoError(t, err)
	assert.Equal(t,
		`<criterion xsi:type="Keyword"><text>mars cruise</text><matchType>BROAD</matchType></criterion>`,
		string(out))
}

func TestPack_OwnDiscriminatorBeatsHint(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	v := MustFromAny(map[string]any{
		"xsi_type": "Keyword",
		"url":      "http://example.com",
		"text":     "venus",
	})

	out, err := enc.Pack(v, "criterion", "Placement")
	require.NoError(t, err)
	assert.Equal(t,
		`<criterion xsi:type="Keyword"><text>venus</text><url>http://example.com</url></criterion>`,
		string(out))
}

func TestPack_AlternateDiscriminatorKeys(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	for _, key := range DiscriminatorKeys {
		t.Run(key, func(t *testing.T) {
			v := MustFromAny(map[string]any{key: "Keyword", "text": "mars", "matchType": "BROAD"})

			out, err := enc.Pack(v, "criterion", "")
			require.NoError(t, err)
			assert.Equal(t,
				`<criterion xsi:type="Keyword"><text>mars</text><matchType>BROAD</matchType></criterion>`,
				string(out))
		})
	}
}

func TestPack_HintEmittedForUntypedComposite(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	v := Composite(map[string]Value{"url": Scalar("http://a"), "id": Scalar("7")})

	out, err := enc.Pack(v, "criterion", "Placement")
	require.NoError(t, err)
	assert.Equal(t, `<criterion xsi:type="Placement"><id>7</id><url>http://a</url></criterion>`, string(out))
}

func TestPack_TypeOnlyCompositeSelfCloses(t *testing.T) {
	enc := NewEncoder(nil)
	out, err := enc.Pack(TypedComposite("ManualCPC", nil), "biddingStrategy", "")
	require.NoError(t, err)
	assert.Equal(t, `<biddingStrategy xsi:type="ManualCPC"/>`, string(out))
}

func TestPack_SequenceRepeatsField(t *testing.T) {
	enc := NewEncoder(nil)
	v := Sequence(Scalar("Id"), Scalar("Name"))

	out, err := enc.Pack(v, "fields", "")
	require.NoError(t, err)
	assert.Equal(t, `<fields>Id</fields><fields>Name</fields>`, string(out))

	out, err = enc.Pack(v, "fields", "", Wrapped("item"))
	require.NoError(t, err)
	assert.Equal(t, `<fields><item>Id</item><item>Name</item></fields>`, string(out))
}

func TestPack_ScalarEscapingAndNil(t *testing.T) {
	enc := NewEncoder(nil)

	out, err := enc.Pack(Scalar(`a<b&c`), "text", "")
	require.NoError(t, err)
	assert.Equal(t, `<text>a&lt;b&amp;c</text>`, string(out))

	out, err = enc.Pack(Null(), "endDate", "")
	require.NoError(t, err)
	assert.Equal(t, `<endDate xsi:nil="true"/>`, string(out))

	out, err = enc.Pack(Scalar(Unset), "endDate", "")
	require.NoError(t, err)
	assert.Equal(t, `<endDate xsi:nil="true"/>`, string(out))
}

func TestPack_NoEntryFallsBackToLexicalOrder(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	v := Composite(map[string]Value{"b": Scalar("2"), "a": Scalar("1")})

	out, err := enc.Pack(v, "unknownField", "")
	require.NoError(t, err)
	assert.Equal(t, `<unknownField><a>1</a><b>2</b></unknownField>`, string(out))
}

func TestPack_UndeclaredFieldsFollowDeclaredOnes(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	v := MustFromAny(map[string]any{
		"type":  "Keyword",
		"zeta":  "z",
		"alpha": "a",
		"text":  "t",
	})

	out, err := enc.Pack(v, "criterion", "")
	require.NoError(t, err)
	assert.Equal(t,
		`<criterion xsi:type="Keyword"><text>t</text><alpha>a</alpha><zeta>z</zeta></criterion>`,
		string(out))
}

func TestPackOperations(t *testing.T) {
	enc := NewEncoder(keywordTable(t))
	op := Operation{
		Operator: OperatorAdd,
		Type:     "AdGroupCriterionOperation",
		Operand: MustFromAny(map[string]any{
			"userStatus": "ACTIVE",
			"adGroupId":  int64(42),
			"criterion": map[string]any{
				"type":      "Keyword",
				"matchType": "BROAD",
				"text":      "mars cruise",
			},
		}),
	}

	out, err := enc.PackOperations("operations", op)
	require.NoError(t, err)
	assert.Equal(t,
		`<operations xsi:type="AdGroupCriterionOperation"><operator>ADD</operator>`+
			`<operand><adGroupId>42</adGroupId>`+
			`<criterion xsi:type="Keyword"><text>mars cruise</text><matchType>BROAD</matchType></criterion>`+
			`<userStatus>ACTIVE</userStatus></operand></operations>`,
		string(out))
}

func TestPackParams(t *testing.T) {
	enc := NewEncoder(nil)
	out, err := enc.PackParams(
		Param{Name: "selector", Value: Composite(map[string]Value{"fields": Sequence(Scalar("Id"))})},
		Param{Name: "limit", Value: Scalar("5")},
	)
	require.NoError(t, err)
	assert.Equal(t, `<selector><fields>Id</fields></selector><limit>5</limit>`, string(out))
}

func TestPack_MissingFieldName(t *testing.T) {
	_, err := NewEncoder(nil).Pack(Scalar("x"), "", "")
	assert.Error(t, err)
}
