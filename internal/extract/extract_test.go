package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxscan/internal/extract"
)

func value(t *testing.T, rec extract.Record, field string) string {
	t.Helper()
	v, ok := rec[field]
	require.True(t, ok, "field %s missing from record", field)
	require.NotNil(t, v, "field %s not matched", field)
	return *v
}

func TestExtract_ProductLabel(t *testing.T) {
	text := "Batch No: XY9\nMfg. Date: 03/2024\nEXP 12/2026\nMRP: 45.00"

	rec := extract.Extract(text, extract.ProductLabelTable)

	assert.Equal(t, "XY9", value(t, rec, extract.FieldBatchNumber))
	assert.Equal(t, "03/2024", value(t, rec, extract.FieldMfgDate))
	assert.Equal(t, "12/2026", value(t, rec, extract.FieldExpiryDate))
	assert.Equal(t, "45.00", value(t, rec, extract.FieldMRP))
}

func TestExtract_FirstMatchingPatternWins(t *testing.T) {
	text := "B.NO. AB123\nBatch No: XY9"

	rec := extract.Extract(text, extract.ProductLabelTable)

	assert.Equal(t, "AB123", value(t, rec, extract.FieldBatchNumber))
}

func TestExtract_FourDigitYearPreferred(t *testing.T) {
	rec := extract.Extract("MFD 03/2024", extract.ProductLabelTable)
	assert.Equal(t, "03/2024", value(t, rec, extract.FieldMfgDate))

	rec = extract.Extract("MFD 03/24", extract.ProductLabelTable)
	assert.Equal(t, "03/24", value(t, rec, extract.FieldMfgDate))
}

func TestExtract_CurrencyPrefixedPrice(t *testing.T) {
	rec := extract.Extract("Price incl. taxes Rs. 120.50", extract.ProductLabelTable)
	assert.Equal(t, "120.50", value(t, rec, extract.FieldMRP))
}

func TestExtract_UnmatchedFieldsAreNil(t *testing.T) {
	rec := extract.Extract("nothing useful here", extract.ProductLabelTable)

	require.Len(t, rec, len(extract.ProductLabelTable))
	for _, name := range extract.ProductLabelTable.Names() {
		v, ok := rec[name]
		assert.True(t, ok, name)
		assert.Nil(t, v, name)
	}
}

func TestTable_Names(t *testing.T) {
	assert.Equal(t,
		[]string{extract.FieldBatchNumber, extract.FieldMfgDate, extract.FieldExpiryDate, extract.FieldMRP},
		extract.ProductLabelTable.Names())
}

func TestField_MatchSkipsBlankCaptures(t *testing.T) {
	f := extract.MustCompile("code", "text", `code:([ ]*)$`, `code:[ ]*(\w+)`)

	v := f.Match("code:   \ncode: Z9")
	require.NotNil(t, v)
	assert.Equal(t, "Z9", *v)
}

func TestMustCompile_PanicsOnInvalidPattern(t *testing.T) {
	assert.Panics(t, func() {
		extract.MustCompile("bad", "", `(unclosed`)
	})
}

func TestJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced json block",
			in:   "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want: `{"a": 1}`,
		},
		{
			name: "fence without language",
			in:   "```\n{\"a\": 2}\n```",
			want: `{"a": 2}`,
		},
		{
			name: "outermost brace span",
			in:   `The result is {"a": {"b": 2}} as requested`,
			want: `{"a": {"b": 2}}`,
		},
		{
			name: "no json at all",
			in:   "  not json  ",
			want: "not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extract.JSONBlock(tt.in))
		})
	}
}
