package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		Questions: []QuestionSpec{
			{Key: "meetings", Prompt: "1) Встречи (шт.)"},
			{Key: "fckp_realized", Prompt: "2) Реализовано ФЦКП (шт.)"},
		},
		TallyKey:    "fckp_realized",
		ProductsKey: "fckp_products",
		Options:     []string{"A", "B"},
	}
}

func TestFinalize_FillsDefaultsAndRecomputesTally(t *testing.T) {
	schema := testSchema()
	a := NewAnswerSet()
	a.Values["fckp_realized"] = 99 // typed count disagrees with the list
	a.Products = []string{"A", "B", "B"}

	final := schema.Finalize(a)
	assert.Equal(t, 0.0, final.Value("meetings"))
	assert.Equal(t, 3.0, final.Value("fckp_realized"))

	// Input untouched.
	assert.Equal(t, 99.0, a.Value("fckp_realized"))
	_, ok := a.Values["meetings"]
	assert.False(t, ok)
}

func TestAnswerSetFromRaw_SkipsMalformedFields(t *testing.T) {
	schema := testSchema()
	raw := map[string]any{
		"meetings":      3.0,
		"otr":           "1,5",
		"broken":        "not a number",
		"also_broken":   true,
		"fckp_products": []any{"A", "B", 7},
	}

	got := AnswerSetFromRaw(schema, raw)
	assert.Equal(t, 3.0, got.Value("meetings"))
	assert.Equal(t, 1.5, got.Value("otr"))
	assert.NotContains(t, got.Values, "broken")
	assert.NotContains(t, got.Values, "also_broken")
	assert.Equal(t, []string{"A", "B"}, got.Products)
}

func TestFlatten_RoundTrip(t *testing.T) {
	schema := testSchema()
	a := NewAnswerSet()
	a.Values["meetings"] = 2.5
	a.Products = []string{"B"}

	flat := a.Flatten(schema)
	require.Contains(t, flat, "fckp_products")

	back := AnswerSetFromRaw(schema, flat)
	assert.Equal(t, 2.5, back.Value("meetings"))
	assert.Equal(t, []string{"B"}, back.Products)
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleReporter, RoleSupervisor, RoleManual} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRole("janitor")
	assert.Error(t, err)
}
