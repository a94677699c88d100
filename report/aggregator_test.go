package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportbot/model"
)

func testSchema() model.Schema {
	return model.Schema{
		Questions: []model.QuestionSpec{
			{Key: "meetings", Prompt: "1) Встречи (шт.)"},
			{Key: "fckp_realized", Prompt: "2) Реализовано ФЦКП (шт.)"},
			{Key: "otr", Prompt: "3) ОТР (шт.)"},
		},
		TallyKey:    "fckp_realized",
		ProductsKey: "fckp_products",
		Options:     []string{"A", "B"},
	}
}

func set(values map[string]float64, products ...string) model.AnswerSet {
	s := model.NewAnswerSet()
	for k, v := range values {
		s.Values[k] = v
	}
	s.Products = products
	return s
}

func TestCombine_SumsAndConcatenates(t *testing.T) {
	schema := testSchema()
	a := set(map[string]float64{"meetings": 3}, "A")
	b := set(map[string]float64{"meetings": 5}, "B", "B")

	combined := Combine(schema, []model.AnswerSet{a, b})

	assert.Equal(t, 8.0, combined.Value("meetings"))
	assert.Equal(t, []string{"A", "B", "B"}, combined.Products)
	assert.Equal(t, 3.0, combined.Value("fckp_realized"))
	assert.Equal(t, 0.0, combined.Value("otr"), "unanswered keys default to zero")
}

func TestCombine_TallyMatchesListLength(t *testing.T) {
	schema := testSchema()
	// Reported tallies disagree with the lists on purpose; the list wins.
	a := set(map[string]float64{"fckp_realized": 99}, "A")
	b := set(map[string]float64{"fckp_realized": 1}, "B")

	combined := Combine(schema, []model.AnswerSet{a, b})
	assert.Equal(t, float64(len(combined.Products)), combined.Value("fckp_realized"))
	assert.Equal(t, 2.0, combined.Value("fckp_realized"))
}

func TestCombine_EmptyInput(t *testing.T) {
	schema := testSchema()
	combined := Combine(schema, nil)

	require.NotNil(t, combined.Values)
	for _, q := range schema.Questions {
		assert.Equal(t, 0.0, combined.Value(q.Key))
	}
	assert.Empty(t, combined.Products)
}

func TestCombine_OrderIndependentSums(t *testing.T) {
	schema := testSchema()
	a := set(map[string]float64{"meetings": 1.5, "otr": 2})
	b := set(map[string]float64{"meetings": 2.25, "otr": 7})

	ab := Combine(schema, []model.AnswerSet{a, b})
	ba := Combine(schema, []model.AnswerSet{b, a})
	assert.Equal(t, ab.Values, ba.Values)
}

func TestCombine_Idempotent(t *testing.T) {
	schema := testSchema()
	input := []model.AnswerSet{
		set(map[string]float64{"meetings": 3, "otr": 1}, "A", "B"),
		set(map[string]float64{"meetings": 4}, "B"),
	}

	first := Combine(schema, input)
	second := Combine(schema, input)
	assert.Equal(t, first, second)
}

func TestCombine_DoesNotMutateInputs(t *testing.T) {
	schema := testSchema()
	a := set(map[string]float64{"meetings": 3}, "A")
	b := set(map[string]float64{"meetings": 5}, "B")

	combined := Combine(schema, []model.AnswerSet{a, b})
	combined.Values["meetings"] = 100
	combined.Products[0] = "B"

	assert.Equal(t, 3.0, a.Value("meetings"))
	assert.Equal(t, []string{"A"}, a.Products)
}

func TestCombine_KeepsExtraKeys(t *testing.T) {
	schema := testSchema()
	a := set(map[string]float64{"legacy_field": 2})
	b := set(map[string]float64{"legacy_field": 3})

	combined := Combine(schema, []model.AnswerSet{a, b})
	assert.Equal(t, 5.0, combined.Value("legacy_field"))
}
