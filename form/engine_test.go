package form

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

func TestSubmitAnswer_WalksThroughSubflow(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	require.NoError(t, e.SubmitAnswer(s, "3"))
	assert.Equal(t, 1, s.Step)

	require.NoError(t, e.SubmitAnswer(s, "2"))
	require.True(t, s.InSubflow())
	assert.Equal(t, 2, s.Subflow.Remaining)
	assert.Equal(t, 1, s.Step, "tally question must not advance before the sub-flow drains")

	require.NoError(t, e.SubmitProductChoice(s, "A"))
	assert.Equal(t, 1, s.Subflow.Remaining)

	require.NoError(t, e.SubmitProductChoice(s, "B"))
	assert.False(t, s.InSubflow())
	assert.Equal(t, 2, s.Step)
	assert.Equal(t, []string{"A", "B"}, s.Answers.Products)
	assert.Equal(t, 2.0, s.Answers.Value("fckp_realized"))

	require.NoError(t, e.SubmitAnswer(s, "5"))
	assert.Equal(t, 3, s.Step)
	assert.True(t, e.IsComplete(s))
}

func TestSubmitAnswer_InvalidInputKeepsStep(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	err := e.SubmitAnswer(s, "abc")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 0, s.Step)
	assert.Empty(t, s.Answers.Values)

	prompt, ok := e.Prompt(s)
	require.True(t, ok)
	assert.Equal(t, "1) Встречи (шт.)", prompt, "same prompt must be re-issued")
}

func TestSubmitAnswer_NonFiniteRejected(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	for _, in := range []string{"nan", "NaN", "inf", "+Inf", "-inf", "Infinity"} {
		err := e.SubmitAnswer(s, in)
		require.ErrorIs(t, err, model.ErrInvalidInput, "input %q", in)
		assert.Equal(t, 0, s.Step, "input %q", in)
		assert.Empty(t, s.Answers.Values, "input %q", in)
	}
}

func TestSubmitAnswer_CommaDecimal(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	require.NoError(t, e.SubmitAnswer(s, "1,5"))
	assert.Equal(t, 1.5, s.Answers.Value("meetings"))
}

func TestSubmitAnswer_TallyZeroSkipsSubflow(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)
	s.Answers.Products = []string{"A"} // leftover from an earlier edit round

	require.NoError(t, e.SubmitAnswer(s, "2"))
	require.NoError(t, e.SubmitAnswer(s, "0"))

	assert.Nil(t, s.Subflow)
	assert.Equal(t, 2, s.Step)
	assert.Empty(t, s.Answers.Products, "zero tally must clear previous selections")
	assert.Equal(t, 0.0, s.Answers.Value("fckp_realized"))
}

func TestSubmitAnswer_TallyTruncatesFraction(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	require.NoError(t, e.SubmitAnswer(s, "4"))
	require.NoError(t, e.SubmitAnswer(s, "1,9"))

	require.True(t, s.InSubflow())
	assert.Equal(t, 1, s.Subflow.Remaining)
}

func TestSubmitAnswer_NegativeTallyRejected(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	require.NoError(t, e.SubmitAnswer(s, "4"))
	err := e.SubmitAnswer(s, "-1")
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 1, s.Step)
}

func TestSubmitProductChoice_Validation(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	err := e.SubmitProductChoice(s, "A")
	require.ErrorIs(t, err, model.ErrNoSubflow)

	require.NoError(t, e.SubmitAnswer(s, "4"))
	require.NoError(t, e.SubmitAnswer(s, "1"))
	err = e.SubmitProductChoice(s, "Z")
	require.ErrorIs(t, err, model.ErrInvalidOption)
	assert.Equal(t, 1, s.Subflow.Remaining, "rejected option must not consume a slot")
}

func TestStepNeverDecreases(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)

	inputs := []string{"bad", "1", "oops", "2", "", "7"}
	last := 0
	for _, in := range inputs {
		if s.InSubflow() {
			_ = e.SubmitProductChoice(s, "A")
		} else {
			_ = e.SubmitAnswer(s, in)
		}
		if s.Step < last {
			t.Fatalf("step decreased from %d to %d", last, s.Step)
		}
		last = s.Step
	}
}

func TestStartEditing_ResetsAndHints(t *testing.T) {
	e := NewEngine(testSchema())
	s := model.NewSession(1, model.RoleReporter)
	require.NoError(t, e.SubmitAnswer(s, "3"))

	previous := model.NewAnswerSet()
	previous.Values["meetings"] = 8
	previous.Values["fckp_realized"] = 1
	previous.Values["otr"] = 2
	previous.Products = []string{"B"}

	e.StartEditing(s, previous)
	assert.Equal(t, 0, s.Step)
	assert.True(t, s.Editing)

	prompt, ok := e.Prompt(s)
	require.True(t, ok)
	assert.Equal(t, "1) Встречи (шт.) (текущее: 8)", prompt)

	// Fresh input is still required and overwrites in place.
	require.NoError(t, e.SubmitAnswer(s, "9"))
	assert.Equal(t, 9.0, s.Answers.Value("meetings"))

	// The loaded set must not alias the session's working copy.
	assert.Equal(t, 8.0, previous.Values["meetings"])
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(7)
	assert.False(t, ok)

	s := model.NewSession(7, model.RoleManual)
	store.Put(s)
	got, ok := store.Get(7)
	require.True(t, ok)
	assert.Same(t, s, got)

	store.Delete(7)
	_, ok = store.Get(7)
	assert.False(t, ok)
}
