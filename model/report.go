package model

import (
	"strconv"
	"strings"
)

// QuestionSpec is one entry of the daily form. Key is the stable
// identifier the answer is stored under, Prompt is the text shown to
// the user.
type QuestionSpec struct {
	Key    string
	Prompt string
}

// Schema is the ordered question list plus the one distinguished
// tally question whose answer is a count of product selections.
// Immutable after load.
type Schema struct {
	Questions []QuestionSpec
	// TallyKey is the question whose numeric answer opens the counted
	// product selection sub-flow.
	TallyKey string
	// ProductsKey is the answer key the collected selections are stored
	// under. It is not itself a question.
	ProductsKey string
	// Options is the fixed product option set in display order.
	Options []string
}

// Question returns the spec at step, or false when step is past the end.
func (s Schema) Question(step int) (QuestionSpec, bool) {
	if step < 0 || step >= len(s.Questions) {
		return QuestionSpec{}, false
	}
	return s.Questions[step], true
}

// AnswerSet is one contributor's question-key to value mapping for one
// reporting day, plus the ordered product selections for the tally
// question.
type AnswerSet struct {
	Values   map[string]float64
	Products []string
}

// NewAnswerSet returns an empty answer set ready for filling.
func NewAnswerSet() AnswerSet {
	return AnswerSet{Values: make(map[string]float64)}
}

// Clone returns a deep copy, so edits never alias a stored set.
func (a AnswerSet) Clone() AnswerSet {
	out := AnswerSet{Values: make(map[string]float64, len(a.Values))}
	for k, v := range a.Values {
		out.Values[k] = v
	}
	if a.Products != nil {
		out.Products = append([]string(nil), a.Products...)
	}
	return out
}

// Value returns the stored number for key, zero when absent.
func (a AnswerSet) Value(key string) float64 {
	return a.Values[key]
}

// Finalize returns a copy with every schema key present (zero when
// unanswered) and the tally recomputed from the product list. The list
// is authoritative over whatever count was typed in.
func (s Schema) Finalize(a AnswerSet) AnswerSet {
	out := a.Clone()
	if out.Values == nil {
		out.Values = make(map[string]float64, len(s.Questions))
	}
	for _, q := range s.Questions {
		if _, ok := out.Values[q.Key]; !ok {
			out.Values[q.Key] = 0
		}
	}
	out.Values[s.TallyKey] = float64(len(out.Products))
	return out
}

// ProductCounts tallies the selections per schema option, in option
// order. Selections outside the option set are ignored.
func (s Schema) ProductCounts(a AnswerSet) map[string]int {
	counts := make(map[string]int, len(s.Options))
	for _, opt := range s.Options {
		counts[opt] = 0
	}
	for _, p := range a.Products {
		if _, ok := counts[p]; ok {
			counts[p]++
		}
	}
	return counts
}

// HasOption reports whether opt belongs to the schema's option set.
func (s Schema) HasOption(opt string) bool {
	for _, o := range s.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Flatten renders the set as a flat JSON-ready object: every numeric
// value under its question key, the product list under the schema's
// products key. This is the persisted wire shape.
func (a AnswerSet) Flatten(s Schema) map[string]any {
	out := make(map[string]any, len(a.Values)+1)
	for k, v := range a.Values {
		out[k] = v
	}
	products := a.Products
	if products == nil {
		products = []string{}
	}
	out[s.ProductsKey] = products
	return out
}

// AnswerSetFromRaw rebuilds an AnswerSet from a decoded flat JSON
// object. Fields that do not coerce to a number are skipped rather than
// failing the whole set, so one malformed record never blocks a merge.
func AnswerSetFromRaw(s Schema, raw map[string]any) AnswerSet {
	out := NewAnswerSet()
	for k, v := range raw {
		if k == s.ProductsKey {
			out.Products = coerceStrings(v)
			continue
		}
		if n, ok := coerceNumber(v); ok {
			out.Values[k] = n
		}
	}
	return out
}

func coerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		n, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(x), ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return append([]string(nil), ss...)
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
