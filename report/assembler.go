// Package report renders finalized answer sets to text and folds
// per-employee sets into one combined team report.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"reportbot/model"
)

// FormatNumber renders integral values without a decimal point and
// fractional values with up to two decimals, trailing zeros stripped.
func FormatNumber(v float64) string {
	v = math.Round(v*100) / 100
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Format renders an answer set as one line per schema question in
// order, with the per-option product breakdown right after the tally
// question. Missing keys render as zero. Pure function of its input.
func Format(schema model.Schema, set model.AnswerSet) string {
	final := schema.Finalize(set)
	counts := schema.ProductCounts(final)

	var b strings.Builder
	for i, q := range schema.Questions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s — %s", q.Prompt, FormatNumber(final.Value(q.Key)))
		if q.Key == schema.TallyKey {
			for _, opt := range schema.Options {
				fmt.Fprintf(&b, "\n%s — %d шт", opt, counts[opt])
			}
		}
	}
	return b.String()
}
