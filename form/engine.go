// Package form drives a session through the question schema one answer
// at a time, including the counted product selection sub-flow of the
// tally question.
package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"reportbot/model"
)

// Engine advances sessions through the schema. It is stateless itself;
// all mutable state lives in the session.
type Engine struct {
	schema model.Schema
}

// NewEngine returns an engine for the given schema.
func NewEngine(schema model.Schema) *Engine {
	return &Engine{schema: schema}
}

// ParseNumber parses a decimal answer, accepting both "." and "," as
// the decimal separator. NaN and infinities count as invalid input;
// they would poison sums and cannot be persisted.
func ParseNumber(raw string) (float64, error) {
	normalized := strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	n, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidInput, raw)
	}
	return n, nil
}

// SubmitAnswer records raw as the answer to the current question and
// advances the session. On the tally question a positive count opens
// the product sub-flow instead of advancing; the caller must then drive
// SubmitProductChoice until the sub-flow drains. A validation error
// leaves the session untouched so the caller re-issues the same prompt.
func (e *Engine) SubmitAnswer(s *model.Session, raw string) error {
	q, ok := e.schema.Question(s.Step)
	if !ok {
		return fmt.Errorf("no question at step %d", s.Step)
	}

	value, err := ParseNumber(raw)
	if err != nil {
		return err
	}

	if q.Key == e.schema.TallyKey {
		n := int(math.Trunc(value))
		if n < 0 {
			return fmt.Errorf("%w: tally must not be negative", model.ErrInvalidInput)
		}
		s.Answers.Values[q.Key] = float64(n)
		if n == 0 {
			// No selections this day: drop whatever a previous edit
			// round collected, the list stays authoritative.
			s.Answers.Products = nil
			s.Step++
			return nil
		}
		s.Subflow = &model.Subflow{Remaining: n}
		return nil
	}

	s.Answers.Values[q.Key] = value
	s.Step++
	return nil
}

// SubmitProductChoice records one selection of the pending sub-flow.
// When the last selection arrives the collected list is written to the
// answers, the tally recomputed from its length, and the session
// advances past the tally question.
func (e *Engine) SubmitProductChoice(s *model.Session, option string) error {
	if !s.InSubflow() {
		return model.ErrNoSubflow
	}
	if !e.schema.HasOption(option) {
		return fmt.Errorf("%w: %q", model.ErrInvalidOption, option)
	}

	s.Subflow.Collected = append(s.Subflow.Collected, option)
	s.Subflow.Remaining--
	if s.Subflow.Remaining > 0 {
		return nil
	}

	s.Answers.Products = s.Subflow.Collected
	s.Answers.Values[e.schema.TallyKey] = float64(len(s.Subflow.Collected))
	s.Subflow = nil
	s.Step++
	return nil
}

// IsComplete reports whether every question has been answered and no
// sub-flow is pending.
func (e *Engine) IsComplete(s *model.Session) bool {
	return s.Step >= len(e.schema.Questions) && !s.InSubflow()
}

// Prompt renders the text for the current question. In editing mode the
// previously stored value is shown as a hint; fresh input is still
// required for every key.
func (e *Engine) Prompt(s *model.Session) (string, bool) {
	q, ok := e.schema.Question(s.Step)
	if !ok {
		return "", false
	}
	if s.Editing {
		if prev, ok := s.Answers.Values[q.Key]; ok {
			return fmt.Sprintf("%s (текущее: %s)", q.Prompt, strconv.FormatFloat(prev, 'f', -1, 64)), true
		}
	}
	return q.Prompt, true
}

// StartEditing puts the session into the full re-ask mode: step back to
// zero, previous answers kept only as hints and overwritten in place as
// the user re-answers.
func (e *Engine) StartEditing(s *model.Session, previous model.AnswerSet) {
	s.Answers = previous.Clone()
	if s.Answers.Values == nil {
		s.Answers.Values = make(map[string]float64)
	}
	s.Step = 0
	s.Editing = true
	s.Subflow = nil
}
