package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownQuestion means the question id is not part of the definition.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrInvalidAnswer means the value is not one of the question's options.
	ErrInvalidAnswer = errors.New("answer value not in option set")
)

// Scorecard holds the answer mapping for one session and derives category and
// overall scores from it. Scores are pure functions of the answers plus the
// static definition; the scorecard caches nothing.
type Scorecard struct {
	def     *Definition
	answers map[string]int
}

func NewScorecard(def *Definition) *Scorecard {
	return &Scorecard{def: def, answers: map[string]int{}}
}

// NewScorecardFrom seeds a scorecard with previously persisted answers.
// Values that no longer validate against the definition are dropped.
func NewScorecardFrom(def *Definition, answers map[string]int) *Scorecard {
	sc := NewScorecard(def)
	for id, v := range answers {
		_ = sc.Record(id, v)
	}
	return sc
}

// Record stores or overwrites the answer for a question. The value must be
// one of the option values declared for that question.
func (s *Scorecard) Record(questionID string, value int) error {
	q, ok := s.def.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !q.HasValue(value) {
		return fmt.Errorf("%w: question %s value %d", ErrInvalidAnswer, questionID, value)
	}
	s.answers[questionID] = value
	return nil
}

// Answers returns a copy of the answer mapping.
func (s *Scorecard) Answers() map[string]int {
	out := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Scorecard) Answered(questionID string) bool {
	_, ok := s.answers[questionID]
	return ok
}

// CategoryScore is the category percentage, 0-100. The denominator is always
// the category's full max score, so partially answered categories show
// partial credit. Returns 0 for an empty category.
func (s *Scorecard) CategoryScore(categoryID string) int {
	max := s.def.CategoryMaxScore(categoryID)
	if max == 0 {
		return 0
	}
	sum := 0
	for _, q := range s.def.Questions {
		if q.CategoryID != categoryID {
			continue
		}
		if v, ok := s.answers[q.ID]; ok {
			sum += v
		}
	}
	return roundPct(sum, max)
}

// CategoryScores computes every category percentage.
func (s *Scorecard) CategoryScores() map[string]int {
	out := make(map[string]int, len(s.def.Categories))
	for _, c := range s.def.Categories {
		out[c.ID] = s.CategoryScore(c.ID)
	}
	return out
}

// OverallScore is the proportional aggregate across all questions, 0-100.
func (s *Scorecard) OverallScore() int {
	max := s.def.MaxScore()
	if max == 0 {
		return 0
	}
	sum := 0
	for _, v := range s.answers {
		sum += v
	}
	return roundPct(sum, max)
}

// Tier classifies the overall score against the definition's thresholds.
func (s *Scorecard) Tier() Tier {
	return s.def.Thresholds.Classify(s.OverallScore())
}

func roundPct(sum, max int) int {
	return int(100*float64(sum)/float64(max) + 0.5)
}
