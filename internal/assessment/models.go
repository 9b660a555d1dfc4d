package assessment

// Option is one selectable answer for a question. Value is the points the
// option contributes to its category score.
type Option struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type Question struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id"`
	Prompt     string   `json:"prompt"`
	Options    []Option `json:"options"`
}

// MaxValue is the best-case option value for the question.
func (q Question) MaxValue() int {
	max := 0
	for _, o := range q.Options {
		if o.Value > max {
			max = o.Value
		}
	}
	return max
}

// HasValue reports whether v is one of the declared option values.
func (q Question) HasValue(v int) bool {
	for _, o := range q.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Step is one page of the wizard. Required lists the question ids that must
// be answered before Advance is allowed past this step.
type Step struct {
	Title    string   `json:"title"`
	Required []string `json:"required"`
}

type Tier string

const (
	TierHighRisk Tier = "High Risk"
	TierMedium   Tier = "Medium Risk"
	TierGood     Tier = "Good Protection"
)

// RiskThresholds are per-assessment tier cutoffs: score < Medium is High
// Risk, score < Good is Medium Risk, anything else is Good Protection.
type RiskThresholds struct {
	Medium int `json:"medium"`
	Good   int `json:"good"`
}

func (t RiskThresholds) Classify(score int) Tier {
	switch {
	case score < t.Medium:
		return TierHighRisk
	case score < t.Good:
		return TierMedium
	default:
		return TierGood
	}
}

type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	}
	return "UNKNOWN"
}

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Recommendation is a static catalog entry. MinScore is the overall score at
// which the gap it addresses is considered covered; sessions scoring below it
// get the entry surfaced.
type Recommendation struct {
	ID          string   `json:"id"`
	Priority    Priority `json:"priority"`
	MinScore    int      `json:"min_score"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Citation    string   `json:"citation"` // framework reference, e.g. "NIST CSF PR.IP-4"
}

// Definition is the full static description of one assessment type. Never
// mutated after registration.
type Definition struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Categories []Category
	Questions  []Question
	Steps      []Step
	Thresholds RiskThresholds
	Catalog    []Recommendation

	questionsByID map[string]*Question
}

func (d *Definition) finalize() {
	d.questionsByID = make(map[string]*Question, len(d.Questions))
	for i := range d.Questions {
		d.questionsByID[d.Questions[i].ID] = &d.Questions[i]
	}
}

// Question looks up a question definition by id.
func (d *Definition) Question(id string) (*Question, bool) {
	q, ok := d.questionsByID[id]
	return q, ok
}

// CategoryMaxScore is the sum of best-case option values across the
// category's questions.
func (d *Definition) CategoryMaxScore(categoryID string) int {
	total := 0
	for _, q := range d.Questions {
		if q.CategoryID == categoryID {
			total += q.MaxValue()
		}
	}
	return total
}

// MaxScore is the best-case total across all questions.
func (d *Definition) MaxScore() int {
	total := 0
	for _, q := range d.Questions {
		total += q.MaxValue()
	}
	return total
}
