package assessment

import "sort"

// Recommend projects a final overall score onto the definition's static
// recommendation catalog. Entries whose MinScore the session did not reach
// are the unaddressed gaps and are returned ordered by priority
// (CRITICAL > HIGH > MEDIUM > LOW), ties broken by catalog declaration
// order. Pure and safe to call repeatedly.
func (d *Definition) Recommend(overallScore int) []Recommendation {
	out := make([]Recommendation, 0, len(d.Catalog))
	for _, r := range d.Catalog {
		if overallScore < r.MinScore {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
