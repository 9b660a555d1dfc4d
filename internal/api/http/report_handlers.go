package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cybercaution/cybercaution/internal/assessment"
	"github.com/cybercaution/cybercaution/internal/session"
)

type reportResponse struct {
	SessionID      string                      `json:"session_id"`
	AssessmentType string                      `json:"assessment_type"`
	Org            session.OrgMeta             `json:"org"`
	OverallScore   int                         `json:"overall_score"`
	RiskTier       string                      `json:"risk_tier"`
	CategoryScores map[string]int              `json:"category_scores"`
	Recommendation []assessment.Recommendation `json:"recommendations"`
}

// GetReportHandler projects a completed session's scores onto the
// recommendation catalog.
func GetReportHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		sess, err := m.Lookup(r.Context(), id)
		if err != nil {
			http.Error(w, "session not found", 404)
			return
		}
		if sess.Status != session.StatusCompleted {
			http.Error(w, "assessment not completed", http.StatusConflict)
			return
		}
		def, ok := assessment.Lookup(sess.AssessmentType)
		if !ok {
			http.Error(w, "unknown assessment type", 400)
			return
		}
		_ = json.NewEncoder(w).Encode(reportResponse{
			SessionID:      sess.SessionID,
			AssessmentType: sess.AssessmentType,
			Org:            sess.Org,
			OverallScore:   sess.OverallScore,
			RiskTier:       sess.RiskTier,
			CategoryScores: sess.CategoryScores,
			Recommendation: def.Recommend(sess.OverallScore),
		})
	}
}

// ListAssessmentsHandler serves the static assessment catalog.
func ListAssessmentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(assessment.Catalog())
	}
}

// GetAssessmentHandler serves one definition's questions and steps so a
// client can render the wizard.
func GetAssessmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ := chi.URLParam(r, "assessmentType")
		def, ok := assessment.Lookup(typ)
		if !ok {
			http.Error(w, "unknown assessment type", 404)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":       def.Type,
			"title":      def.Title,
			"categories": def.Categories,
			"questions":  def.Questions,
			"steps":      def.Steps,
			"thresholds": def.Thresholds,
		})
	}
}
