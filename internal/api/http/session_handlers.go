package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cybercaution/cybercaution/internal/assessment"
	"github.com/cybercaution/cybercaution/internal/session"
)

type sessionResponse struct {
	session.Session
	SyncStatus string `json:"sync_status"` // "ok" | "degraded"
}

func respond(w http.ResponseWriter, m *session.Manager, sess session.Session) {
	status := "ok"
	if m.Degraded() {
		status = "degraded"
	}
	_ = json.NewEncoder(w).Encode(sessionResponse{Session: sess, SyncStatus: status})
}

func CreateSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AssessmentType string `json:"assessment_type"`
			SessionID      string `json:"session_id,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.AssessmentType == "" && req.SessionID == "" {
			http.Error(w, "assessment_type or session_id required", 400)
			return
		}
		sess, err := m.CreateOrResume(r.Context(), req.SessionID, req.AssessmentType)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		respond(w, m, sess)
	}
}

func GetSessionHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		sess, err := m.Lookup(r.Context(), id)
		if err != nil {
			http.Error(w, "session not found", 404)
			return
		}
		respond(w, m, sess)
	}
}

// RecordAnswersHandler upserts one or more answers into the session's answer
// map. An out-of-option-set value rejects the whole batch before any state
// changes.
func RecordAnswersHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var answers map[string]int
		if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := m.RecordAnswers(r.Context(), id, answers); err != nil {
			switch {
			case errors.Is(err, session.ErrNotFound):
				http.Error(w, "session not found", 404)
			case errors.Is(err, assessment.ErrInvalidAnswer), errors.Is(err, assessment.ErrUnknownQuestion):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			default:
				http.Error(w, err.Error(), 400)
			}
			return
		}
		sess, err := m.Lookup(r.Context(), id)
		if err != nil {
			http.Error(w, "session not found", 404)
			return
		}
		respond(w, m, sess)
	}
}

func SetOrgHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var org session.OrgMeta
		if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := m.SetOrganization(r.Context(), id, org); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.Error(w, "session not found", 404)
				return
			}
			http.Error(w, err.Error(), 400)
			return
		}
		sess, _ := m.Lookup(r.Context(), id)
		respond(w, m, sess)
	}
}

func AdvanceHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		sess, err := m.Advance(r.Context(), id)
		if err != nil {
			var incomplete *assessment.IncompleteStepError
			switch {
			case errors.As(err, &incomplete):
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":   "step incomplete",
					"step":    incomplete.Step,
					"missing": incomplete.Missing,
				})
			case errors.Is(err, session.ErrNotFound):
				http.Error(w, "session not found", 404)
			default:
				http.Error(w, err.Error(), 400)
			}
			return
		}
		respond(w, m, sess)
	}
}

func RetreatHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		sess, err := m.Retreat(r.Context(), id)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.Error(w, "session not found", 404)
				return
			}
			http.Error(w, err.Error(), 400)
			return
		}
		respond(w, m, sess)
	}
}
