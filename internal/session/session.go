package session

import (
	"context"
	"errors"
	"time"
)

// Status of a session's wizard lifecycle.
const (
	StatusDraft     = "draft"
	StatusResumed   = "resumed"
	StatusCompleted = "completed"
)

// OrgMeta is the free-form organization block captured on the first step.
type OrgMeta struct {
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

// Session is the persistence unit for one assessment attempt. SessionID is
// generated once per attempt and never changes; it is the natural key for
// upserts, so replaying the same session produces the same stored row.
// Category and overall scores are cached for display only — the answers plus
// the static definition remain the source of truth.
type Session struct {
	SessionID      string         `json:"session_id"`
	UserID         string         `json:"user_id,omitempty"`
	AssessmentType string         `json:"assessment_type"`
	Org            OrgMeta        `json:"org"`
	Answers        map[string]int `json:"answers"`
	CurrentStep    int            `json:"current_step"`
	Status         string         `json:"status"`
	CategoryScores map[string]int `json:"category_scores,omitempty"`
	OverallScore   int            `json:"overall_score"`
	RiskTier       string         `json:"risk_tier,omitempty"`
	CreatedAt      int64          `json:"created_at"`
	UpdatedAt      int64          `json:"updated_at"`
}

func (s Session) clone() Session {
	out := s
	out.Answers = make(map[string]int, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	if s.CategoryScores != nil {
		out.CategoryScores = make(map[string]int, len(s.CategoryScores))
		for k, v := range s.CategoryScores {
			out.CategoryScores[k] = v
		}
	}
	return out
}

// ErrNotFound is the non-fatal "no such session" outcome shared by the
// remote and local store contracts.
var ErrNotFound = errors.New("session not found")

// RemoteStore is the row store the manager syncs to. Upsert must be
// idempotent: inserting if absent, updating the row matched by SessionID
// otherwise. Get returns ErrNotFound for a miss.
type RemoteStore interface {
	Upsert(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (Session, error)
	Ping(ctx context.Context) error
}

// LocalStore is the synchronous durable mirror. Save failures are treated as
// non-fatal by the manager.
type LocalStore interface {
	Save(s Session) error
	Load(sessionID string) (Session, error)
}

// EventSink receives best-effort lifecycle events (created, resumed,
// completed, degraded, recovered).
type EventSink interface {
	Append(ctx context.Context, typ, key, dataJSON string) error
}

// Clock is injected for tests.
type Clock func() time.Time
