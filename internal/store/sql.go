package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cybercaution/cybercaution/internal/session"
)

// SQLStore implements session.RemoteStore on database/sql, driven by either
// sqlite or postgres. Answers, category scores and org metadata are stored
// as JSON blobs; session_id is the conflict key, so replaying the same
// payload is a no-op update rather than a duplicate row.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Upsert(ctx context.Context, sess session.Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	scores, err := json.Marshal(sess.CategoryScores)
	if err != nil {
		return fmt.Errorf("marshal category scores: %w", err)
	}
	org, err := json.Marshal(sess.Org)
	if err != nil {
		return fmt.Errorf("marshal org: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions
		(session_id, user_id, assessment_type, org_json, answers_json, category_scores_json,
		 overall_score, risk_tier, current_step, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (session_id) DO UPDATE SET
		  user_id=EXCLUDED.user_id,
		  org_json=EXCLUDED.org_json,
		  answers_json=EXCLUDED.answers_json,
		  category_scores_json=EXCLUDED.category_scores_json,
		  overall_score=EXCLUDED.overall_score,
		  risk_tier=EXCLUDED.risk_tier,
		  current_step=EXCLUDED.current_step,
		  status=EXCLUDED.status,
		  updated_at=EXCLUDED.updated_at`,
		sess.SessionID, sess.UserID, sess.AssessmentType, string(org), string(answers), string(scores),
		sess.OverallScore, sess.RiskTier, sess.CurrentStep, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, sessionID string) (session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT session_id, user_id, assessment_type, org_json,
		answers_json, category_scores_json, overall_score, risk_tier, current_step, status,
		created_at, updated_at FROM sessions WHERE session_id=$1`, sessionID)

	var sess session.Session
	var org, answers, scores string
	err := row.Scan(&sess.SessionID, &sess.UserID, &sess.AssessmentType, &org,
		&answers, &scores, &sess.OverallScore, &sess.RiskTier, &sess.CurrentStep, &sess.Status,
		&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		sess.Answers = map[string]int{}
	}
	if scores != "" && scores != "null" {
		_ = json.Unmarshal([]byte(scores), &sess.CategoryScores)
	}
	_ = json.Unmarshal([]byte(org), &sess.Org)
	return sess, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
