package audit

import (
	"context"
	"database/sql"
	"time"
)

// EventRepo appends session lifecycle events to the append-only event_log
// table. Appends are best-effort from the caller's perspective.
type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// Append satisfies session.EventSink.
func (r *EventRepo) Append(ctx context.Context, typ, key, dataJSON string) error {
	if dataJSON == "" {
		dataJSON = "{}"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, dataJSON, time.Now().Unix())
	return err
}
