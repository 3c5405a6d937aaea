// Package audit is the asset_audit_log: status and location changes for
// both asset kinds.
package audit

import (
	"context"
	"database/sql"
	"time"

	"LIMS-backend/internal/platform/db"
)

const (
	EventStatusChange   = "status_change"
	EventLocationChange = "location_change"
)

type Entry struct {
	ID         uint64    `json:"id"`
	AssetKind  string    `json:"asset_kind"`
	AssetID    uint64    `json:"asset_id"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func Record(ctx context.Context, tx db.DBTX, e Entry) error {
	const q = `
INSERT INTO asset_audit_log (asset_kind, asset_id, event, from_status, to_status, reason, actor, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := tx.ExecContext(ctx, q, e.AssetKind, e.AssetID, e.Event,
		nullable(e.FromStatus), nullable(e.ToStatus), nullable(e.Reason), nullable(e.Actor), e.CreatedAt)
	return err
}

// List returns the trail of one asset, oldest first.
func List(ctx context.Context, q db.DBTX, kind string, assetID uint64) ([]Entry, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, asset_kind, asset_id, event, from_status, to_status, reason, actor, created_at
FROM asset_audit_log
WHERE asset_kind = ? AND asset_id = ?
ORDER BY id`, kind, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		var from, to, reason, actor sql.NullString
		if err := rows.Scan(&e.ID, &e.AssetKind, &e.AssetID, &e.Event, &from, &to, &reason, &actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus, e.ToStatus, e.Reason, e.Actor = from.String, to.String, reason.String, actor.String
		out = append(out, e)
	}
	return out, rows.Err()
}
