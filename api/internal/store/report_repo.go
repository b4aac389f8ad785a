package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barchart-coach/api/internal/util"
)

var ErrNotFound = sql.ErrNoRows

// Report is an exported self-check report. Only the report text and a few
// header fields are archived, never the session state.
type Report struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	SessionID string    `json:"sessionId"`
	Channel   string    `json:"channel"`
	Locale    string    `json:"locale"`
	Goal      string    `json:"goal"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewReport fills the hash from body.
func NewReport(sessionID, channel, locale, goal, body string) Report {
	return Report{
		Hash:      util.SHA256Hex([]byte(body)),
		SessionID: sessionID,
		Channel:   channel,
		Locale:    locale,
		Goal:      goal,
		Body:      body,
	}
}

type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

const schema = `
create table if not exists chart_reports (
  id          bigserial primary key,
  hash        text not null unique,
  session_id  text not null,
  channel     text not null,
  locale      text not null,
  goal        text not null default '',
  body        text not null,
  created_at  timestamptz not null default now()
);
create index if not exists chart_reports_created_at_idx on chart_reports (created_at desc)`

// EnsureSchema creates the archive table when missing.
func (r *ReportRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save archives rep. Exporting the same report twice keeps one row and
// refreshes its timestamp. It returns the row id.
func (r *ReportRepo) Save(ctx context.Context, rep Report) (int64, error) {
	if rep.Hash == "" {
		rep.Hash = util.SHA256Hex([]byte(rep.Body))
	}
	const q = `
insert into chart_reports (hash, session_id, channel, locale, goal, body)
values ($1,$2,$3,$4,$5,$6)
on conflict (hash) do update
set session_id = excluded.session_id,
    channel = excluded.channel,
    created_at = now()
returning id`
	var id int64
	err := r.DB.QueryRowContext(ctx, q,
		rep.Hash, rep.SessionID, rep.Channel, rep.Locale, rep.Goal, rep.Body,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	return id, nil
}

// FindByHash returns the archived report with the given body hash.
func (r *ReportRepo) FindByHash(ctx context.Context, hash string) (*Report, error) {
	const q = `
select id, hash, session_id, channel, locale, goal, body, created_at
from chart_reports
where hash = $1`
	var rep Report
	err := r.DB.QueryRowContext(ctx, q, hash).Scan(
		&rep.ID, &rep.Hash, &rep.SessionID, &rep.Channel, &rep.Locale, &rep.Goal, &rep.Body, &rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// ListRecent returns up to limit reports, newest first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
select id, hash, session_id, channel, locale, goal, body, created_at
from chart_reports
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []Report{}
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Hash, &rep.SessionID, &rep.Channel, &rep.Locale,
			&rep.Goal, &rep.Body, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes reports past the retention period.
func (r *ReportRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from chart_reports where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
