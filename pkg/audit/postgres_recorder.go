package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder implements Recorder using PostgreSQL.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder creates a PostgreSQL-backed audit recorder
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Append stores an entry
func (r *PostgresRecorder) Append(ctx context.Context, entry Entry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (id, actor_id, action, description, ip, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.ActorID, string(entry.Action), entry.Description,
		entry.Origin.IP, entry.Origin.UserAgent, details, entry.Timestamp,
	)
	return err
}

// List returns entries matching the filter, newest first.
func (r *PostgresRecorder) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	where := ` WHERE ($1::uuid IS NULL OR actor_id = $1) AND ($2 = '' OR action = $2)`

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where,
		filter.ActorID, string(filter.Action)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, actor_id, action, description, ip, user_agent, details, created_at
		FROM audit_log` + where + `
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, filter.ActorID, string(filter.Action), limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			action  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.Description,
			&e.Origin.IP, &e.Origin.UserAgent, &details, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		e.Action = Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
