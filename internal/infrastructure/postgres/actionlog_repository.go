package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/channelswap/channelswap/internal/domain/actionlog"
)

// ActionLogRepository implements actionlog.Repository.
type ActionLogRepository struct {
	pool *pgxpool.Pool
}

func NewActionLogRepository(pool *pgxpool.Pool) *ActionLogRepository {
	return &ActionLogRepository{pool: pool}
}

const actionLogColumns = `id, entry_id, actor_user_id, action, details, ip, signature, created_at`

func (r *ActionLogRepository) Create(ctx context.Context, e *actionlog.Entry) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO action_log
		(entry_id, actor_user_id, action, details, ip, signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.EntryID, e.ActorUserID, e.Action, e.Details, e.IP, e.Signature, e.CreatedAt)
	return err
}

func (r *ActionLogRepository) List(ctx context.Context, f actionlog.Filter, limit, offset int) ([]*actionlog.Entry, error) {
	query := `
		SELECT ` + actionLogColumns + `
		FROM action_log
		WHERE ($1::text IS NULL OR action=$1)
		  AND ($2::uuid IS NULL OR actor_user_id=$2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := db(ctx, r.pool).Query(ctx, query, f.Action, f.ActorUserID, f.Since, f.Until, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*actionlog.Entry
	for rows.Next() {
		e, err := scanActionLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ActionLogRepository) LatestByAction(ctx context.Context, action actionlog.Action) (*actionlog.Entry, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+actionLogColumns+`
		FROM action_log
		WHERE action=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, action)
	return scanActionLogEntry(row)
}

func (r *ActionLogRepository) CountOfferCreates(ctx context.Context, channelID uuid.UUID, since time.Time) (int, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(1)
		FROM action_log
		WHERE action=$1 AND details->>'channel_id'=$2 AND created_at >= $3
	`, actionlog.ActionOfferCreated, channelID.String(), since)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanActionLogEntry(row pgx.Row) (*actionlog.Entry, error) {
	var e actionlog.Entry
	var details json.RawMessage
	if err := row.Scan(&e.ID, &e.EntryID, &e.ActorUserID, &e.Action, &details, &e.IP, &e.Signature, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(details) > 0 {
		e.Details = details
	}
	return &e, nil
}
