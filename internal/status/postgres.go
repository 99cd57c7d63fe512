package status

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Migrate applies the status schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, cfg, Migrations, "migrations", log)
}

// DB is the subset of *pgxpool.Pool used by PostgresTracker.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresTracker struct {
	db  DB
	now func() time.Time
}

type PostgresOption func(*PostgresTracker)

func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(t *PostgresTracker) {
		t.now = now
	}
}

func NewPostgresTracker(db DB, opts ...PostgresOption) *PostgresTracker {
	t := &PostgresTracker{db: db, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

const recordColumns = `notification_id::text, request_id, channel, status,
	COALESCE(error_detail, ''), COALESCE(skip_reason, ''), created_at, updated_at`

const (
	insertRecordSQL = `INSERT INTO notification_status
	(notification_id, request_id, channel, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)`

	insertEventSQL = `INSERT INTO notification_status_events
	(notification_id, status, detail, created_at)
	VALUES ($1, $2, NULLIF($3, ''), $4)`

	transitionSQL = `UPDATE notification_status
	SET status = $2, error_detail = NULLIF($3, ''), skip_reason = NULLIF($4, ''), updated_at = $5
	WHERE notification_id = $1 AND status = 'pending'
	RETURNING ` + recordColumns

	getSQL = `SELECT ` + recordColumns + ` FROM notification_status WHERE notification_id = $1`

	lookupSQL = `SELECT ` + recordColumns + ` FROM notification_status
	WHERE request_id = $1 ORDER BY created_at DESC LIMIT 1`

	stalePendingSQL = `SELECT ` + recordColumns + ` FROM notification_status
	WHERE status = 'pending' AND created_at < $1 ORDER BY created_at LIMIT $2`

	historySQL = `SELECT notification_id::text, status, COALESCE(detail, ''), created_at
	FROM notification_status_events WHERE notification_id = $1 ORDER BY id`
)

func (p *PostgresTracker) Create(ctx context.Context, rec Record) error {
	rec, err := validateNew(rec)
	if err != nil {
		return err
	}
	if !isUUID(rec.NotificationID) {
		return wrapInvalid("notification_id must be a UUID")
	}
	now := p.now().UTC()

	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRecordSQL,
			rec.NotificationID, rec.RequestID, string(rec.Channel), string(rec.Status), now,
		); err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrAlreadyExists
			}
			return storeError(err)
		}
		if _, err := tx.Exec(ctx, insertEventSQL, rec.NotificationID, string(rec.Status), "", now); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// Transition relies on the "status = 'pending'" predicate for write-once:
// of two concurrent callers only one UPDATE matches a row.
func (p *PostgresTracker) Transition(ctx context.Context, notificationID string, t Transition) (Record, error) {
	t = t.normalize()
	if err := checkTransition(ctx, notification.StatusPending, t.To); err != nil {
		return Record{}, err
	}
	if !isUUID(notificationID) {
		return Record{}, ErrNotFound
	}
	now := p.now().UTC()

	var rec Record
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		rec, err = scanRecord(tx.QueryRow(ctx, transitionSQL,
			notificationID, string(t.To), t.ErrorDetail, t.SkipReason, now,
		))
		if pg.IsNotFoundError(err) {
			current, getErr := scanRecord(tx.QueryRow(ctx, getSQL, notificationID))
			if pg.IsNotFoundError(getErr) {
				return ErrNotFound
			}
			if getErr != nil {
				return storeError(getErr)
			}
			rec = current
			return fmt.Errorf("%w: %s", ErrAlreadyFinal, current.Status)
		}
		if err != nil {
			return storeError(err)
		}
		if _, err := tx.Exec(ctx, insertEventSQL, notificationID, string(t.To), eventDetail(t), now); err != nil {
			return storeError(err)
		}
		return nil
	})
	return rec, err
}

func (p *PostgresTracker) Get(ctx context.Context, notificationID string) (Record, error) {
	if !isUUID(notificationID) {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(p.db.QueryRow(ctx, getSQL, notificationID))
	if pg.IsNotFoundError(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, storeError(err)
	}
	return rec, nil
}

func (p *PostgresTracker) Lookup(ctx context.Context, requestID string) (Record, error) {
	rec, err := scanRecord(p.db.QueryRow(ctx, lookupSQL, requestID))
	if pg.IsNotFoundError(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, storeError(err)
	}
	return rec, nil
}

func (p *PostgresTracker) StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.Query(ctx, stalePendingSQL, createdBefore.UTC(), limit)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeError(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return out, nil
}

func (p *PostgresTracker) History(ctx context.Context, notificationID string) ([]Event, error) {
	if !isUUID(notificationID) {
		return nil, ErrNotFound
	}
	rows, err := p.db.Query(ctx, historySQL, notificationID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e      Event
			status string
		)
		if err := rows.Scan(&e.NotificationID, &status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		e.Status = notification.Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (p *PostgresTracker) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return storeError(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeError(err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec             Record
		channel, status string
	)
	err := row.Scan(
		&rec.NotificationID, &rec.RequestID, &channel, &status,
		&rec.ErrorDetail, &rec.SkipReason, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Channel = notification.Channel(channel)
	rec.Status = notification.Status(status)
	return rec, nil
}

func storeError(err error) error {
	return errors.Join(ErrUnavailable, err)
}

// the column is UUID typed; anything else cannot exist
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
