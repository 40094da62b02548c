// Package store persists bot-side state in postgres: each staff member's
// selected facility and date, and an audit trail of the check-in mutations
// they made.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Session is what survives a restart of the bot for one user.
type Session struct {
	State      string `json:"-"`
	ChatID     int64  `json:"chatId,omitempty"`
	FacilityID int64  `json:"facilityId,omitempty"`
	Date       string `json:"date,omitempty"`
}

const StateStart = "start"

type PGRepo struct{ pool *pgxpool.Pool }

func NewRepo(ctx context.Context, dsn string) (*PGRepo, error) {
	const op = "store.NewRepo"
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &PGRepo{pool: pool}, nil
}

func (r *PGRepo) Close() {
	r.pool.Close()
}

func (r *PGRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (r *PGRepo) Migrate() error {
	const op = "store.Migrate"
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()
	return runMigrations(db, op)
}

func runMigrations(db *sql.DB, op string) error {
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx_v5", driver)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadSession returns the stored session of userID, or a fresh start
// session when there is none.
func (r *PGRepo) LoadSession(ctx context.Context, userID int64) (*Session, error) {
	const op = "store.LoadSession"
	var (
		s       Session
		payload []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT state, payload FROM user_session WHERE user_id=$1`, userID).
		Scan(&s.State, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Session{State: StateStart}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func (r *PGRepo) SaveSession(ctx context.Context, userID int64, s Session) error {
	const op = "store.SaveSession"
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_session (user_id, state, payload, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (user_id) DO UPDATE
		   SET state=EXCLUDED.state, payload=EXCLUDED.payload, updated_at=now()
	`, userID, s.State, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecordEvent appends a check-in mutation made by userID to the audit trail.
func (r *PGRepo) RecordEvent(ctx context.Context, userID int64, ev checkin.Event) (uuid.UUID, error) {
	const op = "store.RecordEvent"
	id := uuid.New()
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO checkin_event (id, user_id, op, facility_id, registration_date, registration_id, guest_id, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,0),NULLIF($7,0),$8)
	`, id, userID, ev.Op, ev.FacilityID, ev.Date, ev.RegistrationID, ev.GuestID, at)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CountEvents returns how many mutations were recorded for a facility date.
func (r *PGRepo) CountEvents(ctx context.Context, facilityID int64, date string) (int, error) {
	const op = "store.CountEvents"
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM checkin_event WHERE facility_id=$1 AND registration_date=$2`,
		facilityID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
