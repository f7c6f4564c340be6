package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `CREATE TABLE IF NOT EXISTS intervention_sessions (
	id         TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore shares session state between server instances. Rows expire
// with the session TTL and are purged by PurgeExpired.
type PostgresStore struct {
	db  querier
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db querier, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Connect opens a pool, verifies it and creates the sessions table.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return pool, nil
}

func (p *PostgresStore) Load(ctx context.Context, id string) (State, error) {
	var raw []byte
	err := p.db.QueryRow(ctx,
		`SELECT state FROM intervention_sessions WHERE id = $1 AND expires_at > $2`,
		id, p.now(),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return idle(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return decode(raw)
}

func (p *PostgresStore) Save(ctx context.Context, id string, st State) error {
	raw, err := encode(st)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx,
		`INSERT INTO intervention_sessions (id, state, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, expires_at = EXCLUDED.expires_at`,
		id, raw, p.now().Add(p.ttl),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM intervention_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// PurgeExpired removes sessions whose TTL has elapsed.
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM intervention_sessions WHERE expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
