package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	repoIface "github.com/quipper/poc/shopify/be/pkg/repositories/session"
)

// SQLiteRepo is a SQLite-backed store for shop sessions, keyed by shop domain.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Pragmas safe for simple single-process usage
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
    shop TEXT PRIMARY KEY,
    access_token TEXT NOT NULL,
    scope TEXT NOT NULL DEFAULT '',
    access_mode TEXT NOT NULL DEFAULT 'offline',
    created_at TIMESTAMP NOT NULL
);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

// Put upserts the session for its shop. A re-auth replaces the prior token.
func (r *SQLiteRepo) Put(ctx context.Context, s *repoIface.Session) error {
	if s == nil || s.Shop == "" {
		return errors.New("session requires a shop")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO sessions (shop, access_token, scope, access_mode, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(shop) DO UPDATE SET
            access_token = excluded.access_token,
            scope = excluded.scope,
            access_mode = excluded.access_mode,
            created_at = excluded.created_at
    `, s.Shop, s.AccessToken, s.Scope, s.AccessMode, s.CreatedAt.UTC())
	return err
}

// Get returns the session for a shop, or nil if none exists.
func (r *SQLiteRepo) Get(ctx context.Context, shop string) (*repoIface.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT shop, access_token, scope, access_mode, created_at FROM sessions WHERE shop = ?`, shop)
	var s repoIface.Session
	var created time.Time
	if err := row.Scan(&s.Shop, &s.AccessToken, &s.Scope, &s.AccessMode, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = created
	return &s, nil
}
