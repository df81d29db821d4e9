package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	repoIface "github.com/quipper/poc/shopify/be/pkg/repositories/nonce"
)

const nonceBytes = 16

// SQLiteRepo is a SQLite-backed store for one-time OAuth state nonces.
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
CREATE TABLE IF NOT EXISTS oauth_nonces (
    nonce TEXT PRIMARY KEY,
    shop TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_nonces_expires_at ON oauth_nonces(expires_at);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

func (r *SQLiteRepo) Issue(ctx context.Context, shop string, ttl time.Duration) (string, error) {
	if shop == "" {
		return "", errors.New("empty shop")
	}
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(buf)

	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	// Cleanup expired (best-effort)
	_, _ = tx.ExecContext(ctx, "DELETE FROM oauth_nonces WHERE expires_at < CURRENT_TIMESTAMP")

	_, err = tx.ExecContext(ctx, `INSERT INTO oauth_nonces (nonce, shop, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		nonce, shop, now, now.Add(ttl))
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume loads and unconditionally deletes the nonce in one transaction so a
// nonce can never be validated twice, even after a failed validation.
func (r *SQLiteRepo) Consume(ctx context.Context, nonce string, shop string) (bool, error) {
	if nonce == "" {
		return false, nil
	}
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var boundShop string
	var expiresAt time.Time
	row := tx.QueryRowContext(ctx, `SELECT shop, expires_at FROM oauth_nonces WHERE nonce = ?`, nonce)
	if err := row.Scan(&boundShop, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_nonces WHERE nonce = ?`, nonce); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	if boundShop != shop {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}
