package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	repoIface "github.com/quipper/poc/shopify/be/pkg/repositories/webhook"
)

// SQLiteRepo is a SQLite-backed append-only log of verified webhook events.
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
CREATE TABLE IF NOT EXISTS webhook_events (
    receipt_id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    shop TEXT NOT NULL,
    topic TEXT NOT NULL,
    payload TEXT NOT NULL,
    received_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhook_events_received_at ON webhook_events(received_at);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

// Append records one verified event. The receipt id and timestamp are filled
// in when the caller left them empty.
func (r *SQLiteRepo) Append(ctx context.Context, ev *repoIface.Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	if ev.ReceiptID == "" {
		ev.ReceiptID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO webhook_events (receipt_id, event_id, shop, topic, payload, received_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, ev.ReceiptID, ev.EventID, ev.Shop, ev.Topic, string(ev.Payload), ev.ReceivedAt.UTC())
	return err
}

// List returns every recorded event, newest first.
func (r *SQLiteRepo) List(ctx context.Context) ([]*repoIface.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT receipt_id, event_id, shop, topic, payload, received_at
        FROM webhook_events ORDER BY received_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*repoIface.Event
	for rows.Next() {
		var ev repoIface.Event
		var payload string
		var received time.Time
		if err := rows.Scan(&ev.ReceiptID, &ev.EventID, &ev.Shop, &ev.Topic, &payload, &received); err != nil {
			return nil, err
		}
		ev.Payload = json.RawMessage(payload)
		ev.ReceivedAt = received
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
