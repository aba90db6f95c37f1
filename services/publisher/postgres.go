package publisher

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // Import the driver

	"sjsage522/silkdeal/internal/pager"
)

const createDealsTable = `
CREATE TABLE IF NOT EXISTS deals (
	id         BIGSERIAL PRIMARY KEY,
	profile    TEXT NOT NULL,
	title      TEXT,
	url        TEXT,
	store      TEXT,
	price      TEXT,
	data       JSONB NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL,
	UNIQUE (profile, url)
)`

const insertDeal = `
INSERT INTO deals (profile, title, url, store, price, data, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (profile, url) DO NOTHING`

// PostgresPublisher stores records in the deals table. A record whose
// (profile, url) pair is already stored is ignored.
type PostgresPublisher struct {
	db *sql.DB
}

// NewPostgresPublisher connects to databaseURL and creates the table.
func NewPostgresPublisher(ctx context.Context, databaseURL string) (*PostgresPublisher, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}
	p := &PostgresPublisher{db: db}
	if err := p.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresPublisher) init(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, createDealsTable)
	return err
}

func (p *PostgresPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, insertDeal,
		profile,
		nullable(rec, "title"),
		nullable(rec, "url"),
		nullable(rec, "store"),
		nullable(rec, "price"),
		data,
		time.Now(),
	)
	return err
}

func (p *PostgresPublisher) Close() error {
	return p.db.Close()
}

func nullable(rec pager.Record, name string) sql.NullString {
	v, ok := rec.Get(name)
	return sql.NullString{String: v, Valid: ok}
}
