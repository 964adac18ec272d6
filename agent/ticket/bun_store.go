package ticket

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type BunConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// BunStore persists escalation tickets in Postgres so the human channel
// can pick them up out of process.
type BunStore struct {
	db      *bun.DB
	timeout time.Duration
}

func NewBunStore(cfg BunConfig) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("ticket store dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &BunStore{
		db:      db,
		timeout: timeout,
	}, nil
}

// Init creates the tickets table if needed.
func (s *BunStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.NewCreateTable().
		Model((*Ticket)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunStore) Create(ctx context.Context, t *Ticket) error {
	if err := validate(t); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.NewInsert().Model(t).Exec(ctx)
	return err
}

func (s *BunStore) ListBySession(ctx context.Context, sessionID string) ([]Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []Ticket
	err := s.db.NewSelect().
		Model(&out).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
