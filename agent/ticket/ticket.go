package ticket

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// Ticket is one escalation handed to the human-staffed channel.
type Ticket struct {
	bun.BaseModel `bun:"table:escalation_tickets,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID string    `bun:"session_id,notnull" json:"session_id"`
	Summary   string    `bun:"summary" json:"summary"`
	Status    string    `bun:"status,notnull,default:'open'" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

const (
	StatusOpen     = "open"
	StatusAssigned = "assigned"
	StatusClosed   = "closed"
)

var (
	ErrNilTicket      = errors.New("ticket is nil")
	ErrEmptySessionID = errors.New("ticket session id is empty")
)

// Store files escalation tickets for the human channel.
type Store interface {
	Create(ctx context.Context, t *Ticket) error
	ListBySession(ctx context.Context, sessionID string) ([]Ticket, error)
}

// MemoryStore is the default store: tickets live in process memory,
// enough for the console shell and for tests.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	tickets []Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) Create(ctx context.Context, t *Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(t); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.nextID
	m.nextID++
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.tickets = append(m.tickets, *t)
	return nil
}

func (m *MemoryStore) ListBySession(ctx context.Context, sessionID string) ([]Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Ticket
	for _, t := range m.tickets {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func validate(t *Ticket) error {
	if t == nil {
		return ErrNilTicket
	}
	if strings.TrimSpace(t.SessionID) == "" {
		return ErrEmptySessionID
	}
	return nil
}
