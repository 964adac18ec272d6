package ticket

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateAssignsDefaults(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	tk := &Ticket{SessionID: "s1", Summary: "app keeps crashing"}

	if err := store.Create(context.Background(), tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tk.ID != 1 {
		t.Fatalf("expected id 1, got %d", tk.ID)
	}
	if tk.Status != StatusOpen {
		t.Fatalf("expected open status, got %q", tk.Status)
	}
	if tk.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestMemoryStoreCreateValidation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Create(context.Background(), nil); !errors.Is(err, ErrNilTicket) {
		t.Fatalf("expected ErrNilTicket, got %v", err)
	}
	if err := store.Create(context.Background(), &Ticket{SessionID: "  "}); !errors.Is(err, ErrEmptySessionID) {
		t.Fatalf("expected ErrEmptySessionID, got %v", err)
	}
}

func TestMemoryStoreListBySession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s1"} {
		if err := store.Create(ctx, &Ticket{SessionID: sid, Summary: "issue"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := store.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tickets for s1, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Fatal("tickets must have distinct ids")
	}

	none, err := store.ListBySession(ctx, "s3")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no tickets for s3, got %d", len(none))
	}
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Create(ctx, &Ticket{SessionID: "s1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
