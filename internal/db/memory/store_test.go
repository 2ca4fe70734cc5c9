package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shelfrec/internal/db"
)

func TestStore_SetGet(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore(0)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(0)
	now := time.Unix(1_000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.SetWithTTL(ctx, "short", []byte("x"), time.Second)
	_ = s.SetWithTTL(ctx, "forever", []byte("y"), 0)

	now = now.Add(2 * time.Second)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected expired key to be gone, got %v", err)
	}
	if _, err := s.Get(ctx, "forever"); err != nil {
		t.Errorf("key without ttl should survive: %v", err)
	}
}

func TestStore_ValueIsCopied(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()
	buf := []byte("abc")

	_ = s.SetWithTTL(ctx, "k", buf, 0)
	buf[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value changed through caller slice: %q", got)
	}
}

func TestStore_MaxEntries(t *testing.T) {
	s := NewStore(2)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.SetWithTTL(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.Get(ctx, "c"); err != nil {
		t.Errorf("latest key must be kept: %v", err)
	}
}

func TestStore_Del(t *testing.T) {
	s := NewStore(0)
	ctx := context.Background()
	_ = s.SetWithTTL(ctx, "k", []byte("v"), 0)

	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after Del, got %v", err)
	}
}

func TestStore_Closed(t *testing.T) {
	s := NewStore(0)
	s.Close()

	if err := s.Ping(context.Background()); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Ping after Close: expected ErrClosed, got %v", err)
	}
	if err := s.SetWithTTL(context.Background(), "k", nil, 0); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Set after Close: expected ErrClosed, got %v", err)
	}
}
