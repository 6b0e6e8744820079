package sessions

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestMemoryStoreSaveGetReplace(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sess := New("s1", now).WithDocument(Document{FileName: "a.pdf", Text: "first document"}, now)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	sess = sess.WithDocument(Document{FileName: "b.docx", Text: "second"}, now)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Ready() || got.Document.Text != "second" || got.Document.FileName != "b.docx" {
		t.Fatalf("expected replaced document, got %+v", got.Document)
	}
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10*time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if err := store.Save(ctx, New("s1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, New("s2", now)); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1 session, got %d", removed)
	}
}

func TestMemoryStoreKeepsSaveRacingExpiredGet(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	var store *MemoryStore
	var onClock func()
	store = NewMemoryStore(10*time.Minute, func() time.Time {
		if hook := onClock; hook != nil {
			onClock = nil
			hook()
		}
		return now
	})
	ctx := context.Background()

	if err := store.Save(ctx, New("s1", now)); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(11 * time.Minute)

	// An upload lands while Get is deciding the old entry is expired.
	fresh := New("s1", now).WithDocument(Document{FileName: "a.docx", Text: "fresh"}, now)
	onClock = func() {
		if err := store.Save(ctx, fresh); err != nil {
			t.Errorf("save during get: %v", err)
		}
	}
	if _, err := store.Get(ctx, "s1"); err != nil && !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("fresh session was dropped: %v", err)
	}
	if !got.Ready() || got.Document.Text != "fresh" {
		t.Fatalf("expected fresh document, got %+v", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(0, nil)
	ctx := context.Background()
	if err := store.Save(ctx, New("s1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Save(ctx, Session{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestSessionResetDropsDocument(t *testing.T) {
	now := time.Now()
	sess := New("s1", now).WithDocument(Document{Text: "x"}, now)
	reset := sess.Reset(now)
	if reset.Ready() || reset.Document != nil || reset.State != StateNoDocument {
		t.Fatalf("expected NoDocument after reset, got %+v", reset)
	}
	if !sess.Ready() {
		t.Fatalf("reset must not mutate the original value")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed session tests")
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisOptions{Addr: addr, DB: db}, time.Minute)
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	defer store.Close()

	id := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer store.Delete(ctx, id)

	now := time.Now().UTC().Truncate(time.Second)
	sess := New(id, now).WithDocument(Document{FileName: "a.pdf", Text: "page one"}, now)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Ready() || got.Document.Text != "page one" {
		t.Fatalf("unexpected session %+v", got)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
