package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{VideoID: "aaaaaaaaaa1", Title: "First", ContentType: "tutorial", SummaryLen: 400},
		{VideoID: "bbbbbbbbbb2", Title: "Second", Channel: "Chan", ContentType: "review", SummaryLen: 800},
	}
	for _, e := range entries {
		e.CreatedAt = time.Now().UTC()
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	// Most recent first.
	if got[0].VideoID != "bbbbbbbbbb2" {
		t.Errorf("got[0].VideoID = %q, want newest entry", got[0].VideoID)
	}
	if got[1].Title != "First" || got[1].ContentType != "tutorial" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := Entry{VideoID: "aaaaaaaaaa1", ContentType: "other", CreatedAt: time.Now().UTC()}
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d entries, want 3", len(got))
	}
}

func TestPackageNoOpWithoutStore(t *testing.T) {
	SetStore(nil)
	if Enabled() {
		t.Fatal("Enabled() = true with nil store")
	}
	if err := Record(context.Background(), Entry{VideoID: "aaaaaaaaaa1"}); err != nil {
		t.Errorf("Record without store = %v, want nil", err)
	}
	got, err := Recent(context.Background(), 10)
	if err != nil || got != nil {
		t.Errorf("Recent without store = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestPackageLevelStore(t *testing.T) {
	s := openTestStore(t)
	SetStore(s)
	defer SetStore(nil)

	if !Enabled() {
		t.Fatal("Enabled() = false after SetStore")
	}
	if err := Record(context.Background(), Entry{VideoID: "cccccccccc3", ContentType: "other", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := Record(context.Background(), Entry{}); err == nil {
		t.Error("Record with empty video id should fail")
	}
	got, err := Recent(context.Background(), 0) // 0 falls back to default limit
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d entries, want 1", len(got))
	}
}
