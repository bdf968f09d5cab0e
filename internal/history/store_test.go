package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
	"github.com/roelfdiedericks/pagesmith/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(model string) *Record {
	return &Record{
		Model:      model,
		Provider:   "novita",
		Status:     "success",
		DurationMs: 1200,
		Prompt:     "a landing page for a bakery",
		Attempts: []engine.Attempt{
			{Model: model, Provider: "novita", Status: "success", DurationMs: 1200},
		},
		Usage: &llm.Usage{InputTokens: 100, OutputTokens: 400, TotalTokens: 500},
		HTML:  "<!DOCTYPE html><html><body>bakery</body></html>",
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Save(sampleRecord("deepseek-v3"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty id")
	}

	rec, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Model != "deepseek-v3" || rec.Provider != "novita" || rec.Status != "success" {
		t.Errorf("record = %+v", rec)
	}
	if rec.HTML == "" {
		t.Error("Get did not return HTML")
	}
	if rec.HTMLBytes != len(rec.HTML) {
		t.Errorf("HTMLBytes = %d, want %d", rec.HTMLBytes, len(rec.HTML))
	}
	if len(rec.Attempts) != 1 || rec.Attempts[0].Provider != "novita" {
		t.Errorf("Attempts = %+v", rec.Attempts)
	}
	if rec.Usage == nil || rec.Usage.TotalTokens != 500 {
		t.Errorf("Usage = %+v", rec.Usage)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("01J0000000000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListOmitsHTML(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		rec := sampleRecord("glm-4.6")
		rec.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if _, err := s.Save(rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	records, err := s.List(10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	for _, rec := range records {
		if rec.HTML != "" {
			t.Error("List returned HTML body")
		}
		if rec.HTMLBytes == 0 {
			t.Error("List missing HTMLBytes")
		}
	}
	if !records[0].CreatedAt.After(records[2].CreatedAt) {
		t.Error("List not newest-first")
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Save(sampleRecord("grok-4"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	old := sampleRecord("old-model")
	old.CreatedAt = time.Now().AddDate(0, 0, -40)
	if _, err := s.Save(old); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		rec := sampleRecord("new-model")
		rec.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if _, err := s.Save(rec); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("by age", func(t *testing.T) {
		pruned, err := s.Prune(30, 0)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if pruned != 1 {
			t.Errorf("pruned = %d, want 1", pruned)
		}
	})

	t.Run("by rows keeps newest", func(t *testing.T) {
		pruned, err := s.Prune(0, 2)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if pruned != 3 {
			t.Errorf("pruned = %d, want 3", pruned)
		}
		n, err := s.Count()
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("Count = %d, want 2", n)
		}
	})

	t.Run("disabled bounds are noop", func(t *testing.T) {
		pruned, err := s.Prune(0, 0)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if pruned != 0 {
			t.Errorf("pruned = %d, want 0", pruned)
		}
	})
}

func TestMigrationIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s1.Save(sampleRecord("m"))
	if err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(id); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
