package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "data", "archive.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListSources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sources := []*models.Source{
		{ID: "s1", Kind: models.SourceText, Name: "notes", Chars: 120, Chunks: 1},
		{ID: "s2", Kind: models.SourceFile, Name: "report.pdf", Chars: 9000, Chunks: 12,
			Metadata: map[string]interface{}{"path": "/tmp/report.pdf"}},
		{ID: "s3", Kind: models.SourceTranscript, Name: "meeting-42", Chars: 3300, Chunks: 4},
	}
	for _, src := range sources {
		if err := store.RecordSource(ctx, src); err != nil {
			t.Fatalf("RecordSource(%s): %v", src.ID, err)
		}
		if src.CreatedAt.IsZero() {
			t.Errorf("RecordSource(%s) did not stamp CreatedAt", src.ID)
		}
		time.Sleep(5 * time.Millisecond)
	}

	count, err := store.CountSources(ctx)
	if err != nil {
		t.Fatalf("CountSources: %v", err)
	}
	if count != 3 {
		t.Errorf("CountSources = %d, want 3", count)
	}

	listed, err := store.ListSources(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("ListSources returned %d sources, want 3", len(listed))
	}
	// Newest first.
	if listed[0].ID != "s3" || listed[2].ID != "s1" {
		t.Errorf("order = [%s %s %s], want [s3 s2 s1]", listed[0].ID, listed[1].ID, listed[2].ID)
	}
	for _, src := range listed {
		if src.ID == "s2" {
			if src.Kind != models.SourceFile {
				t.Errorf("s2 kind = %s, want %s", src.Kind, models.SourceFile)
			}
			if src.Chars != 9000 || src.Chunks != 12 {
				t.Errorf("s2 counters = (%d, %d), want (9000, 12)", src.Chars, src.Chunks)
			}
			path, ok := src.Metadata["path"].(string)
			if !ok || path != "/tmp/report.pdf" {
				t.Errorf("s2 metadata = %v, want path=/tmp/report.pdf", src.Metadata)
			}
		}
	}
}

func TestListSourcesPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		src := &models.Source{ID: id, Kind: models.SourceText, Name: id, Chars: 10, Chunks: 1}
		if err := store.RecordSource(ctx, src); err != nil {
			t.Fatalf("RecordSource(%s): %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	page, err := store.ListSources(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("page = [%s %s], want [c b]", page[0].ID, page[1].ID)
	}
}

func TestRecordSourceSameIDReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.Source{ID: "watched", Kind: models.SourceWatch, Name: "notes.txt", Chars: 50, Chunks: 1}
	if err := store.RecordSource(ctx, first); err != nil {
		t.Fatalf("first RecordSource: %v", err)
	}
	second := &models.Source{ID: "watched", Kind: models.SourceWatch, Name: "notes.txt", Chars: 180, Chunks: 3}
	if err := store.RecordSource(ctx, second); err != nil {
		t.Fatalf("second RecordSource: %v", err)
	}

	count, err := store.CountSources(ctx)
	if err != nil {
		t.Fatalf("CountSources: %v", err)
	}
	if count != 1 {
		t.Errorf("CountSources = %d, want 1", count)
	}
	listed, err := store.ListSources(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(listed) != 1 || listed[0].Chars != 180 || listed[0].Chunks != 3 {
		t.Errorf("replaced row = %+v, want chars=180 chunks=3", listed[0])
	}
}

func TestListSourcesEmpty(t *testing.T) {
	store := newTestStore(t)

	listed, err := store.ListSources(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("ListSources on empty store returned %d sources", len(listed))
	}
}
