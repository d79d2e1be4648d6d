package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := New(KindImage, map[string]any{"prompt": "p"}, "owner-1", "")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != rec.ID || found.Status != StatusPending {
		t.Errorf("unexpected record: %+v", found)
	}

	// Mutating the returned clone must not affect stored state.
	found.Status = StatusCompleted
	again, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Status != StatusPending {
		t.Error("expected stored record to be isolated from caller mutations")
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.FindByID(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := New(KindVideo, nil, "", "")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := repo.Update(ctx, rec.ID, func(r *Record) error {
		r.ProviderJobID = "remote-1"
		return r.TransitionTo(StatusProcessing)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusProcessing || updated.ProviderJobID != "remote-1" {
		t.Errorf("unexpected record after update: %+v", updated)
	}

	stored, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != StatusProcessing {
		t.Errorf("expected update to persist, got %s", stored.Status)
	}
}

func TestMemoryRepository_Update_ErrorDiscardsChanges(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := New(KindVideo, nil, "", "")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	_, err := repo.Update(ctx, rec.ID, func(r *Record) error {
		r.ProviderJobID = "should-not-persist"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}

	stored, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ProviderJobID != "" {
		t.Error("expected changes to be discarded when the mutator fails")
	}
}

func TestMemoryRepository_Update_Serialized(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := New(KindVideo, map[string]any{"n": 0}, "", "")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Update(ctx, rec.ID, func(r *Record) error {
				n := r.Parameters["n"].(int)
				r.Parameters["n"] = n + 1
				return nil
			})
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stored.Parameters["n"].(int); got != workers {
		t.Errorf("expected %d serialized increments, got %d", workers, got)
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := New(KindImage, nil, "owner-1", "")
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 4 {
			rec.OwnerID = "owner-2"
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Error("expected newest-first ordering")
		}
	}

	owned, err := repo.List(ctx, Filter{OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(owned) != 4 {
		t.Errorf("expected 4 records for owner-1, got %d", len(owned))
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected page of 2, got %d", len(page))
	}

	past, err := repo.List(ctx, Filter{Offset: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(past))
	}

	negative, err := repo.List(ctx, Filter{Offset: -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(negative) != 5 {
		t.Errorf("expected negative offset to behave like zero, got %d records", len(negative))
	}
}

func TestMemoryRepository_List_StatusFilter(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := New(KindImage, nil, "", "")
		if i == 0 {
			if err := rec.TransitionTo(StatusProcessing); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	processing, err := repo.List(ctx, Filter{Status: StatusProcessing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(processing) != 1 {
		t.Errorf("expected 1 processing record, got %d", len(processing))
	}
}

func TestMemoryRepository_ListActive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var activeIDs []string
	for i := 0; i < 4; i++ {
		rec := New(KindVideo, nil, "", "")
		rec.ID = fmt.Sprintf("job-%d", i)
		if i%2 == 0 {
			if err := rec.Complete(&Result{URLs: []string{"https://x/a"}}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		} else {
			activeIDs = append(activeIDs, rec.ID)
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ids, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != len(activeIDs) {
		t.Fatalf("expected %d active ids, got %d", len(activeIDs), len(ids))
	}
	for i, id := range activeIDs {
		if ids[i] != id {
			t.Errorf("expected active id %s at %d, got %s", id, i, ids[i])
		}
	}
}
