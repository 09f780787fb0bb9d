package store

import (
	"context"
	"testing"
	"time"

	"github.com/payperplay/hosting/internal/models"
)

func TestCandidateRepo_PutGet(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo(NewMemoryStore())

	_, found, err := repo.Get(ctx, "alice@example.org")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if found {
		t.Fatal("expected not found before Put")
	}

	c := &models.Candidate{Email: "alice@example.org", Name: "Alice", QuotaDollars: 50, AddedAt: time.Now().UTC()}
	if err := repo.Put(ctx, c); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, found, err := repo.Get(ctx, "alice@example.org")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !found {
		t.Fatal("expected found after Put")
	}
	if got.Name != "Alice" || got.QuotaDollars != 50 {
		t.Errorf("Get() = %+v, want Name=Alice QuotaDollars=50", got)
	}
}

func TestCandidateRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo(NewMemoryStore())

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if err := repo.Put(ctx, &models.Candidate{Email: email}); err != nil {
			t.Fatalf("Put(%s) error: %v", email, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d candidates, want 3", len(all))
	}
}

func TestCandidateRepo_DeleteIsSoftInCallerLogic(t *testing.T) {
	// Delete on the repo itself is a hard delete; the API layer's "deactivate" is a soft
	// delete implemented by setting DeactivatedAt and calling Put, never Delete (§3).
	ctx := context.Background()
	repo := NewCandidateRepo(NewMemoryStore())
	_ = repo.Put(ctx, &models.Candidate{Email: "a@x.com"})
	if err := repo.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	_, found, _ := repo.Get(ctx, "a@x.com")
	if found {
		t.Fatal("expected candidate gone after Delete()")
	}
}
