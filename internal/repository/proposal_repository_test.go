package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sympep-tracker/internal/database/dbtest"
	"sympep-tracker/internal/models"

	"github.com/google/uuid"
)

func newProposal(title string) *models.Proposal {
	return &models.Proposal{
		ID:        uuid.New(),
		Title:     title,
		Type:      models.ProposalTypeInformational,
		Status:    models.ProposalStatusDraft,
		Created:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Version:   1,
		Champions: []models.Champion{{Handle: "alice"}},
	}
}

func TestNextNumber(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		var got int64
		err := repo.Transaction(ctx, func(tx *Repository) error {
			n, err := tx.NextNumber(ctx)
			got = n
			return err
		})
		if err != nil {
			t.Fatalf("NextNumber failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	// A rolled back transaction hands the number out again
	rollback := errors.New("rollback")
	err := repo.Transaction(ctx, func(tx *Repository) error {
		if _, err := tx.NextNumber(ctx); err != nil {
			return err
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	err = repo.Transaction(ctx, func(tx *Repository) error {
		n, err := tx.NextNumber(ctx)
		if err == nil && n != 4 {
			t.Errorf("expected 4 after rollback, got %d", n)
		}
		return err
	})
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
}

func TestNextNumberSkipsImportedNumbers(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	p := newProposal("Imported")
	number := int64(40)
	p.Number = &number
	if err := repo.CreateProposal(ctx, p); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	err := repo.Transaction(ctx, func(tx *Repository) error {
		n, err := tx.NextNumber(ctx)
		if err == nil && n != 41 {
			t.Errorf("expected 41, got %d", n)
		}
		return err
	})
	if err != nil {
		t.Fatalf("NextNumber failed: %v", err)
	}
}

func TestUpdateProposalVersionConflict(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	p := newProposal("Versioned")
	if err := repo.CreateProposal(ctx, p); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	stale, err := repo.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}

	if err := repo.UpdateProposal(ctx, p, map[string]interface{}{"title": "First write"}); err != nil {
		t.Fatalf("UpdateProposal failed: %v", err)
	}
	if p.Version != 2 {
		t.Errorf("expected version 2, got %d", p.Version)
	}

	err = repo.UpdateProposal(ctx, stale, map[string]interface{}{"title": "Lost write"})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	loaded, err := repo.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal failed: %v", err)
	}
	if loaded.Title != "First write" {
		t.Errorf("expected First write, got %q", loaded.Title)
	}
}

func TestRegistryNotifications(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		err := repo.CreateRegistryNotification(ctx, &models.RegistryNotification{
			ProposalID: uuid.New(),
			Number:     i,
		})
		if err != nil {
			t.Fatalf("CreateRegistryNotification failed: %v", err)
		}
	}

	pending, err := repo.PendingRegistryNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("PendingRegistryNotifications failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	if err := repo.MarkNotificationsFailed(ctx, []uint{pending[0].ID}, "disk full"); err != nil {
		t.Fatalf("MarkNotificationsFailed failed: %v", err)
	}
	if err := repo.MarkNotificationsPublished(ctx, []uint{pending[1].ID}, time.Now()); err != nil {
		t.Fatalf("MarkNotificationsPublished failed: %v", err)
	}

	pending, err = repo.PendingRegistryNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("PendingRegistryNotifications failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending after publishing one, got %d", len(pending))
	}
	if pending[0].Attempts != 1 || pending[0].LastError != "disk full" {
		t.Errorf("expected failed attempt to be recorded, got %d %q", pending[0].Attempts, pending[0].LastError)
	}
}
