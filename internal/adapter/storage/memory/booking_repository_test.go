package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
)

func TestBookingRepository_VersionedSave(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	b := &domain.Booking{ID: "booking-1", Status: domain.BookingStatusScheduled}

	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Version != 1 {
		t.Fatalf("expected version 1, got %d", b.Version)
	}

	first, _ := repo.FindByID(ctx, "booking-1")
	second, _ := repo.FindByID(ctx, "booking-1")

	first.Notes = "first writer"
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("expected version 2, got %d", first.Version)
	}

	second.Notes = "stale writer"
	if err := repo.Save(ctx, second); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, "booking-1")
	if stored.Notes != "first writer" {
		t.Errorf("expected first writer to win, got %q", stored.Notes)
	}
}

func TestBookingRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	_ = repo.Create(ctx, &domain.Booking{ID: "booking-1", Notes: "original"})

	b, _ := repo.FindByID(ctx, "booking-1")
	b.Notes = "changed without save"

	stored, _ := repo.FindByID(ctx, "booking-1")
	if stored.Notes != "original" {
		t.Errorf("expected stored copy to be isolated, got %q", stored.Notes)
	}
}

func TestBookingRepository_Missing(t *testing.T) {
	b, err := NewBookingRepository().FindByID(context.Background(), "nope")
	if err != nil || b != nil {
		t.Errorf("expected nil, nil; got %v, %v", b, err)
	}
}
