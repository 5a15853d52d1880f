package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/governance-console/internal/persistence"
)

func TestActaRepositorySaveReplacesChildren(t *testing.T) {
	pool := newTestPool(t)
	sessions := NewSessionRepository(pool)
	actas := NewActaRepository(pool)
	ctx := context.Background()

	if _, err := sessions.CreateSession(ctx, sampleSession("ses-1")); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	first := persistence.Acta{
		ID:        "acta-1",
		SessionID: "ses-1",
		Content:   "Borrador inicial",
		CreatedBy: "user-1",
		Resolutions: []persistence.Resolution{
			{ID: "res-1", AgendaItemID: "ses-1-i2", Summary: "Aprobado", VotesFor: 3},
		},
		Justifications: []persistence.Justification{
			{ID: "jus-1", Informer: "Ana", Absentee: "Beto", Reason: "viaje"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := actas.SaveActa(ctx, first)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if len(saved.Resolutions) != 1 || len(saved.Justifications) != 1 {
		t.Fatalf("expected children persisted, got %+v", saved)
	}

	second := first
	second.ID = "acta-2"
	second.Content = "Borrador revisado"
	second.Resolutions = []persistence.Resolution{
		{ID: "res-2", AgendaItemID: "ses-1-i2", Summary: "Aprobado con cambios", VotesFor: 2, VotesAgainst: 1},
	}
	second.Justifications = nil
	second.UpdatedAt = now.Add(time.Hour)

	resaved, err := actas.SaveActa(ctx, second)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if resaved.ID != "acta-1" {
		t.Fatalf("expected the existing acta identity to be reused, got %q", resaved.ID)
	}
	if resaved.Content != "Borrador revisado" {
		t.Fatalf("unexpected content %q", resaved.Content)
	}
	if len(resaved.Resolutions) != 1 || resaved.Resolutions[0].Summary != "Aprobado con cambios" {
		t.Fatalf("expected resolutions replaced, got %+v", resaved.Resolutions)
	}
	if len(resaved.Justifications) != 0 {
		t.Fatalf("expected justifications replaced, got %+v", resaved.Justifications)
	}
}

func TestActaRepositoryGetMissing(t *testing.T) {
	pool := newTestPool(t)
	actas := NewActaRepository(pool)

	if _, err := actas.GetActaBySession(context.Background(), "ses-absent"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
