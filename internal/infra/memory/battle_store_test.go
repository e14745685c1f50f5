package memory

import (
	"testing"
	"time"

	"quiz-battle-service/internal/app"
)

func TestBattleStoreRejectsDuplicateCodes(t *testing.T) {
	store := NewBattleStore()
	now := time.Now()

	if err := store.Insert(app.NewWaitingBattle("b1", "ABC123", "geo", false, "u1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(app.NewWaitingBattle("b2", "ABC123", "geo", false, "u2", now)); err != ErrCodeTaken {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestBattleStoreLookupAndRemove(t *testing.T) {
	store := NewBattleStore()
	now := time.Now()

	battle := app.NewWaitingBattle("b1", "ABC123", "geo", false, "u1", now)
	if err := store.Insert(battle); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if got, ok := store.Get("b1"); !ok || got.Code() != "ABC123" {
		t.Fatalf("get by id failed")
	}
	if got, ok := store.GetByCode("ABC123"); !ok || got.ID() != "b1" {
		t.Fatalf("get by code failed")
	}

	store.Remove("b1")
	if _, ok := store.Get("b1"); ok {
		t.Fatalf("removed battle still present by id")
	}
	if _, ok := store.GetByCode("ABC123"); ok {
		t.Fatalf("removed battle still present by code")
	}
	// The code is free for reuse after removal.
	if err := store.Insert(app.NewWaitingBattle("b2", "ABC123", "geo", false, "u2", now)); err != nil {
		t.Fatalf("reinsert after remove: %v", err)
	}
}

func TestFindWaitingPublicSkipsOwnAndPrivate(t *testing.T) {
	store := NewBattleStore()
	now := time.Now()

	if err := store.Insert(app.NewWaitingBattle("b1", "AAAAAA", "geo", false, "u1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(app.NewWaitingBattle("b2", "BBBBBB", "geo", true, "u1", now)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, ok := store.FindWaitingPublic("geo", "u1"); ok {
		t.Fatalf("creator should never match their own battle")
	}
	if _, ok := store.FindWaitingPublic("history", "u2"); ok {
		t.Fatalf("subject mismatch should not match")
	}
	battle, ok := store.FindWaitingPublic("geo", "u2")
	if !ok || battle.ID() != "b2" {
		t.Fatalf("expected the public battle, got ok=%v", ok)
	}
}
