package store

import (
	"testing"

	"github.com/dukerupert/slotshare/internal/model"
)

func TestSlotCreateBatch(t *testing.T) {
	db := setupTestDB(t)
	seller := createProfile(t, db, "seller@example.com", model.RoleSeller)
	l := createListing(t, db, seller.ID, "Netflix", 500, 4)

	slots, err := NewSlotStore(db).ListByListing(l.ID)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("len = %d, want 4", len(slots))
	}
	for _, sl := range slots {
		if sl.Status != model.SlotAvailable {
			t.Errorf("status = %q, want %q", sl.Status, model.SlotAvailable)
		}
		if sl.BuyerID != nil {
			t.Errorf("buyer_id = %q, want nil", *sl.BuyerID)
		}
	}
}

func TestSlotClaimIsConditional(t *testing.T) {
	db := setupTestDB(t)
	seller := createProfile(t, db, "seller@example.com", model.RoleSeller)
	alice := createProfile(t, db, "alice@example.com", model.RoleBuyer)
	bob := createProfile(t, db, "bob@example.com", model.RoleBuyer)
	l := createListing(t, db, seller.ID, "Netflix", 500, 1)
	ss := NewSlotStore(db)

	slot, err := ss.FirstAvailable(l.ID)
	if err != nil || slot == nil {
		t.Fatalf("first available: slot=%v err=%v", slot, err)
	}

	ok, err := ss.Claim(slot.ID, alice.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to win")
	}

	ok, err = ss.Claim(slot.ID, bob.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Fatal("expected second claim to lose")
	}

	got, _ := ss.GetByID(slot.ID)
	if got.Status != model.SlotReserved {
		t.Errorf("status = %q, want %q", got.Status, model.SlotReserved)
	}
	if got.BuyerID == nil || *got.BuyerID != alice.ID {
		t.Errorf("buyer_id = %v, want %q", got.BuyerID, alice.ID)
	}

	next, err := ss.FirstAvailable(l.ID)
	if err != nil {
		t.Fatalf("first available after claim: %v", err)
	}
	if next != nil {
		t.Error("expected no available slot")
	}
}

func TestSlotReleaseAndSell(t *testing.T) {
	db := setupTestDB(t)
	seller := createProfile(t, db, "seller@example.com", model.RoleSeller)
	buyer := createProfile(t, db, "buyer@example.com", model.RoleBuyer)
	l := createListing(t, db, seller.ID, "Netflix", 500, 2)
	ss := NewSlotStore(db)

	slot, _ := ss.FirstAvailable(l.ID)
	ss.Claim(slot.ID, buyer.ID)

	if n, _ := ss.CountAvailable(l.ID); n != 1 {
		t.Errorf("available = %d, want 1", n)
	}

	if err := ss.Release(slot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := ss.GetByID(slot.ID)
	if got.Status != model.SlotAvailable || got.BuyerID != nil {
		t.Errorf("after release: status=%q buyer=%v, want available/nil", got.Status, got.BuyerID)
	}

	ss.Claim(slot.ID, buyer.ID)
	if err := ss.MarkSold(slot.ID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	got, _ = ss.GetByID(slot.ID)
	if got.Status != model.SlotSold {
		t.Errorf("status = %q, want %q", got.Status, model.SlotSold)
	}
}

func TestSlotBuyerInvariant(t *testing.T) {
	db := setupTestDB(t)
	seller := createProfile(t, db, "seller@example.com", model.RoleSeller)
	l := createListing(t, db, seller.ID, "Netflix", 500, 1)
	slot, _ := NewSlotStore(db).FirstAvailable(l.ID)

	// A reserved slot without a buyer violates the table check.
	if _, err := db.Exec(`UPDATE slots SET status = 'reserved' WHERE id = ?`, slot.ID); err == nil {
		t.Fatal("expected check constraint error, got nil")
	}
}
