package store

import (
	"testing"

	"github.com/dukerupert/slotshare/internal/model"
)

func TestProfileCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	p := createProfile(t, db, "seller@example.com", model.RoleSeller)

	if p.Role != model.RoleSeller {
		t.Errorf("role = %q, want %q", p.Role, model.RoleSeller)
	}
	if p.Balance != 0 {
		t.Errorf("balance = %d, want 0", p.Balance)
	}
	if p.FullName == nil || *p.FullName != "seller@example.com" {
		t.Errorf("full_name = %v, want %q", p.FullName, "seller@example.com")
	}
}

func TestProfileRejectsUnknownRole(t *testing.T) {
	db := setupTestDB(t)
	u, _ := NewUserStore(db).Create("x@example.com", "hash")

	if _, err := NewProfileStore(db).Create(u.ID, "X", "superuser"); err == nil {
		t.Fatal("expected error for invalid role, got nil")
	}
}

func TestProfileGetRole(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProfileStore(db)
	p := createProfile(t, db, "admin@example.com", model.RoleAdmin)

	role, err := ps.GetRole(p.ID)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", role, model.RoleAdmin)
	}

	role, err = ps.GetRole("missing")
	if err != nil {
		t.Fatalf("get role missing: %v", err)
	}
	if role != "" {
		t.Errorf("role = %q, want empty for missing profile", role)
	}
}

func TestProfileUpdateDetails(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProfileStore(db)
	p := createProfile(t, db, "buyer@example.com", model.RoleBuyer)

	username, whatsapp := "bob", "+100200300"
	updated, err := ps.UpdateDetails(p.ID, &username, nil, &whatsapp)
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if updated.Username == nil || *updated.Username != "bob" {
		t.Errorf("username = %v, want %q", updated.Username, "bob")
	}
	if updated.FullName != nil {
		t.Errorf("full_name = %v, want nil", *updated.FullName)
	}
	if updated.WhatsApp == nil || *updated.WhatsApp != whatsapp {
		t.Errorf("whatsapp = %v, want %q", updated.WhatsApp, whatsapp)
	}
}

func TestProfileAddBalance(t *testing.T) {
	db := setupTestDB(t)
	ps := NewProfileStore(db)
	p := createProfile(t, db, "seller@example.com", model.RoleSeller)

	if err := ps.AddBalance(p.ID, 500); err != nil {
		t.Fatalf("add balance: %v", err)
	}
	if err := ps.AddBalance(p.ID, -200); err != nil {
		t.Fatalf("subtract balance: %v", err)
	}
	got, _ := ps.GetByID(p.ID)
	if got.Balance != 300 {
		t.Errorf("balance = %d, want 300", got.Balance)
	}

	if err := ps.AddBalance("missing", 1); err == nil {
		t.Error("expected error for missing profile")
	}
}
