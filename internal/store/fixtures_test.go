package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/slotshare/internal/database"
	"github.com/dukerupert/slotshare/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createProfile inserts a user and its profile with the given role.
func createProfile(t *testing.T, db *sql.DB, email, role string) *model.Profile {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := NewProfileStore(db).Create(u.ID, email, role)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

// createListing inserts an active listing with n available slots.
func createListing(t *testing.T, db *sql.DB, sellerID, title string, price int64, n int) *model.Listing {
	t.Helper()
	l, err := NewListingStore(db).Create(model.Listing{
		SellerID:     sellerID,
		Title:        title,
		PricePerSlot: price,
		TotalSlots:   n,
		DurationDays: 30,
		Status:       model.ListingActive,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := NewSlotStore(db).CreateBatch(l.ID, n); err != nil {
		t.Fatalf("create slots: %v", err)
	}
	return l
}
