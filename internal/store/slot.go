package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type SlotStore struct {
	db DBTX
}

func NewSlotStore(db DBTX) *SlotStore {
	return &SlotStore{db: db}
}

func scanSlot(sc scanner) (*model.Slot, error) {
	var sl model.Slot
	var buyerID, accessCode sql.NullString

	err := sc.Scan(&sl.ID, &sl.ListingID, &buyerID, &sl.Status, &accessCode, &sl.CreatedAt)
	if err != nil {
		return nil, err
	}

	sl.BuyerID = stringPtr(buyerID)
	sl.AccessCode = stringPtr(accessCode)
	return &sl, nil
}

const slotCols = `id, listing_id, buyer_id, status, access_code, created_at`

// CreateBatch inserts n available slots for the listing.
func (s *SlotStore) CreateBatch(listingID string, n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.db.Exec(
			`INSERT INTO slots (id, listing_id, status) VALUES (?, ?, 'available')`,
			newID(), listingID,
		); err != nil {
			return fmt.Errorf("insert slot %d: %w", i, err)
		}
	}
	return nil
}

func (s *SlotStore) GetByID(id string) (*model.Slot, error) {
	row := s.db.QueryRow(`SELECT `+slotCols+` FROM slots WHERE id = ?`, id)
	sl, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

// FirstAvailable returns any available slot of the listing, or nil if none.
func (s *SlotStore) FirstAvailable(listingID string) (*model.Slot, error) {
	row := s.db.QueryRow(
		`SELECT `+slotCols+` FROM slots WHERE listing_id = ? AND status = 'available' LIMIT 1`,
		listingID,
	)
	sl, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find available slot: %w", err)
	}
	return sl, nil
}

// Claim reserves the slot for the buyer in a single conditional write. It
// returns false when the slot was no longer available at write time.
func (s *SlotStore) Claim(slotID, buyerID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE slots SET status = 'reserved', buyer_id = ? WHERE id = ? AND status = 'available'`,
		buyerID, slotID,
	)
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SlotStore) MarkSold(slotID string) error {
	_, err := s.db.Exec(`UPDATE slots SET status = 'sold' WHERE id = ?`, slotID)
	if err != nil {
		return fmt.Errorf("mark slot sold: %w", err)
	}
	return nil
}

// Release returns the slot to the pool and clears the buyer.
func (s *SlotStore) Release(slotID string) error {
	_, err := s.db.Exec(`UPDATE slots SET status = 'available', buyer_id = NULL WHERE id = ?`, slotID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func (s *SlotStore) CountAvailable(listingID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM slots WHERE listing_id = ? AND status = 'available'`,
		listingID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count available slots: %w", err)
	}
	return n, nil
}

func (s *SlotStore) ListByListing(listingID string) ([]model.Slot, error) {
	rows, err := s.db.Query(
		`SELECT `+slotCols+` FROM slots WHERE listing_id = ? ORDER BY created_at ASC, rowid ASC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *sl)
	}
	return slots, rows.Err()
}
