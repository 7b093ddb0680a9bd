package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/slotshare/internal/model"
)

type ListingStore struct {
	db DBTX
}

func NewListingStore(db DBTX) *ListingStore {
	return &ListingStore{db: db}
}

func scanListing(sc scanner, extra ...any) (*model.Listing, error) {
	var l model.Listing
	var serviceID, customName, description, vault, proofURL, feedback, upsellID sql.NullString
	var originalPrice sql.NullInt64
	var expiry sql.NullTime
	var trial int

	dest := []any{
		&l.ID, &l.SellerID, &serviceID, &customName, &l.Title, &description,
		&l.PricePerSlot, &originalPrice, &l.TotalSlots, &l.DurationDays, &expiry,
		&vault, &proofURL, &l.Status, &feedback, &trial, &upsellID, &l.CreatedAt,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	l.ServiceID = stringPtr(serviceID)
	l.CustomServiceName = stringPtr(customName)
	l.Description = stringPtr(description)
	l.OriginalPrice = int64Ptr(originalPrice)
	if expiry.Valid {
		l.ExpiryDate = &expiry.Time
	}
	l.CredentialsVault = stringPtr(vault)
	l.ProofImageURL = stringPtr(proofURL)
	l.AdminFeedback = stringPtr(feedback)
	l.IsTrial = trial != 0
	l.UpsellListingID = stringPtr(upsellID)
	return &l, nil
}

func scanListingSummary(sc scanner) (*model.ListingSummary, error) {
	var available int
	var category sql.NullString
	l, err := scanListing(sc, &available, &category)
	if err != nil {
		return nil, err
	}
	return &model.ListingSummary{Listing: *l, AvailableSlots: available, Category: stringPtr(category)}, nil
}

const listingCols = `id, seller_id, service_id, custom_service_name, title, description,
	price_per_slot, original_price, total_slots, duration_days, expiry_date,
	credentials_vault, proof_image_url, status, admin_feedback, is_trial, upsell_listing_id, created_at`

const listingInsertCols = `id, seller_id, service_id, custom_service_name, title, description,
	price_per_slot, original_price, total_slots, duration_days, expiry_date,
	credentials_vault, proof_image_url, status, admin_feedback, is_trial, upsell_listing_id`

const listingSummarySelect = `SELECT l.id, l.seller_id, l.service_id, l.custom_service_name, l.title, l.description,
	l.price_per_slot, l.original_price, l.total_slots, l.duration_days, l.expiry_date,
	l.credentials_vault, l.proof_image_url, l.status, l.admin_feedback, l.is_trial, l.upsell_listing_id, l.created_at,
	(SELECT COUNT(*) FROM slots s WHERE s.listing_id = l.id AND s.status = 'available'),
	c.category
	FROM listings l LEFT JOIN catalog_services c ON c.id = l.service_id`

// Create inserts the listing with a fresh ID. Status defaults to
// pending_approval when unset.
func (s *ListingStore) Create(l model.Listing) (*model.Listing, error) {
	l.ID = newID()
	if l.Status == "" {
		l.Status = model.ListingPendingApproval
	}

	var expiry sql.NullTime
	if l.ExpiryDate != nil {
		expiry = sql.NullTime{Time: l.ExpiryDate.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO listings (`+listingInsertCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SellerID, nullString(l.ServiceID), nullString(l.CustomServiceName), l.Title, nullString(l.Description),
		l.PricePerSlot, nullInt64(l.OriginalPrice), l.TotalSlots, l.DurationDays, expiry,
		nullString(l.CredentialsVault), nullString(l.ProofImageURL), l.Status, nullString(l.AdminFeedback),
		boolInt(l.IsTrial), nullString(l.UpsellListingID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	return s.GetByID(l.ID)
}

func (s *ListingStore) GetByID(id string) (*model.Listing, error) {
	row := s.db.QueryRow(`SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func (s *ListingStore) GetSummary(id string) (*model.ListingSummary, error) {
	row := s.db.QueryRow(listingSummarySelect+` WHERE l.id = ?`, id)
	l, err := scanListingSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing summary: %w", err)
	}
	return l, nil
}

func (s *ListingStore) listSummaries(where string, args ...any) ([]model.ListingSummary, error) {
	rows, err := s.db.Query(listingSummarySelect+where+` ORDER BY l.created_at DESC, l.rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []model.ListingSummary
	for rows.Next() {
		l, err := scanListingSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// ListActive returns active listings, newest first. An empty category
// matches every listing.
func (s *ListingStore) ListActive(category string) ([]model.ListingSummary, error) {
	if category == "" {
		return s.listSummaries(` WHERE l.status = 'active'`)
	}
	return s.listSummaries(` WHERE l.status = 'active' AND c.category = ?`, category)
}

func (s *ListingStore) ListBySeller(sellerID string) ([]model.ListingSummary, error) {
	return s.listSummaries(` WHERE l.seller_id = ?`, sellerID)
}

func (s *ListingStore) ListAll() ([]model.ListingSummary, error) {
	return s.listSummaries(``)
}

// SetStatus unconditionally sets status and, when non-nil, the admin feedback.
func (s *ListingStore) SetStatus(id, status string, feedback *string) error {
	_, err := s.db.Exec(
		`UPDATE listings SET status = ?, admin_feedback = COALESCE(?, admin_feedback) WHERE id = ?`,
		status, nullString(feedback), id,
	)
	if err != nil {
		return fmt.Errorf("set listing status: %w", err)
	}
	return nil
}

// TransitionStatus moves the listing from one status to another only if it
// is still in the from status. It reports whether a row changed.
func (s *ListingStore) TransitionStatus(id, from, to string) (bool, error) {
	result, err := s.db.Exec(`UPDATE listings SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("transition listing status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountBySeller returns the seller's total and active listing counts.
func (s *ListingStore) CountBySeller(sellerID string) (total, active int, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0)
		FROM listings WHERE seller_id = ?`,
		sellerID,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count seller listings: %w", err)
	}
	return total, active, nil
}

// ExpireDue marks active listings whose expiry date has passed as expired.
func (s *ListingStore) ExpireDue(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE listings SET status = 'expired'
		WHERE status = 'active' AND expiry_date IS NOT NULL AND expiry_date <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("expire listings: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
