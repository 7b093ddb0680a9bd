package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/slotshare/internal/model"
)

type OrderStore struct {
	db DBTX
}

func NewOrderStore(db DBTX) *OrderStore {
	return &OrderStore{db: db}
}

func scanOrder(sc scanner, extra ...any) (*model.Order, error) {
	var o model.Order
	var buyerID, slotID, methodType, proofURL, txRef, contact, idemKey sql.NullString

	dest := []any{
		&o.ID, &buyerID, &slotID, &o.Amount, &o.Status, &methodType, &proofURL,
		&txRef, &contact, &idemKey, &o.CreatedAt, &o.UpdatedAt,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	o.BuyerID = stringPtr(buyerID)
	o.SlotID = stringPtr(slotID)
	o.PaymentMethodType = stringPtr(methodType)
	o.PaymentProofURL = stringPtr(proofURL)
	o.TransactionRef = stringPtr(txRef)
	if contact.Valid {
		o.ContactInfo = []byte(contact.String)
	}
	o.IdempotencyKey = stringPtr(idemKey)
	return &o, nil
}

const orderCols = `id, buyer_id, slot_id, amount, status, payment_method_type, payment_proof_url,
	transaction_ref, contact_info, idempotency_key, created_at, updated_at`

const orderDetailSelect = `SELECT o.id, o.buyer_id, o.slot_id, o.amount, o.status, o.payment_method_type, o.payment_proof_url,
	o.transaction_ref, o.contact_info, o.idempotency_key, o.created_at, o.updated_at,
	s.status, l.id, l.title, l.seller_id
	FROM orders o
	LEFT JOIN slots s ON s.id = o.slot_id
	LEFT JOIN listings l ON l.id = s.listing_id`

func (s *OrderStore) Create(o model.Order) (*model.Order, error) {
	o.ID = newID()
	if o.Status == "" {
		o.Status = model.OrderPendingProof
	}

	_, err := s.db.Exec(
		`INSERT INTO orders (id, buyer_id, slot_id, amount, status, payment_method_type, contact_info, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, nullString(o.BuyerID), nullString(o.SlotID), o.Amount, o.Status,
		nullString(o.PaymentMethodType), nullJSON(o.ContactInfo), nullString(o.IdempotencyKey),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return s.GetByID(o.ID)
}

func (s *OrderStore) GetByID(id string) (*model.Order, error) {
	row := s.db.QueryRow(`SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetByIdempotencyKey returns the buyer's order created with key, or nil.
func (s *OrderStore) GetByIdempotencyKey(buyerID, key string) (*model.Order, error) {
	row := s.db.QueryRow(
		`SELECT `+orderCols+` FROM orders WHERE buyer_id = ? AND idempotency_key = ?`,
		buyerID, key,
	)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by idempotency key: %w", err)
	}
	return o, nil
}

func (s *OrderStore) UpdateStatus(id, status string) error {
	_, err := s.db.Exec(
		`UPDATE orders SET status = ?, updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now') WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// AttachProof records the payment proof and moves the order to verification.
func (s *OrderStore) AttachProof(id, proofURL string, txRef *string) error {
	_, err := s.db.Exec(
		`UPDATE orders SET payment_proof_url = ?, transaction_ref = COALESCE(?, transaction_ref),
		status = 'verification', updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now') WHERE id = ?`,
		proofURL, nullString(txRef), id,
	)
	if err != nil {
		return fmt.Errorf("attach payment proof: %w", err)
	}
	return nil
}

func (s *OrderStore) CountBySlot(slotID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE slot_id = ?`, slotID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders by slot: %w", err)
	}
	return n, nil
}

func (s *OrderStore) GetDetail(id string) (*model.OrderDetail, error) {
	row := s.db.QueryRow(orderDetailSelect+` WHERE o.id = ?`, id)
	d, err := scanOrderDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order detail: %w", err)
	}
	return d, nil
}

func scanOrderDetail(sc scanner) (*model.OrderDetail, error) {
	var slotStatus, listingID, title, sellerID sql.NullString
	o, err := scanOrder(sc, &slotStatus, &listingID, &title, &sellerID)
	if err != nil {
		return nil, err
	}
	return &model.OrderDetail{
		Order:        *o,
		SlotStatus:   stringPtr(slotStatus),
		ListingID:    stringPtr(listingID),
		ListingTitle: stringPtr(title),
		SellerID:     stringPtr(sellerID),
	}, nil
}

func (s *OrderStore) listDetails(where string, args ...any) ([]model.OrderDetail, error) {
	rows, err := s.db.Query(orderDetailSelect+where+` ORDER BY o.created_at DESC, o.rowid DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.OrderDetail
	for rows.Next() {
		d, err := scanOrderDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *d)
	}
	return orders, rows.Err()
}

func (s *OrderStore) ListByBuyer(buyerID string) ([]model.OrderDetail, error) {
	return s.listDetails(` WHERE o.buyer_id = ?`, buyerID)
}

// ListBySeller returns orders placed against any of the seller's listings.
func (s *OrderStore) ListBySeller(sellerID string) ([]model.OrderDetail, error) {
	return s.listDetails(` WHERE l.seller_id = ?`, sellerID)
}

func (s *OrderStore) ListAll() ([]model.OrderDetail, error) {
	return s.listDetails(``)
}
