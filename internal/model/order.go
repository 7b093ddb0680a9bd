package model

import (
	"encoding/json"
	"time"
)

const (
	OrderPendingProof = "pending_proof"
	OrderVerification = "verification"
	OrderCompleted    = "completed"
	OrderFailed       = "failed"
	OrderCancelled    = "cancelled"
)

type Order struct {
	ID                string          `json:"id"`
	BuyerID           *string         `json:"buyer_id"`
	SlotID            *string         `json:"slot_id"`
	Amount            int64           `json:"amount"`
	Status            string          `json:"status"`
	PaymentMethodType *string         `json:"payment_method_type"`
	PaymentProofURL   *string         `json:"payment_proof_url"`
	TransactionRef    *string         `json:"transaction_ref"`
	ContactInfo       json.RawMessage `json:"contact_info"`
	IdempotencyKey    *string         `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Terminal reports whether no further transitions are allowed.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderCompleted, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

// OrderDetail is an order joined with its slot and listing, as shown on
// buyer, seller and admin order pages.
type OrderDetail struct {
	Order
	SlotStatus   *string `json:"slot_status"`
	ListingID    *string `json:"listing_id"`
	ListingTitle *string `json:"listing_title"`
	SellerID     *string `json:"seller_id"`
}
