package model

import "time"

const (
	SlotAvailable = "available"
	SlotReserved  = "reserved"
	SlotSold      = "sold"
)

type Slot struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	BuyerID    *string   `json:"buyer_id"`
	Status     string    `json:"status"`
	AccessCode *string   `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
