package model

import "time"

const (
	ListingPendingApproval = "pending_approval"
	ListingActive          = "active"
	ListingRejected        = "rejected"
	ListingSoldOut         = "sold_out"
	ListingExpired         = "expired"
)

type Listing struct {
	ID                string     `json:"id"`
	SellerID          string     `json:"seller_id"`
	ServiceID         *string    `json:"service_id"`
	CustomServiceName *string    `json:"custom_service_name"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	PricePerSlot      int64      `json:"price_per_slot"`
	OriginalPrice     *int64     `json:"original_price"`
	TotalSlots        int        `json:"total_slots"`
	DurationDays      int        `json:"duration_days"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	CredentialsVault  *string    `json:"-"`
	ProofImageURL     *string    `json:"proof_image_url"`
	Status            string     `json:"status"`
	AdminFeedback     *string    `json:"admin_feedback"`
	IsTrial           bool       `json:"is_trial"`
	UpsellListingID   *string    `json:"upsell_listing_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ListingSummary is a listing with its live slot availability.
type ListingSummary struct {
	Listing
	AvailableSlots int     `json:"available_slots"`
	Category       *string `json:"category"`
}

type SellerStats struct {
	TotalListings  int   `json:"total_listings"`
	ActiveListings int   `json:"active_listings"`
	TotalSales     int   `json:"total_sales"`
	Earnings       int64 `json:"earnings"`
}
