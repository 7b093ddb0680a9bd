package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/validate"
	"github.com/dukerupert/slotshare/internal/websocket"
)

// Trial listings longer than a week are cut to this many days.
const (
	maxTrialDays     = 7
	clampedTrialDays = 2
)

type ListingFilter struct {
	Category string
	Query    string
}

// SearchListings returns active listings, newest first, optionally limited
// to a catalog category and to titles containing the query.
func (s *Service) SearchListings(ctx context.Context, f ListingFilter) ([]model.ListingSummary, error) {
	listings, err := s.listings.ListActive(strings.TrimSpace(f.Category))
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return listings, nil
	}
	matched := listings[:0]
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Title), q) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

// GetListing returns a listing with its availability. Listings that are not
// active are visible only to their seller and admins.
func (s *Service) GetListing(ctx context.Context, viewer auth.AuthContext, id string) (*model.ListingSummary, error) {
	l, err := s.listings.GetSummary(id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	if l.Status != model.ListingActive && l.Status != model.ListingSoldOut &&
		l.SellerID != viewer.UserID && !viewer.IsAdmin() {
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}
	return l, nil
}

type CreateListingInput struct {
	ServiceID         *string    `json:"service_id" validate:"required_without=CustomServiceName"`
	CustomServiceName *string    `json:"custom_service_name" validate:"omitempty,max=80"`
	Title             string     `json:"title" validate:"required,max=120"`
	Description       *string    `json:"description" validate:"omitempty,max=2000"`
	PricePerSlot      int64      `json:"price_per_slot" validate:"gte=0"`
	OriginalPrice     *int64     `json:"original_price" validate:"omitempty,gte=0"`
	TotalSlots        int        `json:"total_slots" validate:"gte=1,lte=20"`
	DurationDays      int        `json:"duration_days" validate:"gte=1,lte=365"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	CredentialsVault  *string    `json:"credentials_vault" validate:"omitempty,max=2000"`
	ProofImageURL     *string    `json:"proof_image_url" validate:"omitempty,url"`
	IsTrial           bool       `json:"is_trial"`
	UpsellListingID   *string    `json:"upsell_listing_id"`
}

// CreateListing submits a listing for admin approval and creates its slots.
func (s *Service) CreateListing(ctx context.Context, seller auth.AuthContext, in CreateListingInput) (*model.ListingSummary, error) {
	if !seller.CanSell() {
		return nil, ErrForbidden
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.ExpiryDate != nil && !in.ExpiryDate.After(s.now()) {
		return nil, validate.Field("expiry_date", "must be in the future")
	}

	l := model.Listing{
		SellerID:          seller.UserID,
		ServiceID:         in.ServiceID,
		CustomServiceName: in.CustomServiceName,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		PricePerSlot:      in.PricePerSlot,
		OriginalPrice:     in.OriginalPrice,
		TotalSlots:        in.TotalSlots,
		DurationDays:      in.DurationDays,
		ExpiryDate:        in.ExpiryDate,
		CredentialsVault:  in.CredentialsVault,
		ProofImageURL:     in.ProofImageURL,
		Status:            model.ListingPendingApproval,
		IsTrial:           in.IsTrial,
		UpsellListingID:   in.UpsellListingID,
	}
	if l.IsTrial {
		l.PricePerSlot = 0
		if l.DurationDays > maxTrialDays {
			l.DurationDays = clampedTrialDays
		}
	}

	var created *model.Listing
	err := s.withTx(ctx, func(tx *txStores) error {
		if l.ServiceID != nil {
			svc, err := tx.catalog.GetByID(*l.ServiceID)
			if err != nil {
				return err
			}
			if svc == nil || !svc.IsActive {
				return validate.Field("service_id", "unknown service")
			}
		}
		if l.UpsellListingID != nil {
			up, err := tx.listings.GetByID(*l.UpsellListingID)
			if err != nil {
				return err
			}
			if up == nil || up.SellerID != seller.UserID || up.Status != model.ListingActive {
				return validate.Field("upsell_listing_id", "must be one of your active listings")
			}
		}

		var err error
		created, err = tx.listings.Create(l)
		if err != nil {
			return err
		}
		return tx.slots.CreateBatch(created.ID, created.TotalSlots)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing created", "listing_id", created.ID, "seller_id", seller.UserID, "slots", created.TotalSlots)
	s.notify(websocket.NewMessage("listing", "submitted", created.ID, map[string]any{"title": created.Title}).To(seller.UserID))
	return s.listings.GetSummary(created.ID)
}

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type ReviewInput struct {
	ListingID string  `json:"-"`
	Decision  string  `json:"decision" validate:"required,oneof=approve reject"`
	Feedback  *string `json:"feedback" validate:"omitempty,max=1000"`
}

// ReviewListing lets an admin approve a pending listing or reject a pending
// or active one.
func (s *Service) ReviewListing(ctx context.Context, actor auth.AuthContext, in ReviewInput) (*model.Listing, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	var l *model.Listing
	err := s.withTx(ctx, func(tx *txStores) error {
		var err error
		l, err = tx.listings.GetByID(in.ListingID)
		if err != nil {
			return err
		}
		if l == nil {
			return fmt.Errorf("listing %s: %w", in.ListingID, ErrNotFound)
		}

		switch {
		case in.Decision == DecisionApprove && l.Status == model.ListingPendingApproval:
			err = tx.listings.SetStatus(l.ID, model.ListingActive, in.Feedback)
		case in.Decision == DecisionReject &&
			(l.Status == model.ListingPendingApproval || l.Status == model.ListingActive):
			err = tx.listings.SetStatus(l.ID, model.ListingRejected, in.Feedback)
		default:
			return fmt.Errorf("%s %s listing: %w", in.Decision, l.Status, ErrInvalidTransition)
		}
		if err != nil {
			return err
		}
		l, err = tx.listings.GetByID(l.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing reviewed", "listing_id", l.ID, "status", l.Status, "admin_id", actor.UserID)
	action := "approved"
	if l.Status == model.ListingRejected {
		action = "rejected"
	}
	s.notify(websocket.NewMessage("listing", action, l.ID, map[string]any{"title": l.Title}))

	if to := s.emailOf(l.SellerID); to != "" {
		if err := s.mailer.SendListingReviewed(ctx, to, l.Title, l.Status, deref(l.AdminFeedback)); err != nil {
			s.logger.Error("send listing review email", "listing_id", l.ID, "error", err)
		}
	}
	return l, nil
}

// ExpireListings moves active listings past their expiry date to expired.
func (s *Service) ExpireListings(ctx context.Context) (int64, error) {
	n, err := s.listings.ExpireDue(s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("listings expired", "count", n)
	}
	return n, nil
}

func (s *Service) SellerListings(ctx context.Context, seller auth.AuthContext) ([]model.ListingSummary, error) {
	if !seller.CanSell() {
		return nil, ErrForbidden
	}
	return s.listings.ListBySeller(seller.UserID)
}

// SellerStats summarizes a seller's listings and completed sales.
func (s *Service) SellerStats(ctx context.Context, seller auth.AuthContext) (*model.SellerStats, error) {
	if !seller.CanSell() {
		return nil, ErrForbidden
	}
	total, active, err := s.listings.CountBySeller(seller.UserID)
	if err != nil {
		return nil, err
	}
	sales, earnings, err := s.ledger.SalesSummary(seller.UserID)
	if err != nil {
		return nil, err
	}
	return &model.SellerStats{
		TotalListings:  total,
		ActiveListings: active,
		TotalSales:     sales,
		Earnings:       earnings,
	}, nil
}

func (s *Service) AllListings(ctx context.Context, actor auth.AuthContext) ([]model.ListingSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.listings.ListAll()
}
