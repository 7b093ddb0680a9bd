package marketplace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/validate"
	"github.com/dukerupert/slotshare/internal/websocket"
)

type ReserveRequest struct {
	ListingID         string          `json:"-"`
	ContactInfo       json.RawMessage `json:"contact_info" validate:"required,jsonobject"`
	PaymentMethodType string          `json:"payment_method_type" validate:"omitempty,oneof=crypto bank wallet other"`
	// IdempotencyKey makes retries of the same request return the first order.
	IdempotencyKey string `json:"-" validate:"omitempty,max=128"`
}

// Reserve claims one available slot of an active listing for the buyer and
// opens an order for it. Trial listings complete immediately; every other
// order waits for payment proof. A listing left with no available slots is
// marked sold out.
func (s *Service) Reserve(ctx context.Context, buyer auth.AuthContext, req ReserveRequest) (*model.Order, error) {
	if buyer.UserID == "" {
		return nil, ErrForbidden
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var (
		order    *model.Order
		listing  *model.Listing
		replayed bool
		soldOut  bool
	)
	err := s.withTx(ctx, func(tx *txStores) error {
		var err error
		listing, err = tx.listings.GetByID(req.ListingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return fmt.Errorf("listing %s: %w", req.ListingID, ErrNotFound)
		}

		if req.IdempotencyKey != "" {
			existing, err := tx.orders.GetByIdempotencyKey(buyer.UserID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				d, err := tx.orders.GetDetail(existing.ID)
				if err != nil {
					return err
				}
				if d == nil || deref(d.ListingID) != listing.ID {
					return fmt.Errorf("reserve %s: %w", listing.ID, ErrKeyReused)
				}
				order, replayed = existing, true
				return nil
			}
		}

		switch listing.Status {
		case model.ListingActive:
		case model.ListingSoldOut:
			return ErrSlotUnavailable
		default:
			return ErrListingNotActive
		}
		if listing.SellerID == buyer.UserID {
			return fmt.Errorf("reserve own listing: %w", ErrForbidden)
		}

		slot, err := tx.slots.FirstAvailable(listing.ID)
		if err != nil {
			return err
		}
		if slot == nil {
			return ErrSlotUnavailable
		}
		claimed, err := tx.slots.Claim(slot.ID, buyer.UserID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrSlotUnavailable
		}

		status := model.OrderPendingProof
		if listing.IsTrial {
			status = model.OrderCompleted
		}
		o := model.Order{
			BuyerID:     &buyer.UserID,
			SlotID:      &slot.ID,
			Amount:      listing.PricePerSlot,
			Status:      status,
			ContactInfo: req.ContactInfo,
		}
		if req.PaymentMethodType != "" {
			o.PaymentMethodType = &req.PaymentMethodType
		}
		if req.IdempotencyKey != "" {
			o.IdempotencyKey = &req.IdempotencyKey
		}
		order, err = tx.orders.Create(o)
		if err != nil {
			return err
		}

		if listing.IsTrial {
			if err := tx.slots.MarkSold(slot.ID); err != nil {
				return err
			}
		}

		remaining, err := tx.slots.CountAvailable(listing.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			soldOut, err = tx.listings.TransitionStatus(listing.ID, model.ListingActive, model.ListingSoldOut)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		return order, nil
	}

	s.logger.Info("slot reserved",
		"order_id", order.ID,
		"listing_id", listing.ID,
		"buyer_id", buyer.UserID,
		"status", order.Status,
	)
	s.notify(websocket.NewMessage("order", "created", order.ID, map[string]any{
		"listing_id": listing.ID,
		"status":     order.Status,
	}).To(buyer.UserID, listing.SellerID))
	if soldOut {
		s.notify(websocket.NewMessage("listing", "sold_out", listing.ID, nil))
	}
	return order, nil
}
