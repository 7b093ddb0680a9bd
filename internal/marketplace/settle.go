package marketplace

import (
	"context"
	"fmt"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/validate"
	"github.com/dukerupert/slotshare/internal/websocket"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type SettleRequest struct {
	OrderID string `json:"-"`
	Action  string `json:"action" validate:"required,oneof=approve reject"`
}

// Settle applies an admin's verdict on a buyer's payment. Approval completes
// the order, sells the slot and credits the seller once; rejection fails the
// order and returns the slot to the pool. Repeating a verdict that already
// applied returns the order unchanged.
func (s *Service) Settle(ctx context.Context, actor auth.AuthContext, req SettleRequest) (*model.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var (
		order   *model.Order
		detail  *model.OrderDetail
		changed bool
	)
	err := s.withTx(ctx, func(tx *txStores) error {
		var err error
		detail, err = tx.orders.GetDetail(req.OrderID)
		if err != nil {
			return err
		}
		if detail == nil {
			return fmt.Errorf("order %s: %w", req.OrderID, ErrNotFound)
		}

		switch req.Action {
		case ActionApprove:
			changed, err = approve(tx, detail)
		case ActionReject:
			changed, err = reject(tx, detail)
		}
		if err != nil {
			return err
		}

		order, err = tx.orders.GetByID(detail.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}

	s.logger.Info("order settled",
		"order_id", order.ID,
		"action", req.Action,
		"status", order.Status,
		"admin_id", actor.UserID,
	)

	buyerID := deref(order.BuyerID)
	s.notify(websocket.NewMessage("order", order.Status, order.ID, map[string]any{
		"listing_id": deref(detail.ListingID),
	}).To(buyerID, deref(detail.SellerID)))
	if req.Action == ActionReject {
		s.notify(websocket.NewMessage("listing", "slot_released", deref(detail.ListingID), nil))
	}

	if to := s.emailOf(buyerID); to != "" {
		if err := s.mailer.SendOrderUpdate(ctx, to, order.ID, deref(detail.ListingTitle), order.Status); err != nil {
			s.logger.Error("send order update email", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func approve(tx *txStores, d *model.OrderDetail) (bool, error) {
	switch d.Status {
	case model.OrderCompleted:
		return false, nil
	case model.OrderFailed, model.OrderCancelled:
		return false, fmt.Errorf("approve %s order: %w", d.Status, ErrInvalidTransition)
	}
	if d.SellerID == nil {
		return false, fmt.Errorf("order %s has no listing", d.ID)
	}

	if err := tx.orders.UpdateStatus(d.ID, model.OrderCompleted); err != nil {
		return false, err
	}
	if d.SlotID != nil {
		if err := tx.slots.MarkSold(*d.SlotID); err != nil {
			return false, err
		}
	}

	entry, err := tx.ledger.Record(*d.SellerID, &d.ID, d.Amount, model.EntryCredit, "Sale of "+deref(d.ListingTitle))
	if err != nil {
		return false, err
	}
	if entry != nil {
		if err := tx.profiles.AddBalance(*d.SellerID, d.Amount); err != nil {
			return false, err
		}
	}
	return true, nil
}

func reject(tx *txStores, d *model.OrderDetail) (bool, error) {
	switch d.Status {
	case model.OrderFailed:
		return false, nil
	case model.OrderCompleted, model.OrderCancelled:
		return false, fmt.Errorf("reject %s order: %w", d.Status, ErrInvalidTransition)
	}

	if err := tx.orders.UpdateStatus(d.ID, model.OrderFailed); err != nil {
		return false, err
	}
	if err := releaseSlot(tx, d); err != nil {
		return false, err
	}
	return true, nil
}

// releaseSlot frees the order's slot and reopens its listing if the slot
// was the reason it sold out.
func releaseSlot(tx *txStores, d *model.OrderDetail) error {
	if d.SlotID == nil {
		return nil
	}
	if err := tx.slots.Release(*d.SlotID); err != nil {
		return err
	}
	if d.ListingID != nil {
		if _, err := tx.listings.TransitionStatus(*d.ListingID, model.ListingSoldOut, model.ListingActive); err != nil {
			return err
		}
	}
	return nil
}
