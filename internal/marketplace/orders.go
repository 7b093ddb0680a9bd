package marketplace

import (
	"context"
	"fmt"
	"io"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/proof"
	"github.com/dukerupert/slotshare/internal/validate"
	"github.com/dukerupert/slotshare/internal/websocket"
)

// ListOrders returns the caller's purchases, or with asSeller the orders
// placed on the caller's listings.
func (s *Service) ListOrders(ctx context.Context, actor auth.AuthContext, asSeller bool) ([]model.OrderDetail, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	if asSeller {
		if !actor.CanSell() {
			return nil, ErrForbidden
		}
		return s.orders.ListBySeller(actor.UserID)
	}
	return s.orders.ListByBuyer(actor.UserID)
}

func (s *Service) AllOrders(ctx context.Context, actor auth.AuthContext) ([]model.OrderDetail, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.orders.ListAll()
}

type ProofInput struct {
	OrderID        string  `json:"-"`
	TransactionRef *string `json:"transaction_ref" validate:"omitempty,max=200"`
}

// SubmitProof uploads the buyer's payment proof and hands the order to an
// admin for verification. The upload is removed again if the order can no
// longer accept it.
func (s *Service) SubmitProof(ctx context.Context, buyer auth.AuthContext, in ProofInput, image io.Reader) (*model.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if s.proofs == nil {
		return nil, proof.ErrNotConfigured
	}

	d, err := s.orders.GetDetail(in.OrderID)
	if err != nil {
		return nil, err
	}
	if err := checkProofable(d, buyer, in.OrderID); err != nil {
		return nil, err
	}

	obj, err := s.proofs.Put(ctx, in.OrderID, image)
	if err != nil {
		return nil, err
	}

	var order *model.Order
	err = s.withTx(ctx, func(tx *txStores) error {
		d, err := tx.orders.GetDetail(in.OrderID)
		if err != nil {
			return err
		}
		if err := checkProofable(d, buyer, in.OrderID); err != nil {
			return err
		}
		if err := tx.orders.AttachProof(d.ID, obj.URL, in.TransactionRef); err != nil {
			return err
		}
		order, err = tx.orders.GetByID(d.ID)
		return err
	})
	if err != nil {
		if derr := s.proofs.Delete(ctx, obj.Key); derr != nil {
			s.logger.Error("delete orphaned proof", "key", obj.Key, "error", derr)
		}
		return nil, err
	}

	s.logger.Info("payment proof submitted", "order_id", order.ID, "buyer_id", buyer.UserID)
	s.notify(websocket.NewMessage("order", model.OrderVerification, order.ID, nil).To(buyer.UserID, deref(d.SellerID)))
	return order, nil
}

func checkProofable(d *model.OrderDetail, buyer auth.AuthContext, orderID string) error {
	if d == nil {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if deref(d.BuyerID) != buyer.UserID {
		return ErrForbidden
	}
	if d.Status != model.OrderPendingProof {
		return fmt.Errorf("submit proof for %s order: %w", d.Status, ErrInvalidTransition)
	}
	return nil
}

// CancelOrder lets the buyer (or an admin) abandon an order that is still
// waiting for payment. The slot goes back to the pool.
func (s *Service) CancelOrder(ctx context.Context, actor auth.AuthContext, orderID string) (*model.Order, error) {
	var (
		order *model.Order
		d     *model.OrderDetail
	)
	err := s.withTx(ctx, func(tx *txStores) error {
		var err error
		d, err = tx.orders.GetDetail(orderID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if deref(d.BuyerID) != actor.UserID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if d.Status != model.OrderPendingProof {
			return fmt.Errorf("cancel %s order: %w", d.Status, ErrInvalidTransition)
		}

		if err := tx.orders.UpdateStatus(d.ID, model.OrderCancelled); err != nil {
			return err
		}
		if err := releaseSlot(tx, d); err != nil {
			return err
		}
		order, err = tx.orders.GetByID(d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "order_id", order.ID, "actor_id", actor.UserID)
	s.notify(websocket.NewMessage("order", model.OrderCancelled, order.ID, nil).To(deref(d.BuyerID), deref(d.SellerID)))
	s.notify(websocket.NewMessage("listing", "slot_released", deref(d.ListingID), nil))
	return order, nil
}
