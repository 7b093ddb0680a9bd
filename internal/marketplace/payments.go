package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/validate"
)

type PaymentMethodInput struct {
	Title   string          `json:"title" validate:"required,max=80"`
	Type    string          `json:"type" validate:"required,oneof=crypto bank wallet other"`
	Details json.RawMessage `json:"details" validate:"required,jsonobject"`
}

func (s *Service) CreatePaymentMethod(ctx context.Context, actor auth.AuthContext, in PaymentMethodInput) (*model.PaymentMethod, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	pm, err := s.paymentMethods.Create(strings.TrimSpace(in.Title), in.Type, in.Details)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment method created", "payment_method_id", pm.ID, "type", pm.Type)
	return pm, nil
}

// ListPaymentMethods returns every method to admins and active ones to
// everybody else.
func (s *Service) ListPaymentMethods(ctx context.Context, actor auth.AuthContext) ([]model.PaymentMethod, error) {
	return s.paymentMethods.List(!actor.IsAdmin())
}

func (s *Service) SetPaymentMethodActive(ctx context.Context, actor auth.AuthContext, id string, active bool) (*model.PaymentMethod, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	pm, err := s.paymentMethods.SetActive(id, active)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		return nil, fmt.Errorf("payment method %s: %w", id, ErrNotFound)
	}
	return pm, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, actor auth.AuthContext, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	pm, err := s.paymentMethods.GetByID(id)
	if err != nil {
		return err
	}
	if pm == nil {
		return fmt.Errorf("payment method %s: %w", id, ErrNotFound)
	}
	return s.paymentMethods.Delete(id)
}

type CatalogServiceInput struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Slug        string  `json:"slug" validate:"required,max=60,lowercase"`
	Category    string  `json:"category" validate:"required,max=40"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (s *Service) ListCatalog(ctx context.Context) ([]model.CatalogService, error) {
	return s.catalog.ListActive()
}

func (s *Service) CreateCatalogService(ctx context.Context, actor auth.AuthContext, in CatalogServiceInput) (*model.CatalogService, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	var created *model.CatalogService
	err := s.withTx(ctx, func(tx *txStores) error {
		existing, err := tx.catalog.GetBySlug(in.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return validate.Field("slug", "already in use")
		}
		created, err = tx.catalog.Create(strings.TrimSpace(in.Name), in.Slug, strings.TrimSpace(in.Category), in.LogoURL, in.Description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

type LedgerView struct {
	Balance int64               `json:"balance"`
	Entries []model.LedgerEntry `json:"entries"`
}

// Ledger returns the caller's ledger entries and the balance they sum to.
func (s *Service) Ledger(ctx context.Context, actor auth.AuthContext) (*LedgerView, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	entries, err := s.ledger.ListByProfile(actor.UserID)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(actor.UserID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return &LedgerView{Balance: balance, Entries: entries}, nil
}
