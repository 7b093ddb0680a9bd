// Package marketplace implements the slot reservation and order settlement
// workflows along with the listing, order and payment method operations
// around them. Every state-changing operation runs in one SQL transaction.
package marketplace

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dukerupert/slotshare/internal/proof"
	"github.com/dukerupert/slotshare/internal/store"
	"github.com/dukerupert/slotshare/internal/websocket"
)

// Notifier receives change events after a transaction commits.
type Notifier interface {
	Broadcast(msg websocket.Message)
}

// Mailer sends settlement and review notifications.
type Mailer interface {
	Configured() bool
	SendOrderUpdate(ctx context.Context, toEmail, orderID, listingTitle, status string) error
	SendListingReviewed(ctx context.Context, toEmail, listingTitle, status, feedback string) error
}

// ProofStorage holds uploaded payment proof images.
type ProofStorage interface {
	Put(ctx context.Context, orderID string, body io.Reader) (*proof.Object, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	db     *sql.DB
	logger *slog.Logger

	users          *store.UserStore
	listings       *store.ListingStore
	orders         *store.OrderStore
	ledger         *store.LedgerStore
	catalog        *store.CatalogStore
	paymentMethods *store.PaymentMethodStore

	notifier Notifier
	mailer   Mailer
	proofs   ProofStorage
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithProofStorage(p ProofStorage) Option {
	return func(s *Service) { s.proofs = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(db *sql.DB, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		db:             db,
		logger:         logger,
		users:          store.NewUserStore(db),
		listings:       store.NewListingStore(db),
		orders:         store.NewOrderStore(db),
		ledger:         store.NewLedgerStore(db),
		catalog:        store.NewCatalogStore(db),
		paymentMethods: store.NewPaymentMethodStore(db),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// txStores are the stores bound to one transaction.
type txStores struct {
	profiles *store.ProfileStore
	catalog  *store.CatalogStore
	listings *store.ListingStore
	slots    *store.SlotStore
	orders   *store.OrderStore
	ledger   *store.LedgerStore
}

// withTx runs fn in a transaction, committing when fn returns nil. Any
// error rolls back every write fn made.
func (s *Service) withTx(ctx context.Context, fn func(tx *txStores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = fn(&txStores{
		profiles: store.NewProfileStore(tx),
		catalog:  store.NewCatalogStore(tx),
		listings: store.NewListingStore(tx),
		slots:    store.NewSlotStore(tx),
		orders:   store.NewOrderStore(tx),
		ledger:   store.NewLedgerStore(tx),
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Service) notify(msg websocket.Message) {
	if s.notifier != nil {
		s.notifier.Broadcast(msg)
	}
}

// emailOf returns the account email for a profile, or "" when mail is off
// or the lookup fails.
func (s *Service) emailOf(profileID string) string {
	if s.mailer == nil || !s.mailer.Configured() {
		return ""
	}
	u, err := s.users.GetByID(profileID)
	if err != nil {
		s.logger.Error("look up notification recipient", "profile_id", profileID, "error", err)
		return ""
	}
	if u == nil {
		return ""
	}
	return u.Email
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
