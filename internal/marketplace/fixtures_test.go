package marketplace

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/database"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/proof"
	"github.com/dukerupert/slotshare/internal/store"
	"github.com/dukerupert/slotshare/internal/websocket"
)

var contact = json.RawMessage(`{"whatsapp":"+15550100"}`)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (f *fakeNotifier) Broadcast(msg websocket.Message) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func (f *fakeNotifier) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		out = append(out, m.Type)
	}
	return out
}

type sentMail struct {
	to, subject, status string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Configured() bool { return true }

func (f *fakeMailer) SendOrderUpdate(_ context.Context, to, orderID, title, status string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{to: to, subject: title, status: status})
	f.mu.Unlock()
	return nil
}

func (f *fakeMailer) SendListingReviewed(_ context.Context, to, title, status, feedback string) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{to: to, subject: title, status: status})
	f.mu.Unlock()
	return nil
}

type fakeProofs struct {
	puts    []string
	deletes []string
}

func (f *fakeProofs) Put(_ context.Context, orderID string, body io.Reader) (*proof.Object, error) {
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	key := "proofs/" + orderID + "/proof.png"
	f.puts = append(f.puts, key)
	return &proof.Object{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (f *fakeProofs) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

type fixture struct {
	svc      *Service
	db       *sql.DB
	notifier *fakeNotifier
	mailer   *fakeMailer
	proofs   *fakeProofs
	admin    auth.AuthContext
	seller   auth.AuthContext
	buyer    auth.AuthContext
}

func setupWithDB(t *testing.T, db *sql.DB, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		db:       db,
		notifier: &fakeNotifier{},
		mailer:   &fakeMailer{},
		proofs:   &fakeProofs{},
	}
	opts = append([]Option{WithNotifier(f.notifier), WithMailer(f.mailer), WithProofStorage(f.proofs)}, opts...)
	f.svc = New(db, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	f.admin = createIdentity(t, db, "admin@example.com", model.RoleAdmin)
	f.seller = createIdentity(t, db, "seller@example.com", model.RoleSeller)
	f.buyer = createIdentity(t, db, "buyer@example.com", model.RoleBuyer)
	return f
}

func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return setupWithDB(t, db, opts...)
}

func createIdentity(t *testing.T, db *sql.DB, email, role string) auth.AuthContext {
	t.Helper()
	u, err := store.NewUserStore(db).Create(email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.NewProfileStore(db).Create(u.ID, email, role); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return auth.AuthContext{UserID: u.ID, Role: role}
}

// activeListing inserts an approved listing with n available slots.
func (f *fixture) activeListing(t *testing.T, title string, price int64, n int, trial bool) *model.Listing {
	t.Helper()
	l, err := store.NewListingStore(f.db).Create(model.Listing{
		SellerID:     f.seller.UserID,
		Title:        title,
		PricePerSlot: price,
		TotalSlots:   n,
		DurationDays: 30,
		IsTrial:      trial,
		Status:       model.ListingActive,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	if err := store.NewSlotStore(f.db).CreateBatch(l.ID, n); err != nil {
		t.Fatalf("create slots: %v", err)
	}
	return l
}

func (f *fixture) reserve(t *testing.T, listingID string) *model.Order {
	t.Helper()
	o, err := f.svc.Reserve(context.Background(), f.buyer, ReserveRequest{ListingID: listingID, ContactInfo: contact})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	return o
}

func (f *fixture) slot(t *testing.T, id string) *model.Slot {
	t.Helper()
	s, err := store.NewSlotStore(f.db).GetByID(id)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	return s
}

func (f *fixture) listingStatus(t *testing.T, id string) string {
	t.Helper()
	l, err := store.NewListingStore(f.db).GetByID(id)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	return l.Status
}

func (f *fixture) countOrders(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}
