package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/slotshare/internal/database"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/store"
)

type testEnv struct {
	t      *testing.T
	db     *sql.DB
	server *httptest.Server
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, Options{}, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, db: db, server: ts}
}

func (e *testEnv) do(method, path, token string, body any) (*http.Response, []byte) {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (e *testEnv) expect(method, path, token string, body any, status int, out any) {
	e.t.Helper()
	resp, data := e.do(method, path, token, body)
	if resp.StatusCode != status {
		e.t.Fatalf("%s %s: status = %d, want %d (body %s)", method, path, resp.StatusCode, status, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			e.t.Fatalf("%s %s: decode %s: %v", method, path, data, err)
		}
	}
}

type session struct {
	Token string         `json:"token"`
	User  model.User     `json:"user"`
	Role  string         `json:"role"`
	Prof  *model.Profile `json:"profile"`
}

func (e *testEnv) signup(email, role string) session {
	e.t.Helper()
	var s session
	e.expect("POST", "/api/auth/signup", "", map[string]string{
		"email": email, "password": "correct horse", "full_name": "Test " + role, "role": role,
	}, http.StatusCreated, &s)
	return s
}

func (e *testEnv) admin() session {
	e.t.Helper()
	s := e.signup("admin@example.com", model.RoleBuyer)
	if err := store.NewProfileStore(e.db).UpdateRole(s.User.ID, model.RoleAdmin); err != nil {
		e.t.Fatalf("promote admin: %v", err)
	}
	return s
}

type apiError struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func TestHealth(t *testing.T) {
	e := setupServer(t)
	var body map[string]string
	e.expect("GET", "/health", "", nil, http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestAuthFlow(t *testing.T) {
	e := setupServer(t)
	s := e.signup("Seller@Example.com", model.RoleSeller)
	if s.User.Email != "seller@example.com" {
		t.Errorf("Email = %q, want lowercased", s.User.Email)
	}

	var dup apiError
	e.expect("POST", "/api/auth/signup", "", map[string]string{
		"email": "seller@example.com", "password": "another pass", "full_name": "Dup",
	}, http.StatusConflict, &dup)

	var bad apiError
	e.expect("POST", "/api/auth/signup", "", map[string]string{
		"email": "nope", "password": "short", "full_name": "X", "role": "admin",
	}, http.StatusBadRequest, &bad)
	for _, field := range []string{"email", "password", "role"} {
		if _, ok := bad.Fields[field]; !ok {
			t.Errorf("fields = %v, want %s", bad.Fields, field)
		}
	}

	e.expect("POST", "/api/auth/signin", "", map[string]string{
		"email": "seller@example.com", "password": "wrong password",
	}, http.StatusUnauthorized, nil)

	var in session
	e.expect("POST", "/api/auth/signin", "", map[string]string{
		"email": "seller@example.com", "password": "correct horse",
	}, http.StatusOK, &in)

	var me session
	e.expect("GET", "/api/me", in.Token, nil, http.StatusOK, &me)
	if me.Role != model.RoleSeller {
		t.Errorf("Role = %q, want seller", me.Role)
	}

	var prof model.Profile
	e.expect("PATCH", "/api/me", in.Token, map[string]string{"whatsapp": "+15550100"}, http.StatusOK, &prof)
	if prof.WhatsApp == nil || *prof.WhatsApp != "+15550100" {
		t.Errorf("WhatsApp = %v", prof.WhatsApp)
	}

	e.expect("POST", "/api/auth/signout", in.Token, nil, http.StatusNoContent, nil)
	e.expect("GET", "/api/me", in.Token, nil, http.StatusUnauthorized, nil)
}

func TestMarketplaceFlow(t *testing.T) {
	e := setupServer(t)
	admin := e.admin()
	seller := e.signup("seller@example.com", model.RoleSeller)
	buyer := e.signup("buyer@example.com", model.RoleBuyer)

	var svc model.CatalogService
	e.expect("POST", "/api/catalog", seller.Token, map[string]string{"name": "Netflix", "slug": "netflix", "category": "video"}, http.StatusForbidden, nil)
	e.expect("POST", "/api/catalog", admin.Token, map[string]string{"name": "Netflix", "slug": "netflix", "category": "video"}, http.StatusCreated, &svc)
	e.expect("POST", "/api/catalog", admin.Token, map[string]string{"name": "Netflix", "slug": "netflix", "category": "video"}, http.StatusBadRequest, nil)

	listingBody := map[string]any{"service_id": svc.ID, "title": "Netflix Premium", "price_per_slot": 500, "total_slots": 1, "duration_days": 30}
	e.expect("POST", "/api/listings", buyer.Token, listingBody, http.StatusForbidden, nil)

	var listing model.ListingSummary
	e.expect("POST", "/api/listings", seller.Token, listingBody, http.StatusCreated, &listing)
	if listing.Status != model.ListingPendingApproval {
		t.Fatalf("Status = %q, want pending_approval", listing.Status)
	}

	var found []model.ListingSummary
	e.expect("GET", "/api/listings", "", nil, http.StatusOK, &found)
	if len(found) != 0 {
		t.Errorf("search before approval = %d listings, want 0", len(found))
	}

	e.expect("POST", "/api/admin/listings/"+listing.ID+"/review", seller.Token, map[string]string{"decision": "approve"}, http.StatusForbidden, nil)
	e.expect("POST", "/api/admin/listings/"+listing.ID+"/review", admin.Token, map[string]string{"decision": "approve"}, http.StatusOK, nil)

	e.expect("GET", "/api/listings?category=video&q=premium", "", nil, http.StatusOK, &found)
	if len(found) != 1 || found[0].AvailableSlots != 1 {
		t.Fatalf("search = %+v, want one listing with one slot", found)
	}

	reserve := map[string]any{"contact_info": map[string]string{"whatsapp": "+15550100"}}
	e.expect("POST", "/api/listings/"+listing.ID+"/reserve", "", reserve, http.StatusUnauthorized, nil)

	var order model.Order
	e.expect("POST", "/api/listings/"+listing.ID+"/reserve", buyer.Token, reserve, http.StatusCreated, &order)
	if order.Status != model.OrderPendingProof {
		t.Errorf("order Status = %q, want pending_proof", order.Status)
	}

	other := e.signup("other@example.com", model.RoleBuyer)
	var conflict apiError
	e.expect("POST", "/api/listings/"+listing.ID+"/reserve", other.Token, reserve, http.StatusConflict, &conflict)
	if conflict.Kind != "conflict" || conflict.Error != "no slots available, they might be sold out" {
		t.Errorf("conflict body = %+v", conflict)
	}

	var mine []model.OrderDetail
	e.expect("GET", "/api/orders", buyer.Token, nil, http.StatusOK, &mine)
	if len(mine) != 1 || mine[0].ID != order.ID {
		t.Fatalf("buyer orders = %+v", mine)
	}

	e.expect("POST", "/api/admin/orders/"+order.ID+"/settle", buyer.Token, map[string]string{"action": "approve"}, http.StatusForbidden, nil)
	var settled model.Order
	e.expect("POST", "/api/admin/orders/"+order.ID+"/settle", admin.Token, map[string]string{"action": "approve"}, http.StatusOK, &settled)
	if settled.Status != model.OrderCompleted {
		t.Errorf("settled Status = %q, want completed", settled.Status)
	}
	e.expect("POST", "/api/admin/orders/"+order.ID+"/settle", admin.Token, map[string]string{"action": "approve"}, http.StatusOK, nil)

	var ledger struct {
		Balance int64               `json:"balance"`
		Entries []model.LedgerEntry `json:"entries"`
	}
	e.expect("GET", "/api/ledger", seller.Token, nil, http.StatusOK, &ledger)
	if ledger.Balance != 500 || len(ledger.Entries) != 1 {
		t.Errorf("ledger = %+v, want one 500 credit", ledger)
	}

	var stats model.SellerStats
	e.expect("GET", "/api/seller/stats", seller.Token, nil, http.StatusOK, &stats)
	if stats.TotalSales != 1 || stats.Earnings != 500 {
		t.Errorf("stats = %+v", stats)
	}

	var notFound apiError
	e.expect("POST", "/api/admin/orders/missing/settle", admin.Token, map[string]string{"action": "reject"}, http.StatusNotFound, &notFound)
	if notFound.Kind != "not_found" {
		t.Errorf("Kind = %q, want not_found", notFound.Kind)
	}
}

func TestPaymentMethodRoutes(t *testing.T) {
	e := setupServer(t)
	admin := e.admin()
	buyer := e.signup("buyer@example.com", model.RoleBuyer)

	var bad apiError
	e.expect("POST", "/api/payment-methods", admin.Token, map[string]any{"title": "Bank", "type": "bank", "details": []string{"x"}}, http.StatusBadRequest, &bad)
	if _, ok := bad.Fields["details"]; !ok {
		t.Errorf("fields = %v, want details", bad.Fields)
	}

	var pm model.PaymentMethod
	e.expect("POST", "/api/payment-methods", admin.Token, map[string]any{"title": "Bank", "type": "bank", "details": map[string]string{"iban": "DE00"}}, http.StatusCreated, &pm)
	e.expect("PATCH", "/api/payment-methods/"+pm.ID, admin.Token, map[string]bool{"is_active": false}, http.StatusOK, nil)

	var visible []model.PaymentMethod
	e.expect("GET", "/api/payment-methods", buyer.Token, nil, http.StatusOK, &visible)
	if len(visible) != 0 {
		t.Errorf("buyer sees %d methods, want 0", len(visible))
	}

	e.expect("DELETE", "/api/payment-methods/"+pm.ID, buyer.Token, nil, http.StatusForbidden, nil)
	e.expect("DELETE", "/api/payment-methods/"+pm.ID, admin.Token, nil, http.StatusNoContent, nil)
}

func TestProofUploadWithoutStorage(t *testing.T) {
	e := setupServer(t)
	buyer := e.signup("buyer@example.com", model.RoleBuyer)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("proof", "proof.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("\x89PNG\r\n\x1a\n"))
	mw.Close()

	req, err := http.NewRequest("POST", e.server.URL+"/api/orders/o-1/proof", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+buyer.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Kind != "unavailable" {
		t.Errorf("Kind = %q, want unavailable", body.Kind)
	}
}

func TestAuthRateLimit(t *testing.T) {
	e := setupServer(t)
	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < authRateLimit; i++ {
		e.expect("POST", "/api/auth/signin", "", body, http.StatusUnauthorized, nil)
	}
	e.expect("POST", "/api/auth/signin", "", body, http.StatusTooManyRequests, nil)
}
