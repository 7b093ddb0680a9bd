package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/marketplace"
	"github.com/dukerupert/slotshare/internal/proof"
)

type OrderHandler struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

func NewOrderHandler(svc *marketplace.Service, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// List returns the caller's purchases, or with ?as=seller the orders on
// the caller's listings.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	orders, err := h.svc.ListOrders(r.Context(), ac, r.URL.Query().Get("as") == "seller")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, orders)
}

func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	orders, err := h.svc.AllOrders(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, orders)
}

// SubmitProof accepts a multipart form with a "proof" image and an optional
// "transaction_ref" field.
func (h *OrderHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, proof.MaxSize+maxBodyBytes)
	if err := r.ParseMultipartForm(proof.MaxSize); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("proof")
	if err != nil {
		writeBadRequest(w, "proof image is required")
		return
	}
	defer file.Close()

	in := marketplace.ProofInput{OrderID: r.PathValue("id")}
	if ref := r.FormValue("transaction_ref"); ref != "" {
		in.TransactionRef = &ref
	}

	order, err := h.svc.SubmitProof(r.Context(), ac, in, file)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	order, err := h.svc.CancelOrder(r.Context(), ac, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Settle applies {"action": "approve"|"reject"} to an order.
func (h *OrderHandler) Settle(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req marketplace.SettleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.OrderID = r.PathValue("id")
	order, err := h.svc.Settle(r.Context(), ac, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
