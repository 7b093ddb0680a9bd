package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/marketplace"
	"github.com/dukerupert/slotshare/internal/model"
)

const idempotencyHeader = "Idempotency-Key"

type ListingHandler struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

func NewListingHandler(svc *marketplace.Service, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{svc: svc, logger: logger}
}

// Search lists active listings filtered by ?category= and ?q=.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.SearchListings(r.Context(), marketplace.ListingFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, listings)
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	l, err := h.svc.GetListing(r.Context(), viewer, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var in marketplace.CreateListingInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, err := h.svc.CreateListing(r.Context(), ac, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListingHandler) SellerListings(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listings, err := h.svc.SellerListings(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, listings)
}

func (h *ListingHandler) SellerStats(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	stats, err := h.svc.SellerStats(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ListingHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	listings, err := h.svc.AllListings(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, listings)
}

func (h *ListingHandler) Review(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var in marketplace.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ListingID = r.PathValue("id")
	l, err := h.svc.ReviewListing(r.Context(), ac, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Reserve claims a slot. Clients may send an Idempotency-Key header so a
// retried request returns the original order.
func (h *ListingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req marketplace.ReserveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ListingID = r.PathValue("id")
	req.IdempotencyKey = r.Header.Get(idempotencyHeader)

	order, err := h.svc.Reserve(r.Context(), ac, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if order.Status == model.OrderCompleted {
		status = http.StatusOK
	}
	writeJSON(w, status, order)
}

// writeList writes a JSON array, never null.
func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, items)
}
