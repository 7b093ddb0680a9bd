package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/marketplace"
)

type PaymentMethodHandler struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

func NewPaymentMethodHandler(svc *marketplace.Service, logger *slog.Logger) *PaymentMethodHandler {
	return &PaymentMethodHandler{svc: svc, logger: logger}
}

func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	methods, err := h.svc.ListPaymentMethods(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, methods)
}

func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var in marketplace.PaymentMethodInput
	if !decodeJSON(w, r, &in) {
		return
	}
	pm, err := h.svc.CreatePaymentMethod(r.Context(), ac, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pm)
}

type toggleRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *PaymentMethodHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeBadRequest(w, "is_active is required")
		return
	}
	pm, err := h.svc.SetPaymentMethodActive(r.Context(), ac, r.PathValue("id"), *req.IsActive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pm)
}

func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := h.svc.DeletePaymentMethod(r.Context(), ac, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
