package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/marketplace"
)

type LedgerHandler struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

func NewLedgerHandler(svc *marketplace.Service, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// Get returns the caller's balance and entries.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	view, err := h.svc.Ledger(r.Context(), ac)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
