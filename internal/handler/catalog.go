package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/marketplace"
)

type CatalogHandler struct {
	svc    *marketplace.Service
	logger *slog.Logger
}

func NewCatalogHandler(svc *marketplace.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.svc.ListCatalog(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, services)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	var in marketplace.CatalogServiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	svc, err := h.svc.CreateCatalogService(r.Context(), ac, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}
