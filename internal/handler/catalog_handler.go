package handler

import (
	"net/http"

	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// CatalogHandler serves the public shop listing and product pages.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("handler", "catalog").Logger(),
	}
}

type shopIndexResponse struct {
	Tab      string          `json:"tab"`
	Category string          `json:"category,omitempty"`
	Products []model.Product `json:"products"`
}

// Index handles GET /shop/?category=&tab=products|experiences.
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab := q.Get("tab")
	if tab != "experiences" {
		tab = "products"
	}

	products, err := h.service.ListProducts(r.Context(), q.Get("category"), tab)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, shopIndexResponse{Tab: tab, Category: q.Get("category"), Products: products})
}

// Categories handles GET /shop/categories/.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Product handles GET /shop/{slug}/.
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
