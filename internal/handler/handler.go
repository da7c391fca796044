// Package handler serves product detail screens over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/product-detail/internal/screen"
	"github.com/xenking/product-detail/pkg/httpmiddleware"
)

// ScreenLoader loads one product detail screen.
type ScreenLoader interface {
	Load(ctx context.Context, productID int64) *screen.DetailView
}

// Handler exposes screen views as JSON.
type Handler struct {
	screens ScreenLoader
}

// NewHandler returns a Handler backed by screens.
func NewHandler(screens ScreenLoader) *Handler {
	return &Handler{screens: screens}
}

// Register mounts the handler routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/screens/products/{id}", h.GetProductScreen)
}

// GetProductScreen loads the detail screen for the product in the path.
//
// Upstream fetch failures do not change the status code: the response is
// 200 with the failed slot set to null and its error message alongside.
func (h *Handler) GetProductScreen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	view := h.screens.Load(r.Context(), id)

	var e jx.Encoder
	view.Encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}
