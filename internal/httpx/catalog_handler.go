package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/avolant/cafe-kds/internal/orders"
	"github.com/avolant/cafe-kds/internal/redisx"
)

// CatalogHandler serves the read-only collaborator surface: the product list
// for the kiosk and the order feed for the kitchen display's initial load.
type CatalogHandler struct {
	Repo  *orders.Repo
	Redis *redis.Client
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Repo.ListAvailableProducts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	os, err := h.Repo.ListOrders(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, os)
}

// getOrderStatus tries the Redis cache first (maintained by the engine's event
// journal via the projector), then falls back to the store.
func (h *CatalogHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
		return
	}

	status, paid, err := h.Repo.GetOrderStatus(r.Context(), orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	body := map[string]any{"status": status, "is_paid": paid, "updated_at": time.Now().UTC()}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(r.Context(), key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
