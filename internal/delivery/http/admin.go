package http

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

func (h *Handler) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/products", h.requireAdmin(h.handleAdminListProducts))
	mux.HandleFunc("POST /api/admin/products", h.requireAdmin(h.handleAdminCreateProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}", h.requireAdmin(h.handleAdminUpdateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", h.requireAdmin(h.handleAdminDeleteProduct))

	mux.HandleFunc("GET /api/admin/orders", h.requireAdmin(h.handleAdminListOrders))
	mux.HandleFunc("GET /api/admin/orders/report", h.requireAdmin(h.handleAdminOrderReport))
	mux.HandleFunc("GET /api/admin/orders/{id}/events", h.requireAdmin(h.handleAdminOrderEvents))
	mux.HandleFunc("PUT /api/admin/orders/{id}/status", h.requireAdmin(h.handleAdminUpdateStatus))

	mux.HandleFunc("GET /api/admin/users", h.requireAdmin(h.handleAdminListUsers))
}

func (h *Handler) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	// Admins see inactive products too.
	products, err := h.products.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleAdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p entity.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleAdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p entity.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	p.ID = r.PathValue("id")

	if err := h.products.Update(r.Context(), &p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{
		Status:         r.URL.Query().Get("status"),
		ShippingMethod: r.URL.Query().Get("shippingMethod"),
		Search:         r.URL.Query().Get("search"),
	}

	orders, err := h.orders.ListAll(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleAdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleAdminOrderEvents(w http.ResponseWriter, r *http.Request) {
	records, err := h.orders.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []entity.EventRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleAdminOrderReport streams every order as CSV.
func (h *Handler) handleAdminOrderReport(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), repository.OrderFilter{})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=orders.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"Order ID", "User ID", "Date", "Total", "Status", "Shipping", "Payment"})
	for _, o := range orders {
		writer.Write([]string{
			o.ID,
			o.UserID,
			o.CreatedAt.Format(time.RFC3339),
			strconv.FormatFloat(o.Total, 'f', 2, 64),
			o.Status,
			o.ShippingMethod,
			o.PaymentMethod,
		})
	}
}

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	projections := make([]entity.User, 0, len(users))
	for i := range users {
		projections = append(projections, users[i].Projection())
	}
	writeJSON(w, http.StatusOK, projections)
}
