// Package http wires the service layer to the JSON API.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/farmstore/backend/internal/auth"
	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/service"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	auth          *service.AuthService
	products      *service.ProductService
	orders        *service.OrderService
	notifications *service.NotificationService
	carts         *service.CartService
	tokens        *auth.TokenIssuer
}

func NewHandler(
	authSvc *service.AuthService,
	products *service.ProductService,
	orders *service.OrderService,
	notifications *service.NotificationService,
	carts *service.CartService,
	tokens *auth.TokenIssuer,
) *Handler {
	return &Handler{
		auth:          authSvc,
		products:      products,
		orders:        orders,
		notifications: notifications,
		carts:         carts,
		tokens:        tokens,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)

	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)

	mux.HandleFunc("GET /api/cart", h.authenticate(h.handleGetCart))
	mux.HandleFunc("PUT /api/cart", h.authenticate(h.handlePutCart))

	mux.HandleFunc("POST /api/checkout", h.authenticate(h.handleCheckout))
	mux.HandleFunc("GET /api/orders", h.authenticate(h.handleListOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.authenticate(h.handleGetOrder))
	mux.HandleFunc("PUT /api/orders/{id}/cancel", h.authenticate(h.handleCancelOrder))
	mux.HandleFunc("PUT /api/orders/{id}/items/{itemIndex}/cancel", h.authenticate(h.handleCancelItem))
	mux.HandleFunc("PUT /api/orders/{id}/items/{itemIndex}/edit", h.authenticate(h.handleEditItem))

	mux.HandleFunc("GET /api/notifications", h.authenticate(h.handleListNotifications))
	mux.HandleFunc("PUT /api/notifications/{id}/read", h.authenticate(h.handleMarkRead))
	mux.HandleFunc("PUT /api/notifications/read-all", h.authenticate(h.handleMarkAllRead))

	h.registerAdminRoutes(mux)
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  entity.User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user.Projection()})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user.Projection()})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.Get(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *Handler) handlePutCart(w http.ResponseWriter, r *http.Request) {
	var lines []entity.CartLine
	if err := json.NewDecoder(r.Body).Decode(&lines); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	if err := h.carts.Put(r.Context(), UserID(r.Context()), lines); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

type checkoutResponse struct {
	OK    bool         `json:"ok"`
	Order entity.Order `json:"order"`
	User  *entity.User `json:"user,omitempty"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	order, user, err := h.orders.Checkout(r.Context(), UserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := checkoutResponse{OK: true, Order: *order}
	if user != nil {
		projection := user.Projection()
		resp.User = &projection
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListForUser(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), UserID(r.Context()), h.isAdmin(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleCancelItem(w http.ResponseWriter, r *http.Request) {
	itemIndex, err := strconv.Atoi(r.PathValue("itemIndex"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid item index"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
	}

	order, err := h.orders.CancelItem(r.Context(), UserID(r.Context()), r.PathValue("id"), itemIndex, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleEditItem(w http.ResponseWriter, r *http.Request) {
	itemIndex, err := strconv.Atoi(r.PathValue("itemIndex"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid item index"})
		return
	}

	var req service.EditItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	order, err := h.orders.EditItem(r.Context(), UserID(r.Context()), r.PathValue("id"), itemIndex, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))

	notifs, err := h.notifications.List(r.Context(), UserID(r.Context()), unreadOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	if notifs == nil {
		notifs = []entity.Notification{}
	}
	writeJSON(w, http.StatusOK, notifs)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkRead(r.Context(), r.PathValue("id"), UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context(), UserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
