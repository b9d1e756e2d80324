package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/farmstore/backend/internal/entity"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id attached by the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authenticate verifies the bearer token and attaches the user id to the
// request context. No side effects; stateless per request.
func (h *Handler) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing bearer token"})
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin wraps authenticate and additionally checks the admin role.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.authenticate(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.GetUser(r.Context(), UserID(r.Context()))
		if err != nil || !user.IsAdmin() {
			writeError(w, entity.ErrAccessDenied)
			return
		}
		next(w, r)
	})
}

// isAdmin reports whether the authenticated caller holds the admin role.
func (h *Handler) isAdmin(r *http.Request) bool {
	user, err := h.auth.GetUser(r.Context(), UserID(r.Context()))
	return err == nil && user.IsAdmin()
}

// EnableCORS allows the SPA frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit caps each client IP at limit requests per minute.
func RateLimit(limit int, next http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		requests = make(map[string]int)
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, ok := strings.Cut(ip, ":"); ok {
			ip = host
		}

		mu.Lock()
		if requests[ip] >= limit {
			mu.Unlock()
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		requests[ip]++
		mu.Unlock()

		time.AfterFunc(time.Minute, func() {
			mu.Lock()
			requests[ip]--
			mu.Unlock()
		})

		next.ServeHTTP(w, r)
	})
}
