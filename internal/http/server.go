package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"propertydesk/internal/auth"
	"propertydesk/internal/config"
	"propertydesk/internal/repository"
)

type Server struct {
	cfg          config.Config
	store        *repository.Store
	cache        *redis.Client
	loginLimiter *ipLimiter
}

// NewServer wires the handler set. cache may be nil; the dashboard then
// recomputes stats on every call.
func NewServer(cfg config.Config, store *repository.Store, cache *redis.Client) *Server {
	return &Server{
		cfg:          cfg,
		store:        store,
		cache:        cache,
		loginLimiter: newIPLimiter(cfg.LoginRatePerMin, cfg.LoginBurst),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/refresh", s.handleRefresh)
		r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

		r.Route("/tenants", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireAdmin)
			r.Get("/", s.handleListTenants)
			r.Post("/", s.handleCreateTenant)
			r.Get("/{tenantId}", s.handleGetTenant)
			r.Put("/{tenantId}", s.handleUpdateTenant)
			r.Delete("/{tenantId}", s.handleDeleteTenant)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.requireAdmin).Get("/", s.handleListMaintenance)
			r.Get("/my-requests", s.handleMyMaintenance)
			r.Post("/", s.handleCreateMaintenance)
			r.Get("/{requestId}", s.handleGetMaintenance)
			r.With(s.requireAdmin).Put("/{requestId}/status", s.handleMaintenanceStatus)
			r.Post("/{requestId}/feedback", s.handleMaintenanceFeedback)
			r.Delete("/{requestId}", s.handleDeleteMaintenance)
		})

		r.Route("/admin/payments", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireAdmin)
			r.Get("/", s.handleListPayments)
			r.Post("/", s.handleCreatePayment)
			r.Put("/{paymentId}/status", s.handlePaymentStatus)
		})

		r.Route("/tenant/payments", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleTenantPayments)
			r.Post("/", s.handleCreateTenantPayment)
		})

		r.Route("/leases", func(r chi.Router) {
			r.Use(s.authMiddleware, s.requireAdmin)
			r.Get("/", s.handleListLeases)
			r.Post("/", s.handleCreateLease)
			r.Get("/{leaseId}", s.handleGetLease)
			r.Put("/{leaseId}", s.handleUpdateLease)
			r.Delete("/{leaseId}", s.handleDeleteLease)
		})

		r.With(s.authMiddleware).Get("/dashboard/tenant", s.handleTenantDashboard)
		r.With(s.authMiddleware, s.requireAdmin).Get("/admin/dashboard/stats", s.handleAdminStats)

		r.With(s.authMiddleware).Get("/files/{fileId}", s.handleViewFile)
		r.With(s.authMiddleware).Get("/files/{fileId}/download", s.handleDownloadFile)
	})

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.Role != "ADMIN" {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeAuthError carries a human message alongside the code; login and
// register surface it directly in the portal.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// parsePaging reads page (0-based) and size query params with sane bounds.
func parsePaging(r *http.Request, defaultSize int) (int, int) {
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			page = parsed
		}
	}
	size := defaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			size = parsed
		}
	}
	return page, size
}

func totalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
