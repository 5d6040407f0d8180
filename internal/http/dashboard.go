package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"propertydesk/internal/model"
	"propertydesk/internal/repository"
)

const adminStatsCacheKey = "propertydesk:dashboard:admin-stats"

type tenantDashboard struct {
	Lease          *leaseSummary        `json:"lease"`
	RecentPayments []paymentSummary     `json:"recentPayments"`
	OpenRequests   []maintenanceSummary `json:"openRequests"`
	BalanceCents   int64                `json:"balanceCents"`
}

func (s *Server) handleTenantDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if claims.Role != model.RoleTenant {
		writeError(w, http.StatusForbidden, "tenant_only")
		return
	}

	dashboard := tenantDashboard{
		RecentPayments: []paymentSummary{},
		OpenRequests:   []maintenanceSummary{},
	}

	lease, err := s.store.GetActiveLeaseByTenant(r.Context(), claims.UserID)
	if err == nil {
		summary := mapLeaseSummary(lease)
		dashboard.Lease = &summary
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	payments, _, err := s.store.ListPaymentsByTenant(r.Context(), claims.UserID, 5, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	for _, payment := range payments {
		dashboard.RecentPayments = append(dashboard.RecentPayments, mapPaymentSummary(payment, ""))
	}

	requests, _, err := s.store.ListMaintenanceRequests(r.Context(), repository.MaintenanceFilter{TenantID: claims.UserID}, 50, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	for _, request := range requests {
		if request.Status != model.StatusPending && request.Status != model.StatusInProgress {
			continue
		}
		dashboard.OpenRequests = append(dashboard.OpenRequests, mapMaintenanceSummary(request, nil))
	}

	balance, err := s.store.OutstandingBalance(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	dashboard.BalanceCents = balance

	writeJSON(w, http.StatusOK, dashboard)
}

type adminStatsResponse struct {
	TotalTenants        int                     `json:"totalTenants"`
	ActiveLeases        int                     `json:"activeLeases"`
	MonthlyRevenueCents int64                   `json:"monthlyRevenueCents"`
	CollectionRate      int                     `json:"collectionRate"`
	OverduePayments     int                     `json:"overduePayments"`
	MaintenanceRequests maintenanceStatusCounts `json:"maintenanceRequests"`
}

type maintenanceStatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cachedAdminStats(r.Context()); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := s.store.GetAdminStats(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := adminStatsResponse{
		TotalTenants:        stats.TotalTenants,
		ActiveLeases:        stats.ActiveLeases,
		MonthlyRevenueCents: stats.MonthlyRevenueCents,
		CollectionRate:      stats.CollectionRate,
		OverduePayments:     stats.OverduePayments,
		MaintenanceRequests: maintenanceStatusCounts{
			Pending:    stats.PendingRequests,
			InProgress: stats.InProgressRequests,
			Completed:  stats.CompletedRequests,
		},
	}

	s.storeAdminStats(r.Context(), resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cachedAdminStats(ctx context.Context) (adminStatsResponse, bool) {
	var resp adminStatsResponse
	if s.cache == nil {
		return resp, false
	}
	// Cache trouble is never worth failing the dashboard over.
	raw, err := s.cache.Get(ctx, adminStatsCacheKey).Result()
	if err != nil {
		return resp, false
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return resp, false
	}
	return resp, true
}

func (s *Server) storeAdminStats(ctx context.Context, resp adminStatsResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, adminStatsCacheKey, raw, s.cfg.DashboardCacheTTL).Err()
}
