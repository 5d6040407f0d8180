package repository

import (
	"context"
	"time"
)

// AdminStats aggregates the figures shown on the admin dashboard.
type AdminStats struct {
	TotalTenants        int   `json:"totalTenants"`
	ActiveLeases        int   `json:"activeLeases"`
	MonthlyRevenueCents int64 `json:"monthlyRevenueCents"`
	CollectionRate      int   `json:"collectionRate"`
	PendingRequests     int   `json:"pendingRequests"`
	InProgressRequests  int   `json:"inProgressRequests"`
	CompletedRequests   int   `json:"completedRequests"`
	OverduePayments     int   `json:"overduePayments"`
}

// OutstandingBalance sums the tenant's unpaid amounts.
func (s *Store) OutstandingBalance(ctx context.Context, tenantID string) (int64, error) {
	var balance int64
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE tenant_id = $1 AND status IN ('PENDING', 'OVERDUE')
	`, tenantID)
	err := row.Scan(&balance)
	return balance, err
}

func (s *Store) GetAdminStats(ctx context.Context, now time.Time) (AdminStats, error) {
	var stats AdminStats

	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'TENANT'`)
	if err := row.Scan(&stats.TotalTenants); err != nil {
		return stats, err
	}

	row = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leases WHERE status = 'ACTIVE'`)
	if err := row.Scan(&stats.ActiveLeases); err != nil {
		return stats, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	row = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE status = 'PAID' AND payment_date >= $1 AND payment_date < $2
	`, monthStart, monthEnd)
	if err := row.Scan(&stats.MonthlyRevenueCents); err != nil {
		return stats, err
	}

	// Collection rate: share of this month's due payments that got paid.
	var due, paid int
	row = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'PAID')
		FROM payments
		WHERE due_date >= $1::date AND due_date < $2::date
	`, monthStart, monthEnd)
	if err := row.Scan(&due, &paid); err != nil {
		return stats, err
	}
	if due > 0 {
		stats.CollectionRate = paid * 100 / due
	}

	row = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
		       COUNT(*) FILTER (WHERE status = 'COMPLETED')
		FROM maintenance_requests
	`)
	if err := row.Scan(&stats.PendingRequests, &stats.InProgressRequests, &stats.CompletedRequests); err != nil {
		return stats, err
	}

	row = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE status = 'OVERDUE'`)
	if err := row.Scan(&stats.OverduePayments); err != nil {
		return stats, err
	}

	return stats, nil
}
