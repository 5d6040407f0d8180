package repository

import (
	"context"

	"propertydesk/internal/model"
)

func (s *Store) CreateLease(ctx context.Context, lease model.Lease) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leases (id, tenant_id, property_address, unit_number, start_date, end_date, monthly_rent_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, lease.ID, lease.TenantID, lease.PropertyAddress, lease.UnitNumber, lease.StartDate, lease.EndDate, lease.MonthlyRentCents, lease.Status, lease.CreatedAt, lease.UpdatedAt)
	return err
}

func (s *Store) GetLease(ctx context.Context, leaseID string) (model.Lease, error) {
	var lease model.Lease
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, property_address, unit_number, start_date, end_date, monthly_rent_cents, status, created_at, updated_at
		FROM leases
		WHERE id = $1
	`, leaseID)
	err := row.Scan(&lease.ID, &lease.TenantID, &lease.PropertyAddress, &lease.UnitNumber, &lease.StartDate, &lease.EndDate, &lease.MonthlyRentCents, &lease.Status, &lease.CreatedAt, &lease.UpdatedAt)
	return lease, err
}

func (s *Store) GetActiveLeaseByTenant(ctx context.Context, tenantID string) (model.Lease, error) {
	var lease model.Lease
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, property_address, unit_number, start_date, end_date, monthly_rent_cents, status, created_at, updated_at
		FROM leases
		WHERE tenant_id = $1 AND status = 'ACTIVE'
		ORDER BY start_date DESC
		LIMIT 1
	`, tenantID)
	err := row.Scan(&lease.ID, &lease.TenantID, &lease.PropertyAddress, &lease.UnitNumber, &lease.StartDate, &lease.EndDate, &lease.MonthlyRentCents, &lease.Status, &lease.CreatedAt, &lease.UpdatedAt)
	return lease, err
}

type LeaseUpdate struct {
	PropertyAddress  *string
	UnitNumber       *string
	EndDate          *string
	MonthlyRentCents *int64
	Status           *string
}

func (s *Store) UpdateLease(ctx context.Context, leaseID string, update LeaseUpdate) (model.Lease, error) {
	var lease model.Lease
	row := s.pool.QueryRow(ctx, `
		UPDATE leases
		SET property_address = COALESCE($2, property_address),
		    unit_number = COALESCE($3, unit_number),
		    end_date = COALESCE($4::date, end_date),
		    monthly_rent_cents = COALESCE($5, monthly_rent_cents),
		    status = COALESCE($6, status),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, tenant_id, property_address, unit_number, start_date, end_date, monthly_rent_cents, status, created_at, updated_at
	`, leaseID, update.PropertyAddress, update.UnitNumber, update.EndDate, update.MonthlyRentCents, update.Status)
	err := row.Scan(&lease.ID, &lease.TenantID, &lease.PropertyAddress, &lease.UnitNumber, &lease.StartDate, &lease.EndDate, &lease.MonthlyRentCents, &lease.Status, &lease.CreatedAt, &lease.UpdatedAt)
	return lease, err
}

func (s *Store) DeleteLease(ctx context.Context, leaseID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leases WHERE id = $1`, leaseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListLeases(ctx context.Context, limit, offset int) ([]model.Lease, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leases`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, property_address, unit_number, start_date, end_date, monthly_rent_cents, status, created_at, updated_at
		FROM leases
		ORDER BY start_date DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var leases []model.Lease
	for rows.Next() {
		var lease model.Lease
		if err := rows.Scan(&lease.ID, &lease.TenantID, &lease.PropertyAddress, &lease.UnitNumber, &lease.StartDate, &lease.EndDate, &lease.MonthlyRentCents, &lease.Status, &lease.CreatedAt, &lease.UpdatedAt); err != nil {
			return nil, 0, err
		}
		leases = append(leases, lease)
	}
	return leases, total, rows.Err()
}
