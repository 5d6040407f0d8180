package repository

import (
	"context"
	"time"

	"propertydesk/internal/model"
)

type PaymentRecord struct {
	Payment    model.Payment
	TenantName string
}

type PaymentFilter struct {
	TenantName string
	Status     string
	StartDate  *time.Time
	EndDate    *time.Time
	SortAsc    bool
}

func (s *Store) CreatePayment(ctx context.Context, payment model.Payment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, tenant_id, lease_id, amount_cents, status, method, description, due_date, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, payment.ID, payment.TenantID, payment.LeaseID, payment.AmountCents, payment.Status, payment.Method, payment.Description, payment.DueDate, payment.PaymentDate, payment.CreatedAt)
	return err
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (model.Payment, error) {
	var payment model.Payment
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, lease_id, amount_cents, status, method, description, due_date, payment_date, created_at
		FROM payments
		WHERE id = $1
	`, paymentID)
	err := row.Scan(&payment.ID, &payment.TenantID, &payment.LeaseID, &payment.AmountCents, &payment.Status, &payment.Method, &payment.Description, &payment.DueDate, &payment.PaymentDate, &payment.CreatedAt)
	return payment, err
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID, status string, paidAt *time.Time) (model.Payment, error) {
	var payment model.Payment
	row := s.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, payment_date = COALESCE($3, payment_date)
		WHERE id = $1
		RETURNING id, tenant_id, lease_id, amount_cents, status, method, description, due_date, payment_date, created_at
	`, paymentID, status, paidAt)
	err := row.Scan(&payment.ID, &payment.TenantID, &payment.LeaseID, &payment.AmountCents, &payment.Status, &payment.Method, &payment.Description, &payment.DueDate, &payment.PaymentDate, &payment.CreatedAt)
	return payment, err
}

func (s *Store) ListPayments(ctx context.Context, filter PaymentFilter, limit, offset int) ([]PaymentRecord, int, error) {
	namePattern := "%" + filter.TenantName + "%"

	const where = `
		WHERE ($1 = '%%' OR u.first_name || ' ' || u.last_name ILIKE $1)
		  AND ($2 = '' OR p.status = $2)
		  AND ($3::timestamptz IS NULL OR p.payment_date >= $3)
		  AND ($4::timestamptz IS NULL OR p.payment_date < $4)
	`

	var total int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM payments p
		JOIN users u ON u.id = p.tenant_id
	`+where, namePattern, filter.Status, filter.StartDate, filter.EndDate)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `ORDER BY p.payment_date DESC NULLS LAST`
	if filter.SortAsc {
		order = `ORDER BY p.payment_date ASC NULLS LAST`
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.tenant_id, p.lease_id, p.amount_cents, p.status, p.method, p.description, p.due_date, p.payment_date, p.created_at,
		       u.first_name || ' ' || u.last_name
		FROM payments p
		JOIN users u ON u.id = p.tenant_id
	`+where+order+`
		LIMIT $5 OFFSET $6
	`, namePattern, filter.Status, filter.StartDate, filter.EndDate, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []PaymentRecord
	for rows.Next() {
		var record PaymentRecord
		if err := rows.Scan(
			&record.Payment.ID,
			&record.Payment.TenantID,
			&record.Payment.LeaseID,
			&record.Payment.AmountCents,
			&record.Payment.Status,
			&record.Payment.Method,
			&record.Payment.Description,
			&record.Payment.DueDate,
			&record.Payment.PaymentDate,
			&record.Payment.CreatedAt,
			&record.TenantName,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, rows.Err()
}

func (s *Store) ListPaymentsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]model.Payment, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, lease_id, amount_cents, status, method, description, due_date, payment_date, created_at
		FROM payments
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var payment model.Payment
		if err := rows.Scan(&payment.ID, &payment.TenantID, &payment.LeaseID, &payment.AmountCents, &payment.Status, &payment.Method, &payment.Description, &payment.DueDate, &payment.PaymentDate, &payment.CreatedAt); err != nil {
			return nil, 0, err
		}
		payments = append(payments, payment)
	}
	return payments, total, rows.Err()
}

func (s *Store) MarkOverduePayments(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments
		SET status = 'OVERDUE'
		WHERE status = 'PENDING' AND due_date IS NOT NULL AND due_date < $1::date
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
