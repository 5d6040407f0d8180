package repository

import (
	"context"

	"propertydesk/internal/model"
)

type TenantRecord struct {
	User    model.User
	Profile model.TenantProfile
}

func (s *Store) UpsertTenantProfile(ctx context.Context, profile model.TenantProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_profiles (user_id, property_address, unit_number, move_in_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET property_address = EXCLUDED.property_address,
		    unit_number = EXCLUDED.unit_number,
		    move_in_date = EXCLUDED.move_in_date
	`, profile.UserID, profile.PropertyAddress, profile.UnitNumber, profile.MoveInDate)
	return err
}

func (s *Store) GetTenant(ctx context.Context, userID string) (TenantRecord, error) {
	var record TenantRecord
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.phone_number, u.created_at, u.updated_at,
		       p.property_address, p.unit_number, p.move_in_date
		FROM users u
		JOIN tenant_profiles p ON p.user_id = u.id
		WHERE u.id = $1 AND u.role = 'TENANT'
	`, userID)
	err := row.Scan(
		&record.User.ID,
		&record.User.Email,
		&record.User.PasswordHash,
		&record.User.FirstName,
		&record.User.LastName,
		&record.User.Role,
		&record.User.PhoneNumber,
		&record.User.CreatedAt,
		&record.User.UpdatedAt,
		&record.Profile.PropertyAddress,
		&record.Profile.UnitNumber,
		&record.Profile.MoveInDate,
	)
	record.Profile.UserID = record.User.ID
	return record, err
}

func (s *Store) ListTenants(ctx context.Context, search string, limit, offset int) ([]TenantRecord, int, error) {
	pattern := "%" + search + "%"

	var total int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users u
		JOIN tenant_profiles p ON p.user_id = u.id
		WHERE u.role = 'TENANT'
		  AND ($1 = '%%' OR u.first_name ILIKE $1 OR u.last_name ILIKE $1 OR u.email ILIKE $1)
	`, pattern)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.phone_number, u.created_at, u.updated_at,
		       p.property_address, p.unit_number, p.move_in_date
		FROM users u
		JOIN tenant_profiles p ON p.user_id = u.id
		WHERE u.role = 'TENANT'
		  AND ($1 = '%%' OR u.first_name ILIKE $1 OR u.last_name ILIKE $1 OR u.email ILIKE $1)
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []TenantRecord
	for rows.Next() {
		var record TenantRecord
		if err := rows.Scan(
			&record.User.ID,
			&record.User.Email,
			&record.User.PasswordHash,
			&record.User.FirstName,
			&record.User.LastName,
			&record.User.Role,
			&record.User.PhoneNumber,
			&record.User.CreatedAt,
			&record.User.UpdatedAt,
			&record.Profile.PropertyAddress,
			&record.Profile.UnitNumber,
			&record.Profile.MoveInDate,
		); err != nil {
			return nil, 0, err
		}
		record.Profile.UserID = record.User.ID
		records = append(records, record)
	}
	return records, total, rows.Err()
}
