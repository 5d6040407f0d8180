package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"propertydesk/internal/model"
)

func (s *Store) CreateMaintenanceRequest(ctx context.Context, request model.MaintenanceRequest, files []model.Attachment) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO maintenance_requests (id, tenant_id, title, description, status, priority, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, request.ID, request.TenantID, request.Title, request.Description, request.Status, request.Priority, request.Category, request.CreatedAt, request.UpdatedAt)
	if err != nil {
		return err
	}

	for _, file := range files {
		_, err = tx.Exec(ctx, `
			INSERT INTO maintenance_files (id, request_id, original_filename, file_type, mime_type, file_size, storage_path, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, file.ID, file.RequestID, file.OriginalFilename, file.FileType, file.MimeType, file.FileSize, file.StoragePath, file.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetMaintenanceRequest(ctx context.Context, requestID string) (model.MaintenanceRequest, error) {
	var request model.MaintenanceRequest
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, title, description, status, priority, category, assigned_to, admin_notes, estimated_completion,
		       rating, tenant_feedback, created_at, updated_at, completed_at
		FROM maintenance_requests
		WHERE id = $1
	`, requestID)
	err := scanRequest(row, &request)
	return request, err
}

type MaintenanceFilter struct {
	TenantID string
	Status   string
	Priority string
}

func (s *Store) ListMaintenanceRequests(ctx context.Context, filter MaintenanceFilter, limit, offset int) ([]model.MaintenanceRequest, int, error) {
	const where = `
		WHERE ($1 = '' OR tenant_id::text = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR priority = $3)
	`

	var total int
	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_requests`+where, filter.TenantID, filter.Status, filter.Priority)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, title, description, status, priority, category, assigned_to, admin_notes, estimated_completion,
		       rating, tenant_feedback, created_at, updated_at, completed_at
		FROM maintenance_requests
	`+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, filter.TenantID, filter.Status, filter.Priority, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []model.MaintenanceRequest
	for rows.Next() {
		var request model.MaintenanceRequest
		if err := scanRequest(rows, &request); err != nil {
			return nil, 0, err
		}
		requests = append(requests, request)
	}
	return requests, total, rows.Err()
}

type MaintenanceStatusUpdate struct {
	Status              string
	AssignedTo          *string
	AdminNotes          *string
	EstimatedCompletion *time.Time
}

func (s *Store) UpdateMaintenanceStatus(ctx context.Context, requestID string, update MaintenanceStatusUpdate) (model.MaintenanceRequest, error) {
	var request model.MaintenanceRequest
	row := s.pool.QueryRow(ctx, `
		UPDATE maintenance_requests
		SET status = $2,
		    assigned_to = COALESCE($3, assigned_to),
		    admin_notes = COALESCE($4, admin_notes),
		    estimated_completion = COALESCE($5, estimated_completion),
		    completed_at = CASE
		        WHEN $2 = 'COMPLETED' AND completed_at IS NULL THEN now()
		        WHEN $2 <> 'COMPLETED' THEN NULL
		        ELSE completed_at
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, tenant_id, title, description, status, priority, category, assigned_to, admin_notes, estimated_completion,
		          rating, tenant_feedback, created_at, updated_at, completed_at
	`, requestID, update.Status, update.AssignedTo, update.AdminNotes, update.EstimatedCompletion)
	err := scanRequest(row, &request)
	return request, err
}

// SubmitFeedback sets the rating and comment at most once. The conditional
// WHERE keeps the invariant even under a concurrent double submit.
func (s *Store) SubmitFeedback(ctx context.Context, requestID, tenantID string, rating int, comment *string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE maintenance_requests
		SET rating = $3, tenant_feedback = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'COMPLETED' AND rating IS NULL
	`, requestID, tenantID, rating, comment)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteMaintenanceRequest removes the request and returns the storage paths
// of its attachments so the caller can unlink the bytes on disk.
func (s *Store) DeleteMaintenanceRequest(ctx context.Context, requestID string) ([]string, bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT storage_path FROM maintenance_files WHERE request_id = $1`, requestID)
	if err != nil {
		return nil, false, err
	}
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, false, err
		}
		paths = append(paths, path)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM maintenance_requests WHERE id = $1`, requestID)
	if err != nil {
		return nil, false, err
	}
	return paths, tag.RowsAffected() > 0, nil
}

func (s *Store) ListAttachments(ctx context.Context, requestID string) ([]model.Attachment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, original_filename, file_type, mime_type, file_size, storage_path, created_at
		FROM maintenance_files
		WHERE request_id = $1
		ORDER BY created_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.Attachment
	for rows.Next() {
		var file model.Attachment
		if err := rows.Scan(&file.ID, &file.RequestID, &file.OriginalFilename, &file.FileType, &file.MimeType, &file.FileSize, &file.StoragePath, &file.CreatedAt); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) GetAttachment(ctx context.Context, fileID string) (model.Attachment, error) {
	var file model.Attachment
	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, original_filename, file_type, mime_type, file_size, storage_path, created_at
		FROM maintenance_files
		WHERE id = $1
	`, fileID)
	err := row.Scan(&file.ID, &file.RequestID, &file.OriginalFilename, &file.FileType, &file.MimeType, &file.FileSize, &file.StoragePath, &file.CreatedAt)
	return file, err
}

func scanRequest(row pgx.Row, request *model.MaintenanceRequest) error {
	return row.Scan(
		&request.ID,
		&request.TenantID,
		&request.Title,
		&request.Description,
		&request.Status,
		&request.Priority,
		&request.Category,
		&request.AssignedTo,
		&request.AdminNotes,
		&request.EstimatedCompletion,
		&request.Rating,
		&request.TenantFeedback,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.CompletedAt,
	)
}
