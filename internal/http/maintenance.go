package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"propertydesk/internal/model"
	"propertydesk/internal/repository"
)

type maintenanceSummary struct {
	ID                  string              `json:"id"`
	TenantID            string              `json:"tenantId"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Status              string              `json:"status"`
	Priority            string              `json:"priority"`
	Category            string              `json:"category"`
	AssignedTo          *string             `json:"assignedTo,omitempty"`
	AdminNotes          *string             `json:"adminNotes,omitempty"`
	EstimatedCompletion *string             `json:"estimatedCompletion,omitempty"`
	Rating              *int                `json:"rating,omitempty"`
	TenantFeedback      *string             `json:"tenantFeedback,omitempty"`
	Files               []attachmentSummary `json:"files"`
	CreatedAt           string              `json:"createdAt"`
	UpdatedAt           string              `json:"updatedAt"`
	CompletedAt         *string             `json:"completedAt,omitempty"`
}

type attachmentSummary struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"originalFilename"`
	FileType         string `json:"fileType"`
	MimeType         string `json:"mimeType"`
	FileSize         int64  `json:"fileSize"`
	CreatedAt        string `json:"createdAt"`
}

func mapMaintenanceSummary(request model.MaintenanceRequest, files []model.Attachment) maintenanceSummary {
	summary := maintenanceSummary{
		ID:             request.ID,
		TenantID:       request.TenantID,
		Title:          request.Title,
		Description:    request.Description,
		Status:         request.Status,
		Priority:       request.Priority,
		Category:       request.Category,
		AssignedTo:     request.AssignedTo,
		AdminNotes:     request.AdminNotes,
		Rating:         request.Rating,
		TenantFeedback: request.TenantFeedback,
		Files:          make([]attachmentSummary, 0, len(files)),
		CreatedAt:      request.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      request.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if request.EstimatedCompletion != nil {
		estimated := request.EstimatedCompletion.UTC().Format(time.RFC3339)
		summary.EstimatedCompletion = &estimated
	}
	if request.CompletedAt != nil {
		completed := request.CompletedAt.UTC().Format(time.RFC3339)
		summary.CompletedAt = &completed
	}
	for _, file := range files {
		summary.Files = append(summary.Files, attachmentSummary{
			ID:               file.ID,
			OriginalFilename: file.OriginalFilename,
			FileType:         file.FileType,
			MimeType:         file.MimeType,
			FileSize:         file.FileSize,
			CreatedAt:        file.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return summary
}

func (s *Server) maintenanceListResponse(w http.ResponseWriter, r *http.Request, filter repository.MaintenanceFilter) {
	page, size := parsePaging(r, 10)

	requests, total, err := s.store.ListMaintenanceRequests(r.Context(), filter, size, page*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	summaries := make([]maintenanceSummary, 0, len(requests))
	for _, request := range requests {
		files, err := s.store.ListAttachments(r.Context(), request.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		summaries = append(summaries, mapMaintenanceSummary(request, files))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests":   summaries,
		"totalPages": totalPages(total, size),
	})
}

func (s *Server) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	filter := repository.MaintenanceFilter{
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		Priority: strings.TrimSpace(r.URL.Query().Get("priority")),
	}
	if filter.Status != "" && !model.ValidMaintenanceStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	if filter.Priority != "" && !model.ValidPriority(filter.Priority) {
		writeError(w, http.StatusBadRequest, "invalid_priority")
		return
	}
	s.maintenanceListResponse(w, r, filter)
}

func (s *Server) handleMyMaintenance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	s.maintenanceListResponse(w, r, repository.MaintenanceFilter{TenantID: claims.UserID})
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if claims.Role != model.RoleTenant {
		writeError(w, http.StatusForbidden, "tenant_only")
		return
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	category := strings.TrimSpace(r.FormValue("category"))
	priority := strings.TrimSpace(r.FormValue("priority"))
	if priority == "" {
		priority = model.PriorityMedium
	}

	if title == "" || description == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if !model.ValidPriority(priority) {
		writeError(w, http.StatusBadRequest, "invalid_priority")
		return
	}

	now := time.Now().UTC()
	request := model.MaintenanceRequest{
		ID:          uuid.NewString(),
		TenantID:    claims.UserID,
		Title:       title,
		Description: description,
		Status:      model.StatusPending,
		Priority:    priority,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var attachments []model.Attachment
	var storedPaths []string
	cleanup := func() {
		for _, path := range storedPaths {
			_ = os.Remove(path)
		}
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			mimeType := header.Header.Get("Content-Type")
			fileType, err := model.ValidateAttachment(mimeType, header.Size, s.cfg.MaxUploadBytes)
			if err != nil {
				cleanup()
				if errors.Is(err, model.ErrFileTooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
					return
				}
				writeError(w, http.StatusBadRequest, "unsupported_file_type")
				return
			}

			fileID := uuid.NewString()
			storagePath := filepath.Join(s.cfg.UploadDir, fileID+filepath.Ext(header.Filename))
			if err := saveUpload(header, storagePath); err != nil {
				cleanup()
				writeError(w, http.StatusInternalServerError, "file_store_failed")
				return
			}
			storedPaths = append(storedPaths, storagePath)

			attachments = append(attachments, model.Attachment{
				ID:               fileID,
				RequestID:        request.ID,
				OriginalFilename: header.Filename,
				FileType:         fileType,
				MimeType:         mimeType,
				FileSize:         header.Size,
				StoragePath:      storagePath,
				CreatedAt:        now,
			})
		}
	}

	if err := s.store.CreateMaintenanceRequest(r.Context(), request, attachments); err != nil {
		cleanup()
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapMaintenanceSummary(request, attachments))
}

func saveUpload(header *multipart.FileHeader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func (s *Server) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing_request_id")
		return
	}

	request, err := s.store.GetMaintenanceRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "request_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if claims.Role != model.RoleAdmin && request.TenantID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	files, err := s.store.ListAttachments(r.Context(), request.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapMaintenanceSummary(request, files))
}

type maintenanceStatusRequest struct {
	Status              string  `json:"status"`
	AssignedTo          *string `json:"assignedTo,omitempty"`
	AdminNotes          *string `json:"adminNotes,omitempty"`
	EstimatedCompletion *string `json:"estimatedCompletion,omitempty"`
}

func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing_request_id")
		return
	}

	var req maintenanceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !model.ValidMaintenanceStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	update := repository.MaintenanceStatusUpdate{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
		AdminNotes: req.AdminNotes,
	}
	if req.EstimatedCompletion != nil && *req.EstimatedCompletion != "" {
		parsed, err := time.Parse(time.RFC3339, *req.EstimatedCompletion)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_estimated_completion")
			return
		}
		update.EstimatedCompletion = &parsed
	}

	request, err := s.store.UpdateMaintenanceStatus(r.Context(), requestID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "request_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	files, err := s.store.ListAttachments(r.Context(), request.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapMaintenanceSummary(request, files))
}

type feedbackRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

func (s *Server) handleMaintenanceFeedback(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing_request_id")
		return
	}

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "invalid_rating")
		return
	}

	request, err := s.store.GetMaintenanceRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "request_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if request.TenantID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	updated, err := s.store.SubmitFeedback(r.Context(), requestID, claims.UserID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !updated {
		writeError(w, http.StatusConflict, "feedback_not_allowed")
		return
	}

	request, err = s.store.GetMaintenanceRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	files, err := s.store.ListAttachments(r.Context(), request.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapMaintenanceSummary(request, files))
}

func (s *Server) handleDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "missing_request_id")
		return
	}

	request, err := s.store.GetMaintenanceRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "request_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if claims.Role != model.RoleAdmin && request.TenantID != claims.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	paths, deleted, err := s.store.DeleteMaintenanceRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "request_not_found")
		return
	}
	for _, path := range paths {
		_ = os.Remove(path)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
