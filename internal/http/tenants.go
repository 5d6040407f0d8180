package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"propertydesk/internal/crypto"
	"propertydesk/internal/model"
	"propertydesk/internal/repository"
)

type tenantSummary struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	PropertyAddress *string `json:"propertyAddress,omitempty"`
	UnitNumber      *string `json:"unitNumber,omitempty"`
	MoveInDate      *string `json:"moveInDate,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

func mapTenantSummary(record repository.TenantRecord) tenantSummary {
	summary := tenantSummary{
		ID:              record.User.ID,
		Email:           record.User.Email,
		FirstName:       record.User.FirstName,
		LastName:        record.User.LastName,
		PhoneNumber:     record.User.PhoneNumber,
		PropertyAddress: record.Profile.PropertyAddress,
		UnitNumber:      record.Profile.UnitNumber,
		CreatedAt:       record.User.CreatedAt.UTC().Format(time.RFC3339),
	}
	if record.Profile.MoveInDate != nil {
		moveIn := record.Profile.MoveInDate.Format("2006-01-02")
		summary.MoveInDate = &moveIn
	}
	return summary
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	page, size := parsePaging(r, 10)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	records, total, err := s.store.ListTenants(r.Context(), search, size, page*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	tenants := make([]tenantSummary, 0, len(records))
	for _, record := range records {
		tenants = append(tenants, mapTenantSummary(record))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenants":    tenants,
		"totalPages": totalPages(total, size),
	})
}

type createTenantRequest struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	PropertyAddress *string `json:"propertyAddress,omitempty"`
	UnitNumber      *string `json:"unitNumber,omitempty"`
	MoveInDate      *string `json:"moveInDate,omitempty"`
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	if _, err := s.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email_taken")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_hash_failed")
		return
	}

	var moveIn *time.Time
	if req.MoveInDate != nil && *req.MoveInDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.MoveInDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_move_in_date")
			return
		}
		moveIn = &parsed
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         model.RoleTenant,
		PhoneNumber:  req.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	profile := model.TenantProfile{
		UserID:          user.ID,
		PropertyAddress: req.PropertyAddress,
		UnitNumber:      req.UnitNumber,
		MoveInDate:      moveIn,
	}
	if err := s.store.UpsertTenantProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapTenantSummary(repository.TenantRecord{User: user, Profile: profile}))
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant_id")
		return
	}

	record, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tenant_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapTenantSummary(record))
}

type updateTenantRequest struct {
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	PropertyAddress *string `json:"propertyAddress,omitempty"`
	UnitNumber      *string `json:"unitNumber,omitempty"`
	MoveInDate      *string `json:"moveInDate,omitempty"`
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant_id")
		return
	}

	var req updateTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	record, err := s.store.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tenant_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	update := repository.UserUpdate{PhoneNumber: req.PhoneNumber}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email != "" {
			update.Email = &email
		}
	}
	if req.FirstName != nil {
		first := strings.TrimSpace(*req.FirstName)
		if first != "" {
			update.FirstName = &first
		}
	}
	if req.LastName != nil {
		last := strings.TrimSpace(*req.LastName)
		if last != "" {
			update.LastName = &last
		}
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "password_hash_failed")
			return
		}
		update.PasswordHash = &hash
	}

	user, err := s.store.UpdateUser(r.Context(), tenantID, update)
	if err != nil {
		writeError(w, http.StatusBadRequest, "update_failed")
		return
	}

	profile := record.Profile
	if req.PropertyAddress != nil {
		profile.PropertyAddress = req.PropertyAddress
	}
	if req.UnitNumber != nil {
		profile.UnitNumber = req.UnitNumber
	}
	if req.MoveInDate != nil {
		if *req.MoveInDate == "" {
			profile.MoveInDate = nil
		} else {
			parsed, err := time.Parse("2006-01-02", *req.MoveInDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_move_in_date")
				return
			}
			profile.MoveInDate = &parsed
		}
	}
	if err := s.store.UpsertTenantProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapTenantSummary(repository.TenantRecord{User: user, Profile: profile}))
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant_id")
		return
	}

	if _, err := s.store.GetTenant(r.Context(), tenantID); err != nil {
		writeError(w, http.StatusNotFound, "tenant_not_found")
		return
	}

	deleted, err := s.store.DeleteUser(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "tenant_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
