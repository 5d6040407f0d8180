package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"propertydesk/internal/model"
	"propertydesk/internal/repository"
)

type leaseSummary struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenantId"`
	PropertyAddress  string `json:"propertyAddress"`
	UnitNumber       string `json:"unitNumber"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	MonthlyRentCents int64  `json:"monthlyRentCents"`
	Status           string `json:"status"`
	CreatedAt        string `json:"createdAt"`
}

func mapLeaseSummary(lease model.Lease) leaseSummary {
	return leaseSummary{
		ID:               lease.ID,
		TenantID:         lease.TenantID,
		PropertyAddress:  lease.PropertyAddress,
		UnitNumber:       lease.UnitNumber,
		StartDate:        lease.StartDate.Format("2006-01-02"),
		EndDate:          lease.EndDate.Format("2006-01-02"),
		MonthlyRentCents: lease.MonthlyRentCents,
		Status:           lease.Status,
		CreatedAt:        lease.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListLeases(w http.ResponseWriter, r *http.Request) {
	page, size := parsePaging(r, 10)

	leases, total, err := s.store.ListLeases(r.Context(), size, page*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	content := make([]leaseSummary, 0, len(leases))
	for _, lease := range leases {
		content = append(content, mapLeaseSummary(lease))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":    content,
		"totalPages": totalPages(total, size),
	})
}

type createLeaseRequest struct {
	TenantID         string `json:"tenantId"`
	PropertyAddress  string `json:"propertyAddress"`
	UnitNumber       string `json:"unitNumber"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	MonthlyRentCents int64  `json:"monthlyRentCents"`
}

func (s *Server) handleCreateLease(w http.ResponseWriter, r *http.Request) {
	var req createLeaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.PropertyAddress = strings.TrimSpace(req.PropertyAddress)
	if req.TenantID == "" || req.PropertyAddress == "" || req.StartDate == "" || req.EndDate == "" || req.MonthlyRentCents <= 0 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date")
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date")
		return
	}
	if !endDate.After(startDate) {
		writeError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}
	if _, err := s.store.GetTenant(r.Context(), req.TenantID); err != nil {
		writeError(w, http.StatusNotFound, "tenant_not_found")
		return
	}

	now := time.Now().UTC()
	lease := model.Lease{
		ID:               uuid.NewString(),
		TenantID:         req.TenantID,
		PropertyAddress:  req.PropertyAddress,
		UnitNumber:       strings.TrimSpace(req.UnitNumber),
		StartDate:        startDate,
		EndDate:          endDate,
		MonthlyRentCents: req.MonthlyRentCents,
		Status:           model.LeaseActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateLease(r.Context(), lease); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapLeaseSummary(lease))
}

func (s *Server) handleGetLease(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "leaseId")
	if leaseID == "" {
		writeError(w, http.StatusBadRequest, "missing_lease_id")
		return
	}

	lease, err := s.store.GetLease(r.Context(), leaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "lease_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapLeaseSummary(lease))
}

type updateLeaseRequest struct {
	PropertyAddress  *string `json:"propertyAddress,omitempty"`
	UnitNumber       *string `json:"unitNumber,omitempty"`
	EndDate          *string `json:"endDate,omitempty"`
	MonthlyRentCents *int64  `json:"monthlyRentCents,omitempty"`
	Status           *string `json:"status,omitempty"`
}

func (s *Server) handleUpdateLease(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "leaseId")
	if leaseID == "" {
		writeError(w, http.StatusBadRequest, "missing_lease_id")
		return
	}

	var req updateLeaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if req.Status != nil {
		switch *req.Status {
		case model.LeaseActive, model.LeaseExpired, model.LeaseTerminated:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
	}
	if req.EndDate != nil && *req.EndDate != "" {
		if _, err := time.Parse("2006-01-02", *req.EndDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date")
			return
		}
	}

	lease, err := s.store.UpdateLease(r.Context(), leaseID, repository.LeaseUpdate{
		PropertyAddress:  req.PropertyAddress,
		UnitNumber:       req.UnitNumber,
		EndDate:          req.EndDate,
		MonthlyRentCents: req.MonthlyRentCents,
		Status:           req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "lease_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapLeaseSummary(lease))
}

func (s *Server) handleDeleteLease(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "leaseId")
	if leaseID == "" {
		writeError(w, http.StatusBadRequest, "missing_lease_id")
		return
	}

	deleted, err := s.store.DeleteLease(r.Context(), leaseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "lease_not_found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
