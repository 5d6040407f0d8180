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

type paymentSummary struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenantId"`
	TenantName  string  `json:"tenantName,omitempty"`
	LeaseID     *string `json:"leaseId,omitempty"`
	AmountCents int64   `json:"amountCents"`
	Status      string  `json:"status"`
	Method      *string `json:"method,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	PaymentDate *string `json:"paymentDate,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

func mapPaymentSummary(payment model.Payment, tenantName string) paymentSummary {
	summary := paymentSummary{
		ID:          payment.ID,
		TenantID:    payment.TenantID,
		TenantName:  tenantName,
		LeaseID:     payment.LeaseID,
		AmountCents: payment.AmountCents,
		Status:      payment.Status,
		Method:      payment.Method,
		Description: payment.Description,
		CreatedAt:   payment.CreatedAt.UTC().Format(time.RFC3339),
	}
	if payment.DueDate != nil {
		due := payment.DueDate.Format("2006-01-02")
		summary.DueDate = &due
	}
	if payment.PaymentDate != nil {
		paid := payment.PaymentDate.UTC().Format(time.RFC3339)
		summary.PaymentDate = &paid
	}
	return summary
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	page, size := parsePaging(r, 10)
	query := r.URL.Query()

	filter := repository.PaymentFilter{
		TenantName: strings.TrimSpace(query.Get("tenantName")),
		Status:     strings.TrimSpace(query.Get("status")),
		SortAsc:    strings.EqualFold(query.Get("sort"), "asc"),
	}
	if filter.Status != "" && !model.ValidPaymentStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	if raw := query.Get("startDate"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date")
			return
		}
		filter.StartDate = &parsed
	}
	if raw := query.Get("endDate"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date")
			return
		}
		// Inclusive end of day.
		end := parsed.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	records, total, err := s.store.ListPayments(r.Context(), filter, size, page*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	content := make([]paymentSummary, 0, len(records))
	for _, record := range records {
		content = append(content, mapPaymentSummary(record.Payment, record.TenantName))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":    content,
		"totalPages": totalPages(total, size),
	})
}

type createPaymentRequest struct {
	TenantID    string  `json:"tenantId"`
	LeaseID     *string `json:"leaseId,omitempty"`
	AmountCents int64   `json:"amountCents"`
	DueDate     string  `json:"dueDate"`
	Description *string `json:"description,omitempty"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.TenantID == "" || req.AmountCents <= 0 || req.DueDate == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_due_date")
		return
	}
	if _, err := s.store.GetTenant(r.Context(), req.TenantID); err != nil {
		writeError(w, http.StatusNotFound, "tenant_not_found")
		return
	}

	payment := model.Payment{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		LeaseID:     req.LeaseID,
		AmountCents: req.AmountCents,
		Status:      model.PaymentPending,
		Description: req.Description,
		DueDate:     &dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreatePayment(r.Context(), payment); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapPaymentSummary(payment, ""))
}

type paymentStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "missing_payment_id")
		return
	}

	var req paymentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if !model.ValidPaymentStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	var paidAt *time.Time
	if req.Status == model.PaymentPaid {
		now := time.Now().UTC()
		paidAt = &now
	}

	payment, err := s.store.UpdatePaymentStatus(r.Context(), paymentID, req.Status, paidAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, mapPaymentSummary(payment, ""))
}

func (s *Server) handleTenantPayments(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	page, size := parsePaging(r, 10)

	payments, total, err := s.store.ListPaymentsByTenant(r.Context(), claims.UserID, size, page*size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	content := make([]paymentSummary, 0, len(payments))
	for _, payment := range payments {
		content = append(content, mapPaymentSummary(payment, ""))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"content":    content,
		"totalPages": totalPages(total, size),
	})
}

type tenantPaymentRequest struct {
	AmountCents int64   `json:"amountCents"`
	Method      string  `json:"method"`
	Description *string `json:"description,omitempty"`
}

func (s *Server) handleCreateTenantPayment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if claims.Role != model.RoleTenant {
		writeError(w, http.StatusForbidden, "tenant_only")
		return
	}

	var req tenantPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AmountCents <= 0 || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	var leaseID *string
	if lease, err := s.store.GetActiveLeaseByTenant(r.Context(), claims.UserID); err == nil {
		leaseID = &lease.ID
	} else if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	method := strings.TrimSpace(req.Method)
	now := time.Now().UTC()
	payment := model.Payment{
		ID:          uuid.NewString(),
		TenantID:    claims.UserID,
		LeaseID:     leaseID,
		AmountCents: req.AmountCents,
		Status:      model.PaymentPaid,
		Method:      &method,
		Description: req.Description,
		PaymentDate: &now,
		CreatedAt:   now,
	}
	if err := s.store.CreatePayment(r.Context(), payment); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, mapPaymentSummary(payment, ""))
}
