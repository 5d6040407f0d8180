package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"propertydesk/internal/model"
)

func (s *Server) handleViewFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "inline")
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "attachment")
}

// serveFile streams a stored attachment. Only the owning tenant or an
// admin may read it.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, disposition string) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	fileID := chi.URLParam(r, "fileId")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "missing_file_id")
		return
	}

	file, err := s.store.GetAttachment(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "file_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if claims.Role != model.RoleAdmin {
		request, err := s.store.GetMaintenanceRequest(r.Context(), file.RequestID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if request.TenantID != claims.UserID {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.OriginalFilename))
	http.ServeFile(w, r, file.StoragePath)
}
