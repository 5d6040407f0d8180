package model

import (
	"errors"
	"time"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Admin status edits are a free choice among the four values; there is no
// transition table. Only enum membership is checked.
func ValidMaintenanceStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type MaintenanceRequest struct {
	ID                  string
	TenantID            string
	Title               string
	Description         string
	Status              string
	Priority            string
	Category            string
	AssignedTo          *string
	AdminNotes          *string
	EstimatedCompletion *time.Time
	Rating              *int
	TenantFeedback      *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// CanSubmitFeedback reports whether the owning tenant may still rate the
// request: completed, and never rated before.
func (r *MaintenanceRequest) CanSubmitFeedback() bool {
	return r.Status == StatusCompleted && r.Rating == nil
}

type Attachment struct {
	ID               string
	RequestID        string
	OriginalFilename string
	FileType         string
	MimeType         string
	FileSize         int64
	StoragePath      string
	CreatedAt        time.Time
}

var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedType = errors.New("unsupported file format")
)

var allowedMimeTypes = map[string]string{
	"image/jpeg": "IMAGE",
	"image/jpg":  "IMAGE",
	"image/png":  "IMAGE",
	"image/gif":  "IMAGE",
	"image/webp": "IMAGE",
	"application/pdf":    "PDF",
	"application/msword": "DOCUMENT",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "DOCUMENT",
	"text/plain": "TEXT",
}

// ValidateAttachment checks an upload against the size cap and the MIME
// allow-list and returns the portal file type label.
func ValidateAttachment(mimeType string, size, maxBytes int64) (string, error) {
	if size > maxBytes {
		return "", ErrFileTooLarge
	}
	fileType, ok := allowedMimeTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fileType, nil
}
