package portal

import "fmt"

const (
	RoleAdmin  = "ADMIN"
	RoleTenant = "TENANT"
)

type User struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Role        string  `json:"role"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// APIError is a non-2xx response decoded from the server envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Code)
}

type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type MaintenanceRequest struct {
	ID                  string       `json:"id"`
	TenantID            string       `json:"tenantId"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              string       `json:"status"`
	Priority            string       `json:"priority"`
	Category            string       `json:"category"`
	AssignedTo          *string      `json:"assignedTo,omitempty"`
	AdminNotes          *string      `json:"adminNotes,omitempty"`
	EstimatedCompletion *string      `json:"estimatedCompletion,omitempty"`
	Rating              *int         `json:"rating,omitempty"`
	TenantFeedback      *string      `json:"tenantFeedback,omitempty"`
	Files               []Attachment `json:"files"`
	CreatedAt           string       `json:"createdAt"`
	UpdatedAt           string       `json:"updatedAt"`
	CompletedAt         *string      `json:"completedAt,omitempty"`
}

type Attachment struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"originalFilename"`
	FileType         string `json:"fileType"`
	MimeType         string `json:"mimeType"`
	FileSize         int64  `json:"fileSize"`
	CreatedAt        string `json:"createdAt"`
}

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// CanSubmitFeedback mirrors the server rule: completed, never rated.
func (r *MaintenanceRequest) CanSubmitFeedback() bool {
	return r.Status == StatusCompleted && r.Rating == nil
}

// Page carries one page of results plus the page count the server reports.
type Page[T any] struct {
	Items      []T
	TotalPages int
}
