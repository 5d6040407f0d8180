package model

import "time"

const (
	RoleAdmin  = "ADMIN"
	RoleTenant = "TENANT"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	PhoneNumber  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

type TenantProfile struct {
	UserID          string
	PropertyAddress *string
	UnitNumber      *string
	MoveInDate      *time.Time
}

const (
	LeaseActive     = "ACTIVE"
	LeaseExpired    = "EXPIRED"
	LeaseTerminated = "TERMINATED"
)

type Lease struct {
	ID               string
	TenantID         string
	PropertyAddress  string
	UnitNumber       string
	StartDate        time.Time
	EndDate          time.Time
	MonthlyRentCents int64
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentOverdue = "OVERDUE"
	PaymentFailed  = "FAILED"
)

type Payment struct {
	ID          string
	TenantID    string
	LeaseID     *string
	AmountCents int64
	Status      string
	Method      *string
	Description *string
	DueDate     *time.Time
	PaymentDate *time.Time
	CreatedAt   time.Time
}

func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentFailed:
		return true
	default:
		return false
	}
}
