package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is the only notifiable entity.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name, empty when both are blank.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

type Customer struct {
	ID     int64  `json:"id"`
	UserID *int64 `json:"user_id,omitempty"`
}

// Provider is an insurance company, stored in the insurances table.
type Provider struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Policy struct {
	ID           int64     `json:"id"`
	PolicyNumber string    `json:"policy_number"`
	CustomerID   *int64    `json:"customer_id,omitempty"`
	ProviderID   *int64    `json:"provider_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type Order struct {
	ID             int64           `json:"id"`
	CustomerID     *int64          `json:"customer_id,omitempty"`
	OrderReference string          `json:"order_reference"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
}

// Payment links to its payer directly through UserID or indirectly through
// OrderID. Either may be absent.
type Payment struct {
	ID               int64               `json:"id"`
	UserID           *int64              `json:"user_id,omitempty"`
	OrderID          *int64              `json:"order_id,omitempty"`
	PaymentReference string              `json:"payment_reference"`
	Amount           decimal.NullDecimal `json:"amount"`
	Method           string              `json:"payment_method"`
	Status           string              `json:"status"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}
