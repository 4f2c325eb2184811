package formatter

import (
	"time"

	"insurance-notifications/internal/models"

	"github.com/shopspring/decimal"
)

// WelcomeSummary is the persisted payload of a welcome notification.
type WelcomeSummary struct {
	UserID           int64                  `json:"user_id"`
	UserName         string                 `json:"user_name"`
	UserEmail        string                 `json:"user_email"`
	NotificationType models.Kind            `json:"notification_type"`
	Data             map[string]interface{} `json:"data,omitempty"`
}

type PolicyCreatedSummary struct {
	PolicyID         int64       `json:"policy_id"`
	CustomerID       *int64      `json:"customer_id"`
	ProviderID       *int64      `json:"provider_id"`
	NotificationType models.Kind `json:"notification_type"`
	CreatedAt        *time.Time  `json:"created_at"`
}

type PaymentConfirmationSummary struct {
	PaymentID        int64               `json:"payment_id"`
	PaymentReference string              `json:"payment_reference"`
	Amount           decimal.NullDecimal `json:"amount"`
	PaymentMethod    string              `json:"payment_method"`
	Status           string              `json:"status"`
	NotificationType models.Kind         `json:"notification_type"`
	PaymentDate      *time.Time          `json:"payment_date"`
}
