package api

import (
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/dispatch"

	"github.com/shopspring/decimal"
)

type WelcomeRequest struct {
	UserID int64 `json:"user_id" validate:"required,min=1"`
}

type PolicyCreatedRequest struct {
	PolicyID int64 `json:"policy_id" validate:"required,min=1"`
}

type PaymentConfirmationRequest struct {
	PaymentID int64 `json:"payment_id" validate:"required,min=1"`
}

type BulkRequest struct {
	UserIDs          []int64                `json:"user_ids" validate:"required,min=1,dive,min=1"`
	NotificationType string                 `json:"notification_type" validate:"required"`
	Data             map[string]interface{} `json:"data"`
}

// Response is the envelope of every API reply.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type WelcomeData struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

type PolicyCreatedData struct {
	PolicyID   int64   `json:"policy_id"`
	CustomerID *int64  `json:"customer_id"`
	UserEmail  *string `json:"user_email"`
}

type PaymentConfirmationData struct {
	PaymentID int64           `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type BulkData = models.BulkResult

type HistoryData = dispatch.History
