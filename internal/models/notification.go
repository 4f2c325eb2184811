package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a notification type.
type Kind string

const (
	KindWelcome             Kind = "welcome"
	KindPolicyCreated       Kind = "policy_created"
	KindPaymentConfirmation Kind = "payment_confirmation"
)

func (k Kind) String() string { return string(k) }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindWelcome, KindPolicyCreated, KindPaymentConfirmation:
		return true
	}
	return false
}

// NotificationRecord is the persisted history entry written once per
// successful dispatch.
type NotificationRecord struct {
	ID          uuid.UUID       `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	Type        Kind            `json:"type"`
	Payload     json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	ReadAt      *time.Time      `json:"read_at"`
}

// NotificationPage is one page of a user's history.
type NotificationPage struct {
	CurrentPage int                  `json:"current_page"`
	Data        []NotificationRecord `json:"data"`
	PerPage     int                  `json:"per_page"`
	Total       int                  `json:"total"`
	LastPage    int                  `json:"last_page"`
}

// NewNotificationPage computes pagination metadata. LastPage is at least 1.
func NewNotificationPage(records []NotificationRecord, page, perPage, total int) NotificationPage {
	lastPage := 1
	if perPage > 0 && total > 0 {
		lastPage = (total + perPage - 1) / perPage
	}
	if records == nil {
		records = []NotificationRecord{}
	}
	return NotificationPage{
		CurrentPage: page,
		Data:        records,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// BulkResult aggregates a bulk dispatch. Errors keep input order.
type BulkResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}
