package sendnotification

import (
	"context"

	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/store"
)

type Input struct {
	NotificationType models.Kind `json:"notificationType"`
	UserID           int64       `json:"userId,omitempty"`
	PolicyID         int64       `json:"policyId,omitempty"`
	PaymentID        int64       `json:"paymentId,omitempty"`
}

type Output struct {
	NotificationSent bool        `json:"notificationSent"`
	NotificationType models.Kind `json:"notificationType"`
}

// Variables is what the job completes with.
func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"notificationSent": o.NotificationSent,
		"notificationType": o.NotificationType.String(),
	}
}

// Dispatcher sends single notifications.
type Dispatcher interface {
	SendWelcome(ctx context.Context, user *models.User) bool
	SendPolicyCreated(ctx context.Context, policy *models.Policy) bool
	SendPaymentConfirmation(ctx context.Context, payment *models.Payment) bool
}

type ServiceDependencies struct {
	Dispatcher Dispatcher
	Lookup     store.Lookup
	Logger     logger.Logger
}
