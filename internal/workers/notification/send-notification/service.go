package sendnotification

import (
	"context"

	"insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/store"
)

type Service struct {
	config     *Config
	logger     logger.Logger
	dispatcher Dispatcher
	lookup     store.Lookup
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:     config,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		lookup:     deps.Lookup,
	}
}

// Execute loads the entity named by the input and dispatches its
// notification. A dispatch that returns false still completes the job.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	output := &Output{NotificationType: input.NotificationType}

	switch input.NotificationType {
	case models.KindWelcome:
		if input.UserID <= 0 {
			return nil, errors.NewValidationFailedError("userId is required for welcome")
		}
		user, err := s.lookup.FindUser(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errors.NewResourceNotFoundError("User", input.UserID)
		}
		output.NotificationSent = s.dispatcher.SendWelcome(ctx, user)

	case models.KindPolicyCreated:
		if input.PolicyID <= 0 {
			return nil, errors.NewValidationFailedError("policyId is required for policy_created")
		}
		policy, err := s.lookup.FindPolicy(ctx, input.PolicyID)
		if err != nil {
			return nil, err
		}
		if policy == nil {
			return nil, errors.NewResourceNotFoundError("Policy", input.PolicyID)
		}
		output.NotificationSent = s.dispatcher.SendPolicyCreated(ctx, policy)

	case models.KindPaymentConfirmation:
		if input.PaymentID <= 0 {
			return nil, errors.NewValidationFailedError("paymentId is required for payment_confirmation")
		}
		payment, err := s.lookup.FindPayment(ctx, input.PaymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, errors.NewResourceNotFoundError("Payment", input.PaymentID)
		}
		output.NotificationSent = s.dispatcher.SendPaymentConfirmation(ctx, payment)

	default:
		return nil, errors.NewUnsupportedNotificationTypeError(input.NotificationType.String())
	}

	s.logger.Info("Notification job executed", map[string]interface{}{
		"notificationType": input.NotificationType.String(),
		"notificationSent": output.NotificationSent,
	})
	return output, nil
}
