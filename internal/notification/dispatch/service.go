// Package dispatch sends single and bulk notifications and serves the
// notification history.
package dispatch

import (
	"context"
	"time"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/common/metrics"
	"insurance-notifications/internal/common/observability"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/formatter"
	"insurance-notifications/internal/notification/resolver"
	"insurance-notifications/internal/store"
	"insurance-notifications/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Deliverer sends a notification to one user and records it.
type Deliverer interface {
	Deliver(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error)
}

// ProviderLookup is usually the redis-backed provider cache.
type ProviderLookup interface {
	FindProvider(ctx context.Context, id int64) (*models.Provider, error)
}

type ServiceDependencies struct {
	Lookup        store.Lookup
	Providers     ProviderLookup
	Notifications store.NotificationRepository
	Channel       Deliverer
	Formatter     *formatter.Formatter
	Catalogue     *registry.Catalogue
	Observability *observability.Observability
	Logger        logger.Logger
}

type Config struct {
	HistoryPerPage  int
	BulkConcurrency int
}

type Service struct {
	config    *Config
	lookup    store.Lookup
	providers ProviderLookup
	history   store.NotificationRepository
	resolver  *resolver.Resolver
	channel   Deliverer
	formatter *formatter.Formatter
	catalogue *registry.Catalogue
	obs       *observability.Observability
	logger    logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	if config == nil {
		config = &Config{}
	}
	if config.HistoryPerPage <= 0 {
		config.HistoryPerPage = 20
	}
	if config.BulkConcurrency <= 0 {
		config.BulkConcurrency = 1
	}

	providers := deps.Providers
	if providers == nil {
		providers = deps.Lookup
	}
	f := deps.Formatter
	if f == nil {
		f = formatter.New(formatter.DefaultAppName, "")
	}
	catalogue := deps.Catalogue
	if catalogue == nil {
		catalogue, _ = registry.Default()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		config:    config,
		lookup:    deps.Lookup,
		providers: providers,
		history:   deps.Notifications,
		resolver:  resolver.New(deps.Lookup),
		channel:   deps.Channel,
		formatter: f,
		catalogue: catalogue,
		obs:       deps.Observability,
		logger:    log,
	}
}

// attempt tracks one single-recipient dispatch for tracing and metrics.
type attempt struct {
	s     *Service
	kind  models.Kind
	start time.Time
	span  trace.Span
}

func (s *Service) begin(ctx context.Context, kind models.Kind, attrs ...attribute.KeyValue) (context.Context, *attempt) {
	ctx, span := s.obs.StartSpan(ctx, "notification.dispatch."+kind.String(), attrs...)
	return ctx, &attempt{s: s, kind: kind, start: time.Now(), span: span}
}

func (a *attempt) finish(ctx context.Context, outcome string, err error) {
	elapsed := time.Since(a.start)
	kind := a.kind.String()

	metrics.NotificationsDispatched.WithLabelValues(kind, outcome).Inc()
	metrics.NotificationDispatchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	a.s.obs.RecordDispatch(ctx, kind, outcome, elapsed)

	a.span.SetAttributes(attribute.String("notification.outcome", outcome))
	if err != nil {
		a.span.RecordError(err)
		a.span.SetStatus(codes.Error, err.Error())
	}
	a.span.End()
}

// SendWelcome notifies user that their account exists.
func (s *Service) SendWelcome(ctx context.Context, user *models.User) bool {
	if user == nil {
		return false
	}
	ctx, a := s.begin(ctx, models.KindWelcome, attribute.Int64("user.id", user.ID))

	if !resolver.Notifiable(user) {
		s.logger.Warn("Welcome notification skipped: no email address", map[string]interface{}{
			"user_id": user.ID,
		})
		a.finish(ctx, metrics.OutcomeSkipped, nil)
		return false
	}

	if err := s.deliverWelcome(ctx, user, nil); err != nil {
		s.logger.Error("Failed to send welcome notification", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		a.finish(ctx, metrics.OutcomeFailed, err)
		return false
	}

	s.logger.Info("Welcome notification sent", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	a.finish(ctx, metrics.OutcomeSent, nil)
	return true
}

func (s *Service) deliverWelcome(ctx context.Context, user *models.User, data map[string]interface{}) error {
	if !resolver.Notifiable(user) {
		return apperrors.NewNoRecipientError("user", user.ID)
	}
	n, err := s.formatter.Format(formatter.WelcomeEvent{User: user, Data: data})
	if err != nil {
		return err
	}
	_, err = s.channel.Deliver(ctx, user, n)
	return err
}

// SendPolicyCreated notifies the policy holder. A policy without a customer
// or a customer without a user is skipped.
func (s *Service) SendPolicyCreated(ctx context.Context, policy *models.Policy) bool {
	if policy == nil {
		return false
	}
	ctx, a := s.begin(ctx, models.KindPolicyCreated, attribute.Int64("policy.id", policy.ID))

	fail := func(err error) bool {
		s.logger.Error("Failed to send policy created notification", map[string]interface{}{
			"policy_id": policy.ID,
			"error":     err.Error(),
		})
		a.finish(ctx, metrics.OutcomeFailed, err)
		return false
	}

	recipient, err := s.resolver.ResolvePolicy(ctx, policy)
	if err != nil {
		return fail(err)
	}
	if recipient == nil {
		s.logger.Warn("Policy notification skipped: no customer or user found", map[string]interface{}{
			"policy_id": policy.ID,
		})
		a.finish(ctx, metrics.OutcomeSkipped, nil)
		return false
	}

	n, err := s.formatter.Format(formatter.PolicyCreatedEvent{
		Policy:   policy,
		Provider: s.provider(ctx, policy),
		Holder:   recipient.User,
	})
	if err != nil {
		return fail(err)
	}
	if _, err := s.channel.Deliver(ctx, recipient.User, n); err != nil {
		return fail(err)
	}

	fields := map[string]interface{}{
		"policy_id":    policy.ID,
		"user_id":      recipient.User.ID,
		"user_email":   recipient.User.Email,
		"resolved_via": recipient.Via,
	}
	if policy.CustomerID != nil {
		fields["customer_id"] = *policy.CustomerID
	}
	s.logger.Info("Policy created notification sent", fields)
	a.finish(ctx, metrics.OutcomeSent, nil)
	return true
}

// provider loads the policy's provider. Failures only cost the provider name.
func (s *Service) provider(ctx context.Context, policy *models.Policy) *models.Provider {
	if policy.ProviderID == nil || s.providers == nil {
		return nil
	}
	p, err := s.providers.FindProvider(ctx, *policy.ProviderID)
	if err != nil {
		s.logger.Warn("Provider lookup failed, using fallback name", map[string]interface{}{
			"policy_id":   policy.ID,
			"provider_id": *policy.ProviderID,
			"error":       err.Error(),
		})
		return nil
	}
	return p
}

// SendPaymentConfirmation notifies the payer found through the payment's
// direct user link or its order's customer.
func (s *Service) SendPaymentConfirmation(ctx context.Context, payment *models.Payment) bool {
	if payment == nil {
		return false
	}
	ctx, a := s.begin(ctx, models.KindPaymentConfirmation, attribute.Int64("payment.id", payment.ID))

	fail := func(err error) bool {
		s.logger.Error("Failed to send payment confirmation notification", map[string]interface{}{
			"payment_id": payment.ID,
			"error":      err.Error(),
		})
		a.finish(ctx, metrics.OutcomeFailed, err)
		return false
	}

	recipient, err := s.resolver.ResolvePayment(ctx, payment)
	if err != nil {
		return fail(err)
	}
	if recipient == nil {
		s.logger.Warn("Payment confirmation skipped: no user found", map[string]interface{}{
			"payment_id": payment.ID,
		})
		a.finish(ctx, metrics.OutcomeSkipped, nil)
		return false
	}

	n, err := s.formatter.Format(formatter.PaymentConfirmationEvent{Payment: payment, Payer: recipient.User})
	if err != nil {
		return fail(err)
	}
	if _, err := s.channel.Deliver(ctx, recipient.User, n); err != nil {
		return fail(err)
	}

	s.logger.Info("Payment confirmation notification sent", map[string]interface{}{
		"payment_id":   payment.ID,
		"user_id":      recipient.User.ID,
		"user_email":   recipient.User.Email,
		"resolved_via": recipient.Via,
	})
	a.finish(ctx, metrics.OutcomeSent, nil)
	return true
}
