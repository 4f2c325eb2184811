package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"insurance-notifications/internal/common/logger"
	"insurance-notifications/internal/common/metrics"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/notification/delivery"
	"insurance-notifications/internal/notification/formatter"
	"insurance-notifications/internal/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// ==========================
// Mocks
// ==========================

type delivered struct {
	User         *models.User
	Notification *formatter.Notification
}

type MockDeliverer struct {
	DeliverFunc func(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error)

	mu   sync.Mutex
	sent []delivered
}

func (m *MockDeliverer) Deliver(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error) {
	if m.DeliverFunc != nil {
		if rec, err := m.DeliverFunc(ctx, user, n); err != nil {
			return rec, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, delivered{User: user, Notification: n})
	return &models.NotificationRecord{RecipientID: user.ID, Type: n.Kind}, nil
}

func (m *MockDeliverer) Sent() []delivered {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivered(nil), m.sent...)
}

type MockProviderLookup struct {
	FindProviderFunc func(ctx context.Context, id int64) (*models.Provider, error)
}

func (m *MockProviderLookup) FindProvider(ctx context.Context, id int64) (*models.Provider, error) {
	return m.FindProviderFunc(ctx, id)
}

// ==========================
// Test Helper Functions
// ==========================

type fixture struct {
	store   *storetest.Memory
	channel *MockDeliverer
	logs    *observer.ObservedLogs
	service *Service
}

func seededStore() *storetest.Memory {
	m := storetest.NewMemory()
	m.Users[1] = &models.User{ID: 1, FirstName: "John", LastName: "Doe", Email: "john@example.com"}
	m.Users[2] = &models.User{ID: 2, FirstName: "Jane", LastName: "Roe", Email: "jane@example.com"}
	m.Users[3] = &models.User{ID: 3, Email: "anon@example.com"}
	m.Users[4] = &models.User{ID: 4, FirstName: "No", LastName: "Mail"}

	m.Customers[10] = &models.Customer{ID: 10, UserID: storetest.Int64(1)}
	m.Customers[11] = &models.Customer{ID: 11}

	m.Providers[5] = &models.Provider{ID: 5, Name: "Acme Insurance"}

	m.Orders[300] = &models.Order{ID: 300, CustomerID: storetest.Int64(10), OrderReference: "ORD-300"}
	return m
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	f := &fixture{
		store:   seededStore(),
		channel: &MockDeliverer{},
		logs:    logs,
	}
	f.service = NewService(ServiceDependencies{
		Lookup:        f.store,
		Notifications: f.store,
		Channel:       f.channel,
		Formatter:     formatter.New("InsureMore", "https://app.insuremore.test"),
		Logger:        logger.NewZapAdapter(zap.New(core)),
	}, cfg)
	return f
}

func (f *fixture) messages(level string) []string {
	var out []string
	for _, entry := range f.logs.All() {
		if entry.Level.String() == level {
			out = append(out, entry.Message)
		}
	}
	return out
}

func paymentOf(id int64, amount string, method string) *models.Payment {
	paidAt := time.Date(2025, 9, 20, 14, 30, 0, 0, time.UTC)
	return &models.Payment{
		ID:               id,
		PaymentReference: "PAY-001",
		Amount:           decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Method:           method,
		Status:           "completed",
		PaidAt:           &paidAt,
		CreatedAt:        paidAt,
	}
}

func lines(n *formatter.Notification) string {
	return strings.Join(n.Message.Lines, "\n")
}

// ==========================
// Welcome
// ==========================

func TestSendWelcome(t *testing.T) {
	f := newFixture(t, nil)

	ok := f.service.SendWelcome(context.Background(), f.store.Users[1])

	assert.True(t, ok)
	sent := f.channel.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(1), sent[0].User.ID)
	assert.Equal(t, models.KindWelcome, sent[0].Notification.Kind)
	assert.Equal(t, "John Doe", sent[0].Notification.Message.GreetingName)
	assert.Equal(t, []string{"Welcome notification sent"}, f.messages("info"))
}

func TestSendWelcome_FallbackGreeting(t *testing.T) {
	f := newFixture(t, nil)

	require.True(t, f.service.SendWelcome(context.Background(), f.store.Users[3]))
	assert.Equal(t, "Valued Customer", f.channel.Sent()[0].Notification.Message.GreetingName)
}

func TestSendWelcome_NoAddress(t *testing.T) {
	f := newFixture(t, nil)
	skipped := metrics.NotificationsDispatched.WithLabelValues("welcome", metrics.OutcomeSkipped)
	failed := metrics.NotificationsDispatched.WithLabelValues("welcome", metrics.OutcomeFailed)
	skippedBefore, failedBefore := testutil.ToFloat64(skipped), testutil.ToFloat64(failed)

	assert.False(t, f.service.SendWelcome(context.Background(), f.store.Users[4]))
	assert.Empty(t, f.channel.Sent())
	assert.Empty(t, f.messages("error"))
	assert.Equal(t, []string{"Welcome notification skipped: no email address"}, f.messages("warn"))
	assert.Equal(t, int64(4), f.logs.FilterMessage("Welcome notification skipped: no email address").All()[0].ContextMap()["user_id"])
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(skipped))
	assert.Equal(t, failedBefore, testutil.ToFloat64(failed))
}

func TestSendWelcome_DeliveryFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.channel.DeliverFunc = func(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error) {
		return nil, errors.New("ses throttled")
	}

	assert.False(t, f.service.SendWelcome(context.Background(), f.store.Users[1]))

	entries := f.logs.FilterMessage("Failed to send welcome notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ses throttled", entries[0].ContextMap()["error"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["user_id"])
}

func TestSendWelcome_NilUser(t *testing.T) {
	f := newFixture(t, nil)
	assert.False(t, f.service.SendWelcome(context.Background(), nil))
}

// ==========================
// Policy Created
// ==========================

func TestSendPolicyCreated(t *testing.T) {
	f := newFixture(t, nil)
	policy := &models.Policy{
		ID:         100,
		CustomerID: storetest.Int64(10),
		ProviderID: storetest.Int64(5),
		CreatedAt:  time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, f.service.SendPolicyCreated(context.Background(), policy))

	sent := f.channel.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "john@example.com", sent[0].User.Email)
	assert.Equal(t, "John Doe", sent[0].Notification.Message.GreetingName)
	assert.Contains(t, lines(sent[0].Notification), "Provider: Acme Insurance")
	assert.Contains(t, lines(sent[0].Notification), "Policy ID: #100")

	entries := f.logs.FilterMessage("Policy created notification sent").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(100), fields["policy_id"])
	assert.Equal(t, int64(10), fields["customer_id"])
	assert.Equal(t, "john@example.com", fields["user_email"])
	assert.Equal(t, "policy.customer.user", fields["resolved_via"])
}

func TestSendPolicyCreated_Skipped(t *testing.T) {
	tests := []struct {
		name   string
		policy *models.Policy
	}{
		{name: "no customer", policy: &models.Policy{ID: 101}},
		{name: "unknown customer", policy: &models.Policy{ID: 102, CustomerID: storetest.Int64(99)}},
		{name: "customer without user", policy: &models.Policy{ID: 103, CustomerID: storetest.Int64(11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			skipped := metrics.NotificationsDispatched.WithLabelValues("policy_created", metrics.OutcomeSkipped)
			before := testutil.ToFloat64(skipped)

			assert.False(t, f.service.SendPolicyCreated(context.Background(), tt.policy))
			assert.Empty(t, f.channel.Sent())
			assert.Equal(t, []string{"Policy notification skipped: no customer or user found"}, f.messages("warn"))
			assert.Equal(t, before+1, testutil.ToFloat64(skipped))
		})
	}
}

func TestSendPolicyCreated_ProviderFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.service.providers = &MockProviderLookup{FindProviderFunc: func(ctx context.Context, id int64) (*models.Provider, error) {
		return nil, errors.New("redis down and postgres down")
	}}

	policy := &models.Policy{ID: 100, CustomerID: storetest.Int64(10), ProviderID: storetest.Int64(5)}
	assert.True(t, f.service.SendPolicyCreated(context.Background(), policy))

	sent := f.channel.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, lines(sent[0].Notification), "Provider: "+formatter.FallbackProvider)
	assert.Contains(t, lines(sent[0].Notification), "Created on: Unknown")
}

func TestSendPolicyCreated_StoreError(t *testing.T) {
	f := newFixture(t, nil)
	f.store.Err = errors.New("connection reset")
	f.store.FailOn = "FindCustomer"

	policy := &models.Policy{ID: 100, CustomerID: storetest.Int64(10)}
	assert.False(t, f.service.SendPolicyCreated(context.Background(), policy))
	assert.Empty(t, f.channel.Sent())

	entries := f.logs.FilterMessage("Failed to send policy created notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection reset", entries[0].ContextMap()["error"])
}

// ==========================
// Payment Confirmation
// ==========================

func TestSendPaymentConfirmation(t *testing.T) {
	f := newFixture(t, nil)
	payment := paymentOf(200, "299.99", "card")
	payment.UserID = storetest.Int64(1)

	assert.True(t, f.service.SendPaymentConfirmation(context.Background(), payment))

	sent := f.channel.Sent()
	require.Len(t, sent, 1)
	body := lines(sent[0].Notification)
	assert.Contains(t, body, "Amount: $299.99")
	assert.Contains(t, body, "Payment Method: Card")
	assert.Contains(t, body, "Payment Date: September 20, 2025 2:30 PM")
	assert.Equal(t, []string{"Payment confirmation notification sent"}, f.messages("info"))
}

func TestSendPaymentConfirmation_Resolution(t *testing.T) {
	tests := []struct {
		name      string
		userID    *int64
		orderID   *int64
		wantEmail string
		wantVia   string
	}{
		{
			name:      "direct user preferred over order",
			userID:    storetest.Int64(2),
			orderID:   storetest.Int64(300),
			wantEmail: "jane@example.com",
			wantVia:   "payment.user",
		},
		{
			name:      "order customer fallback",
			orderID:   storetest.Int64(300),
			wantEmail: "john@example.com",
			wantVia:   "payment.order.customer.user",
		},
		{
			name:      "dangling user link falls back to order",
			userID:    storetest.Int64(77),
			orderID:   storetest.Int64(300),
			wantEmail: "john@example.com",
			wantVia:   "payment.order.customer.user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			payment := paymentOf(201, "10.00", "transfer")
			payment.UserID = tt.userID
			payment.OrderID = tt.orderID

			require.True(t, f.service.SendPaymentConfirmation(context.Background(), payment))
			sent := f.channel.Sent()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.wantEmail, sent[0].User.Email)

			entries := f.logs.FilterMessage("Payment confirmation notification sent").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantVia, entries[0].ContextMap()["resolved_via"])
		})
	}
}

func TestSendPaymentConfirmation_NoUser(t *testing.T) {
	f := newFixture(t, nil)
	payment := paymentOf(202, "10.00", "card")

	assert.False(t, f.service.SendPaymentConfirmation(context.Background(), payment))
	assert.Empty(t, f.channel.Sent())
	assert.Equal(t, []string{"Payment confirmation skipped: no user found"}, f.messages("warn"))
}

func TestSendPaymentConfirmation_DeliveryFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.channel.DeliverFunc = func(ctx context.Context, user *models.User, n *formatter.Notification) (*models.NotificationRecord, error) {
		return nil, errors.New("message rejected")
	}
	payment := paymentOf(203, "10.00", "card")
	payment.UserID = storetest.Int64(1)

	assert.False(t, f.service.SendPaymentConfirmation(context.Background(), payment))
	assert.Equal(t, []string{"Failed to send payment confirmation notification"}, f.messages("error"))
}

// ==========================
// Through the delivery channel
// ==========================

func TestSendWelcome_RepeatedSendsAreIndependent(t *testing.T) {
	store := seededStore()
	var sentMail []*ses.SendEmailInput
	mailer := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		sentMail = append(sentMail, params)
		return &ses.SendEmailOutput{MessageId: aws.String("m")}, nil
	}}

	channel := delivery.NewChannel(delivery.Config{FromEmail: "no-reply@insuremore.test"}, mailer, store, logger.NewNoOpLogger())
	service := NewService(ServiceDependencies{
		Lookup:        store,
		Notifications: store,
		Channel:       channel,
	}, nil)

	user := store.Users[1]
	assert.True(t, service.SendWelcome(context.Background(), user))
	assert.True(t, service.SendWelcome(context.Background(), user))

	require.Len(t, sentMail, 2)
	assert.Equal(t, []string{"john@example.com"}, sentMail[0].Destination.ToAddresses)
	assert.Contains(t, *sentMail[0].Message.Body.Text.Data, "Hello John Doe!")

	records := store.RecordsOf(1)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.Equal(t, models.KindWelcome, records[0].Type)
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}
