package formatter

import (
	"encoding/json"
	"testing"
	"time"

	"insurance-notifications/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func newTestFormatter() *Formatter {
	return New("", "https://app.insuremore.test/")
}

// ==========================
// Welcome
// ==========================

func TestFormat_Welcome(t *testing.T) {
	f := newTestFormatter()
	user := &models.User{ID: 1, FirstName: "John", LastName: "Doe", Email: "john@example.com"}

	n, err := f.Format(WelcomeEvent{User: user})
	require.NoError(t, err)

	assert.Equal(t, models.KindWelcome, n.Kind)
	assert.Equal(t, "Welcome to InsureMore!", n.Message.Subject)
	assert.Equal(t, "John Doe", n.Message.GreetingName)
	assert.Equal(t, "Your account has been successfully created with the email: john@example.com", n.Message.Lines[2])
	assert.Equal(t, "Get Started", n.Message.ActionLabel)
	assert.Equal(t, "https://app.insuremore.test/dashboard", n.Message.ActionURL)
	assert.Equal(t, "Thank you for choosing InsureMore!", n.Message.Outro[1])

	raw, err := json.Marshal(n.Summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"user_id": 1,
		"user_name": "John Doe",
		"user_email": "john@example.com",
		"notification_type": "welcome"
	}`, string(raw))
}

func TestFormat_WelcomeWithBulkData(t *testing.T) {
	f := newTestFormatter()
	user := &models.User{ID: 1, Email: "john@example.com"}

	n, err := f.Format(WelcomeEvent{User: user, Data: map[string]interface{}{"campaign": "autumn"}})
	require.NoError(t, err)

	summary := n.Summary.(WelcomeSummary)
	assert.Equal(t, "autumn", summary.Data["campaign"])
	assert.Equal(t, "", summary.UserName)
	assert.Equal(t, FallbackGreeting, n.Message.GreetingName)
}

func TestGreetingName(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want string
	}{
		{"full name", &models.User{FirstName: "John", LastName: "Doe"}, "John Doe"},
		{"blank names", &models.User{FirstName: " ", LastName: ""}, "Valued Customer"},
		{"no user", nil, "Valued Customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GreetingName(tt.user))
		})
	}
}

// ==========================
// Policy Created
// ==========================

func TestFormat_PolicyCreated(t *testing.T) {
	created := time.Date(2025, 9, 5, 11, 12, 44, 0, time.UTC)

	tests := []struct {
		name         string
		provider     *models.Provider
		wantProvider string
		wantID       *int64
	}{
		{"named provider", &models.Provider{ID: 4, Name: "Acme Insurance"}, "Provider: Acme Insurance", i64(4)},
		{"unnamed provider", &models.Provider{ID: 4}, "Provider: Your Insurance Provider", i64(4)},
		{"no provider", nil, "Provider: Your Insurance Provider", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFormatter()
			policy := &models.Policy{ID: 42, CustomerID: i64(7), CreatedAt: created}

			n, err := f.Format(PolicyCreatedEvent{
				Policy:   policy,
				Provider: tt.provider,
				Holder:   &models.User{FirstName: "Jane", LastName: "Roe"},
			})
			require.NoError(t, err)

			assert.Equal(t, "Your Insurance Policy Has Been Created", n.Message.Subject)
			assert.Equal(t, "Jane Roe", n.Message.GreetingName)
			assert.Equal(t, []string{
				"Great news! Your insurance policy has been successfully created.",
				"Policy ID: #42",
				tt.wantProvider,
				"Created on: September 5, 2025",
			}, n.Message.Lines)
			assert.Equal(t, "https://app.insuremore.test/policies/42", n.Message.ActionURL)

			summary := n.Summary.(PolicyCreatedSummary)
			assert.Equal(t, tt.wantID, summary.ProviderID)
			assert.Equal(t, i64(7), summary.CustomerID)
		})
	}
}

func TestFormat_PolicyCreated_MissingDate(t *testing.T) {
	n, err := newTestFormatter().Format(PolicyCreatedEvent{Policy: &models.Policy{ID: 1}})
	require.NoError(t, err)

	assert.Equal(t, "Created on: Unknown", n.Message.Lines[3])
	assert.Equal(t, "Policy ID: #1", n.Message.Lines[1])
	assert.Nil(t, n.Summary.(PolicyCreatedSummary).CreatedAt)
}

// ==========================
// Payment Confirmation
// ==========================

func TestFormat_PaymentConfirmation(t *testing.T) {
	created := time.Date(2025, 9, 5, 9, 0, 0, 0, time.UTC)
	paid := time.Date(2025, 9, 6, 14, 30, 0, 0, time.UTC)

	payment := &models.Payment{
		ID:               9,
		PaymentReference: "PAY-000000000009",
		Amount:           decimal.NewNullDecimal(decimal.RequireFromString("299.99")),
		Method:           "card",
		Status:           "successful",
		PaidAt:           &paid,
		CreatedAt:        created,
	}

	n, err := newTestFormatter().Format(PaymentConfirmationEvent{
		Payment: payment,
		Payer:   &models.User{FirstName: "John", LastName: "Doe"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Payment Confirmation - InsureMore", n.Message.Subject)
	assert.Equal(t, []string{
		"We have successfully received your payment.",
		"Payment Reference: PAY-000000000009",
		"Amount: $299.99",
		"Payment Date: September 6, 2025 2:30 PM",
		"Payment Method: Card",
		"Status: Successful",
	}, n.Message.Lines)
	assert.Equal(t, "View Payment Details", n.Message.ActionLabel)
	assert.Equal(t, "https://app.insuremore.test/payments/9", n.Message.ActionURL)
	assert.Len(t, n.Message.Outro, 3)

	raw, err := json.Marshal(n.Summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"payment_id": 9,
		"payment_reference": "PAY-000000000009",
		"amount": "299.99",
		"payment_method": "card",
		"status": "successful",
		"notification_type": "payment_confirmation",
		"payment_date": "2025-09-06T14:30:00Z"
	}`, string(raw))
}

func TestFormat_PaymentConfirmation_Fallbacks(t *testing.T) {
	created := time.Date(2025, 9, 5, 9, 5, 0, 0, time.UTC)

	n, err := newTestFormatter().Format(PaymentConfirmationEvent{
		Payment: &models.Payment{ID: 9, CreatedAt: created},
	})
	require.NoError(t, err)

	assert.Equal(t, FallbackGreeting, n.Message.GreetingName)
	assert.Equal(t, []string{
		"We have successfully received your payment.",
		"Payment Reference: Unknown",
		"Amount: Unknown",
		"Payment Date: September 5, 2025 9:05 AM",
		"Payment Method: Unknown",
		"Status: Unknown",
	}, n.Message.Lines)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.NullDecimal
		want string
	}{
		{decimal.NewNullDecimal(decimal.RequireFromString("299.99")), "$299.99"},
		{decimal.NewNullDecimal(decimal.RequireFromString("50")), "$50.00"},
		{decimal.NewNullDecimal(decimal.RequireFromString("1250.5")), "$1,250.50"},
		{decimal.NewNullDecimal(decimal.RequireFromString("1234567.891")), "$1,234,567.89"},
		{decimal.NewNullDecimal(decimal.RequireFromString("-20")), "$-20.00"},
		{decimal.NewNullDecimal(decimal.RequireFromString("-1250.5")), "$-1,250.50"},
		{decimal.NullDecimal{}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.in))
		})
	}
}

func TestUcfirst(t *testing.T) {
	assert.Equal(t, "Mobile_money", ucfirst("mobile_money"))
	assert.Equal(t, "", ucfirst(""))
	assert.Equal(t, "Card", ucfirst("Card"))
}

func TestFormat_Unsupported(t *testing.T) {
	_, err := newTestFormatter().Format(nil)
	assert.Error(t, err)

	_, err = newTestFormatter().Format(WelcomeEvent{})
	assert.Error(t, err)
}

// ==========================
// Rendering
// ==========================

func TestMessage_Render(t *testing.T) {
	n, err := newTestFormatter().Format(WelcomeEvent{
		User: &models.User{ID: 1, FirstName: "<John>", Email: "john@example.com"},
	})
	require.NoError(t, err)

	html, text, err := n.Message.Render()
	require.NoError(t, err)

	assert.Contains(t, html, "Hello &lt;John&gt;!")
	assert.Contains(t, html, `href="https://app.insuremore.test/dashboard"`)
	assert.Contains(t, text, "Hello <John>!")
	assert.Contains(t, text, "Get Started: https://app.insuremore.test/dashboard")
	assert.Contains(t, text, "Thank you for choosing InsureMore!")
}
