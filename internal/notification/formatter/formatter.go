// Package formatter turns domain events into a persisted summary and a mail
// message.
package formatter

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"insurance-notifications/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultAppName   = "InsureMore"
	FallbackGreeting = "Valued Customer"
	FallbackProvider = "Your Insurance Provider"
	Unknown          = "Unknown"

	dateLayout     = "January 2, 2006"
	dateTimeLayout = "January 2, 2006 3:04 PM"
)

// Message is the rendered content of one notification.
type Message struct {
	Subject      string
	Greeting     string
	GreetingName string
	Lines        []string
	ActionLabel  string
	ActionURL    string
	Outro        []string
}

// Notification is the formatter output: Summary is persisted, Message is sent.
type Notification struct {
	Kind    models.Kind
	Summary interface{}
	Message Message
}

type Formatter struct {
	appName string
	appURL  string
}

// New returns a Formatter building action links under appURL.
func New(appName, appURL string) *Formatter {
	if appName == "" {
		appName = DefaultAppName
	}
	return &Formatter{
		appName: appName,
		appURL:  strings.TrimRight(appURL, "/"),
	}
}

func (f *Formatter) Format(e Event) (*Notification, error) {
	switch ev := e.(type) {
	case WelcomeEvent:
		if ev.User == nil {
			return nil, fmt.Errorf("welcome event without user")
		}
		return f.welcome(ev), nil
	case PolicyCreatedEvent:
		if ev.Policy == nil {
			return nil, fmt.Errorf("policy created event without policy")
		}
		return f.policyCreated(ev), nil
	case PaymentConfirmationEvent:
		if ev.Payment == nil {
			return nil, fmt.Errorf("payment confirmation event without payment")
		}
		return f.paymentConfirmation(ev), nil
	default:
		return nil, fmt.Errorf("unsupported event %T", e)
	}
}

func (f *Formatter) url(path string) string {
	return f.appURL + path
}

func (f *Formatter) welcome(ev WelcomeEvent) *Notification {
	u := ev.User
	return &Notification{
		Kind: models.KindWelcome,
		Summary: WelcomeSummary{
			UserID:           u.ID,
			UserName:         u.FullName(),
			UserEmail:        u.Email,
			NotificationType: models.KindWelcome,
			Data:             ev.Data,
		},
		Message: Message{
			Subject:      fmt.Sprintf("Welcome to %s!", f.appName),
			Greeting:     "Hello",
			GreetingName: GreetingName(u),
			Lines: []string{
				fmt.Sprintf("Welcome to %s, your trusted insurance partner.", f.appName),
				"We are excited to have you on board and look forward to providing you with the best insurance solutions.",
				"Your account has been successfully created with the email: " + orUnknown(u.Email),
			},
			ActionLabel: "Get Started",
			ActionURL:   f.url("/dashboard"),
			Outro: []string{
				"If you have any questions, feel free to contact our support team.",
				fmt.Sprintf("Thank you for choosing %s!", f.appName),
			},
		},
	}
}

func (f *Formatter) policyCreated(ev PolicyCreatedEvent) *Notification {
	p := ev.Policy

	providerName := FallbackProvider
	var providerID *int64
	if ev.Provider != nil {
		id := ev.Provider.ID
		providerID = &id
		if strings.TrimSpace(ev.Provider.Name) != "" {
			providerName = ev.Provider.Name
		}
	}

	return &Notification{
		Kind: models.KindPolicyCreated,
		Summary: PolicyCreatedSummary{
			PolicyID:         p.ID,
			CustomerID:       p.CustomerID,
			ProviderID:       providerID,
			NotificationType: models.KindPolicyCreated,
			CreatedAt:        timeOrNil(p.CreatedAt),
		},
		Message: Message{
			Subject:      "Your Insurance Policy Has Been Created",
			Greeting:     "Hello",
			GreetingName: GreetingName(ev.Holder),
			Lines: []string{
				"Great news! Your insurance policy has been successfully created.",
				fmt.Sprintf("Policy ID: #%d", p.ID),
				"Provider: " + providerName,
				"Created on: " + formatTime(p.CreatedAt, dateLayout),
			},
			ActionLabel: "View Policy Details",
			ActionURL:   f.url(fmt.Sprintf("/policies/%d", p.ID)),
			Outro: []string{
				"Please keep this information for your records.",
				"If you have any questions about your policy, please contact our customer service team.",
				fmt.Sprintf("Thank you for choosing %s!", f.appName),
			},
		},
	}
}

func (f *Formatter) paymentConfirmation(ev PaymentConfirmationEvent) *Notification {
	p := ev.Payment

	paymentDate := p.CreatedAt
	if p.PaidAt != nil && !p.PaidAt.IsZero() {
		paymentDate = *p.PaidAt
	}

	return &Notification{
		Kind: models.KindPaymentConfirmation,
		Summary: PaymentConfirmationSummary{
			PaymentID:        p.ID,
			PaymentReference: p.PaymentReference,
			Amount:           p.Amount,
			PaymentMethod:    p.Method,
			Status:           p.Status,
			NotificationType: models.KindPaymentConfirmation,
			PaymentDate:      timeOrNil(paymentDate),
		},
		Message: Message{
			Subject:      fmt.Sprintf("Payment Confirmation - %s", f.appName),
			Greeting:     "Hello",
			GreetingName: GreetingName(ev.Payer),
			Lines: []string{
				"We have successfully received your payment.",
				"Payment Reference: " + orUnknown(p.PaymentReference),
				"Amount: " + FormatAmount(p.Amount),
				"Payment Date: " + formatTime(paymentDate, dateTimeLayout),
				"Payment Method: " + orUnknown(ucfirst(p.Method)),
				"Status: " + orUnknown(ucfirst(p.Status)),
			},
			ActionLabel: "View Payment Details",
			ActionURL:   f.url(fmt.Sprintf("/payments/%d", p.ID)),
			Outro: []string{
				"Your payment has been processed and your account has been updated accordingly.",
				fmt.Sprintf("Thank you for your payment and for choosing %s!", f.appName),
				"If you have any questions about this payment, please contact our customer service team.",
			},
		},
	}
}

// GreetingName is the user's full name, or the generic fallback.
func GreetingName(u *models.User) string {
	if u == nil {
		return FallbackGreeting
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return FallbackGreeting
}

// FormatAmount renders "$1,234.50", or "$-20.00" for a refund. A missing
// amount renders Unknown.
func FormatAmount(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return Unknown
	}

	fixed := amount.Decimal.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}

	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return "$" + sign + b.String() + "." + frac
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return Unknown
	}
	return t.Format(layout)
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// ucfirst upper-cases only the first rune, leaving the rest untouched.
func ucfirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
