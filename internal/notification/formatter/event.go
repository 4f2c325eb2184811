package formatter

import "insurance-notifications/internal/models"

// Event is a domain event that can be turned into a notification. The set of
// implementations is closed.
type Event interface {
	Kind() models.Kind
	event()
}

type WelcomeEvent struct {
	User *models.User
	// Data is the optional bulk payload, carried into the summary.
	Data map[string]interface{}
}

type PolicyCreatedEvent struct {
	Policy   *models.Policy
	Provider *models.Provider
	// Holder is used only for the greeting.
	Holder *models.User
}

type PaymentConfirmationEvent struct {
	Payment *models.Payment
	Payer   *models.User
}

func (WelcomeEvent) Kind() models.Kind             { return models.KindWelcome }
func (PolicyCreatedEvent) Kind() models.Kind       { return models.KindPolicyCreated }
func (PaymentConfirmationEvent) Kind() models.Kind { return models.KindPaymentConfirmation }

func (WelcomeEvent) event()             {}
func (PolicyCreatedEvent) event()       {}
func (PaymentConfirmationEvent) event() {}
