// Package resolver finds the user who should receive a notification about a
// policy or a payment.
package resolver

import (
	"context"

	"insurance-notifications/internal/common/validation"
	"insurance-notifications/internal/models"
	"insurance-notifications/internal/store"
)

// Recipient is a resolved user and the name of the strategy that found it.
type Recipient struct {
	User *models.User
	Via  string
}

// Strategy is one way of walking from an entity to a user. It returns
// (nil, nil) when its path has a missing link.
type Strategy[T any] struct {
	Name    string
	Resolve func(ctx context.Context, entity *T) (*models.User, error)
}

// Resolver walks ordered strategies over the data lookup.
type Resolver struct {
	lookup  store.Lookup
	policy  []Strategy[models.Policy]
	payment []Strategy[models.Payment]
}

func New(lookup store.Lookup) *Resolver {
	r := &Resolver{lookup: lookup}
	r.policy = []Strategy[models.Policy]{
		{Name: "policy.customer.user", Resolve: r.policyCustomerUser},
	}
	r.payment = []Strategy[models.Payment]{
		{Name: "payment.user", Resolve: r.paymentUser},
		{Name: "payment.order.customer.user", Resolve: r.paymentOrderCustomerUser},
	}
	return r
}

// ResolvePolicy returns the policy holder, or nil when the policy has no
// customer or the customer has no user.
func (r *Resolver) ResolvePolicy(ctx context.Context, policy *models.Policy) (*Recipient, error) {
	return resolve(ctx, policy, r.policy)
}

// ResolvePayment tries the direct user link first, then the order chain.
func (r *Resolver) ResolvePayment(ctx context.Context, payment *models.Payment) (*Recipient, error) {
	return resolve(ctx, payment, r.payment)
}

func resolve[T any](ctx context.Context, entity *T, strategies []Strategy[T]) (*Recipient, error) {
	if entity == nil {
		return nil, nil
	}
	for _, s := range strategies {
		user, err := s.Resolve(ctx, entity)
		if err != nil {
			return nil, err
		}
		if Notifiable(user) {
			return &Recipient{User: user, Via: s.Name}, nil
		}
	}
	return nil, nil
}

// Notifiable reports whether u can receive mail.
func Notifiable(u *models.User) bool {
	return u != nil && validation.ValidateEmail(u.Email)
}

func (r *Resolver) userOfCustomer(ctx context.Context, customerID *int64) (*models.User, error) {
	if customerID == nil {
		return nil, nil
	}
	customer, err := r.lookup.FindCustomer(ctx, *customerID)
	if err != nil || customer == nil || customer.UserID == nil {
		return nil, err
	}
	return r.lookup.FindUser(ctx, *customer.UserID)
}

func (r *Resolver) policyCustomerUser(ctx context.Context, policy *models.Policy) (*models.User, error) {
	return r.userOfCustomer(ctx, policy.CustomerID)
}

func (r *Resolver) paymentUser(ctx context.Context, payment *models.Payment) (*models.User, error) {
	if payment.UserID == nil {
		return nil, nil
	}
	return r.lookup.FindUser(ctx, *payment.UserID)
}

func (r *Resolver) paymentOrderCustomerUser(ctx context.Context, payment *models.Payment) (*models.User, error) {
	if payment.OrderID == nil {
		return nil, nil
	}
	order, err := r.lookup.FindOrder(ctx, *payment.OrderID)
	if err != nil || order == nil {
		return nil, err
	}
	return r.userOfCustomer(ctx, order.CustomerID)
}
