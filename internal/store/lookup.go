package store

import (
	"context"
	"database/sql"

	"insurance-notifications/internal/models"
)

const (
	queryFindUser = `SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(email, '')
		FROM users WHERE id = $1`
	queryFindCustomer = `SELECT id, user_id FROM customers WHERE id = $1`
	queryFindOrder    = `SELECT id, customer_id, order_reference, total_amount, status
		FROM orders WHERE id = $1`
	queryFindPolicy = `SELECT id, policy_number, customer_id, provider_id, status, created_at
		FROM policies WHERE id = $1`
	// payments has no user_id column unless the schema adds the direct link
	queryFindPayment = `SELECT id, NULL::bigint, order_id, COALESCE(payment_reference, ''), amount,
		COALESCE(method, ''), COALESCE(status, ''), paid_at, created_at
		FROM payments WHERE id = $1`
	queryFindPaymentWithUser = `SELECT id, user_id, order_id, COALESCE(payment_reference, ''), amount,
		COALESCE(method, ''), COALESCE(status, ''), paid_at, created_at
		FROM payments WHERE id = $1`
	queryFindProvider = `SELECT id, COALESCE(name, '') FROM insurances WHERE id = $1`
)

func (s *Postgres) FindUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	found, err := s.queryOne(ctx, "find_user", queryFindUser, []interface{}{id},
		&u.ID, &u.FirstName, &u.LastName, &u.Email)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) FindCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var (
		c      models.Customer
		userID sql.NullInt64
	)
	found, err := s.queryOne(ctx, "find_customer", queryFindCustomer, []interface{}{id},
		&c.ID, &userID)
	if err != nil || !found {
		return nil, err
	}
	c.UserID = int64Ptr(userID)
	return &c, nil
}

func (s *Postgres) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	var (
		o          models.Order
		customerID sql.NullInt64
	)
	found, err := s.queryOne(ctx, "find_order", queryFindOrder, []interface{}{id},
		&o.ID, &customerID, &o.OrderReference, &o.TotalAmount, &o.Status)
	if err != nil || !found {
		return nil, err
	}
	o.CustomerID = int64Ptr(customerID)
	return &o, nil
}

func (s *Postgres) FindPolicy(ctx context.Context, id int64) (*models.Policy, error) {
	var (
		p                      models.Policy
		customerID, providerID sql.NullInt64
		createdAt              sql.NullTime
	)
	found, err := s.queryOne(ctx, "find_policy", queryFindPolicy, []interface{}{id},
		&p.ID, &p.PolicyNumber, &customerID, &providerID, &p.Status, &createdAt)
	if err != nil || !found {
		return nil, err
	}
	p.CustomerID = int64Ptr(customerID)
	p.ProviderID = int64Ptr(providerID)
	p.CreatedAt = createdAt.Time
	return &p, nil
}

func (s *Postgres) FindPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var (
		p               models.Payment
		userID, orderID sql.NullInt64
		paidAt          sql.NullTime
		createdAt       sql.NullTime
	)
	query := queryFindPayment
	if s.paymentUserColumn {
		query = queryFindPaymentWithUser
	}
	found, err := s.queryOne(ctx, "find_payment", query, []interface{}{id},
		&p.ID, &userID, &orderID, &p.PaymentReference, &p.Amount,
		&p.Method, &p.Status, &paidAt, &createdAt)
	if err != nil || !found {
		return nil, err
	}
	p.UserID = int64Ptr(userID)
	p.OrderID = int64Ptr(orderID)
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	p.CreatedAt = createdAt.Time
	return &p, nil
}

func (s *Postgres) FindProvider(ctx context.Context, id int64) (*models.Provider, error) {
	var p models.Provider
	found, err := s.queryOne(ctx, "find_provider", queryFindProvider, []interface{}{id},
		&p.ID, &p.Name)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}
