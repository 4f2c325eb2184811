package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "insurance-notifications/internal/common/errors"
	"insurance-notifications/internal/models"
)

// Lookup is the read side the resolver and dispatch service depend on. Every
// Find method returns (nil, nil) when the row does not exist.
type Lookup interface {
	FindUser(ctx context.Context, id int64) (*models.User, error)
	FindCustomer(ctx context.Context, id int64) (*models.Customer, error)
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	FindPolicy(ctx context.Context, id int64) (*models.Policy, error)
	FindPayment(ctx context.Context, id int64) (*models.Payment, error)
	FindProvider(ctx context.Context, id int64) (*models.Provider, error)
}

// Postgres implements Lookup and NotificationRepository over database/sql.
type Postgres struct {
	db                *sql.DB
	paymentUserColumn bool
}

type Option func(*Postgres)

// WithPaymentUserColumn reads payments.user_id as the payer's direct link.
// Without it a payment reaches its user only through its order.
func WithPaymentUserColumn(enabled bool) Option {
	return func(s *Postgres) { s.paymentUserColumn = enabled }
}

func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	s := &Postgres{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// queryOne runs a single-row query. sql.ErrNoRows is reported as found=false.
func (s *Postgres) queryOne(ctx context.Context, name, query string, args []interface{}, dest ...interface{}) (bool, error) {
	err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewQueryExecutionFailedError(name, err)
	}
	return true, nil
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
