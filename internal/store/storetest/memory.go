// Package storetest provides an in-memory store for tests of packages that
// sit above the postgres lookup.
package storetest

import (
	"context"
	"sort"
	"sync"

	"insurance-notifications/internal/models"
)

// Memory implements store.Lookup and store.NotificationRepository. Setting
// Err makes every call fail with it; FailOn limits that to one method name.
type Memory struct {
	mu sync.Mutex

	Users     map[int64]*models.User
	Customers map[int64]*models.Customer
	Orders    map[int64]*models.Order
	Policies  map[int64]*models.Policy
	Payments  map[int64]*models.Payment
	Providers map[int64]*models.Provider
	Records   []models.NotificationRecord

	Err    error
	FailOn string
	Calls  map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		Users:     map[int64]*models.User{},
		Customers: map[int64]*models.Customer{},
		Orders:    map[int64]*models.Order{},
		Policies:  map[int64]*models.Policy{},
		Payments:  map[int64]*models.Payment{},
		Providers: map[int64]*models.Provider{},
		Calls:     map[string]int{},
	}
}

func (m *Memory) fail(method string) error {
	m.Calls[method]++
	if m.Err != nil && (m.FailOn == "" || m.FailOn == method) {
		return m.Err
	}
	return nil
}

func (m *Memory) FindUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindUser"); err != nil {
		return nil, err
	}
	return m.Users[id], nil
}

func (m *Memory) FindCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindCustomer"); err != nil {
		return nil, err
	}
	return m.Customers[id], nil
}

func (m *Memory) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindOrder"); err != nil {
		return nil, err
	}
	return m.Orders[id], nil
}

func (m *Memory) FindPolicy(ctx context.Context, id int64) (*models.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindPolicy"); err != nil {
		return nil, err
	}
	return m.Policies[id], nil
}

func (m *Memory) FindPayment(ctx context.Context, id int64) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindPayment"); err != nil {
		return nil, err
	}
	return m.Payments[id], nil
}

func (m *Memory) FindProvider(ctx context.Context, id int64) (*models.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FindProvider"); err != nil {
		return nil, err
	}
	return m.Providers[id], nil
}

func (m *Memory) InsertNotification(ctx context.Context, rec *models.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertNotification"); err != nil {
		return err
	}
	m.Records = append(m.Records, *rec)
	return nil
}

func (m *Memory) CountNotifications(ctx context.Context, recipientID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountNotifications"); err != nil {
		return 0, err
	}
	return len(m.recordsFor(recipientID)), nil
}

func (m *Memory) ListNotifications(ctx context.Context, recipientID int64, limit, offset int) ([]models.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListNotifications"); err != nil {
		return nil, err
	}
	records := m.recordsFor(recipientID)
	if offset >= len(records) {
		return []models.NotificationRecord{}, nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end], nil
}

// recordsFor mirrors the postgres ordering: created_at DESC, id DESC.
func (m *Memory) recordsFor(recipientID int64) []models.NotificationRecord {
	var out []models.NotificationRecord
	for _, r := range m.Records {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

// RecordsOf returns every stored record for recipientID in insertion order.
func (m *Memory) RecordsOf(recipientID int64) []models.NotificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NotificationRecord
	for _, r := range m.Records {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	return out
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
