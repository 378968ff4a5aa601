// Package testutil provides test utilities: an in-memory Storage mock and
// a sqlite-backed test database helper with proper isolation and cleanup.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// MockStorage is an in-memory service.Storage for tests. It honors the
// same filter semantics as the sqlite implementation (pending exclusion,
// date ranges, subtype filters) and supports injected failures.
type MockStorage struct {
	Accounts     []model.Account
	Transactions []model.Transaction
	Liabilities  map[string]*model.Liability
	Profiles     map[string]*model.Profile
	Assignments  map[string]*model.PersonaAssignment
	History      map[string][]model.PersonaAssignment
	Recs         map[string]*model.Recommendation

	// Err, when set, is returned by every query method, simulating an
	// unavailable store.
	Err error

	mu sync.Mutex
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		Liabilities: make(map[string]*model.Liability),
		Profiles:    make(map[string]*model.Profile),
		Assignments: make(map[string]*model.PersonaAssignment),
		History:     make(map[string][]model.PersonaAssignment),
		Recs:        make(map[string]*model.Recommendation),
	}
}

// WithConsent seeds a profile with the given consent flag and returns the
// store for chaining.
func (m *MockStorage) WithConsent(userID string, granted bool) *MockStorage {
	m.Profiles[userID] = &model.Profile{
		UserID:         userID,
		ConsentGranted: granted,
	}
	return m
}

func (m *MockStorage) SaveAccounts(_ context.Context, accounts []model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Accounts = append(m.Accounts, accounts...)
	return nil
}

func (m *MockStorage) GetAccounts(_ context.Context, userID string, filter service.AccountFilter) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []model.Account
	for _, a := range m.Accounts {
		if a.UserID != userID {
			continue
		}
		if len(filter.Subtypes) > 0 && !containsSubtype(filter.Subtypes, a.Subtype) {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, a.Type) {
			continue
		}
		if filter.HolderCategory != "" && a.HolderCategory != filter.HolderCategory {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MockStorage) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Accounts {
		if m.Accounts[i].ID == id {
			a := m.Accounts[i]
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MockStorage) SaveTransactions(_ context.Context, transactions []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Transactions = append(m.Transactions, transactions...)
	return nil
}

func (m *MockStorage) GetTransactions(_ context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []model.Transaction
	for _, t := range m.Transactions {
		if t.UserID != userID {
			continue
		}
		if t.Pending && !filter.IncludePending {
			continue
		}
		if len(filter.AccountIDs) > 0 && !containsString(filter.AccountIDs, t.AccountID) {
			continue
		}
		if filter.StartDate != nil && t.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.Date.After(*filter.EndDate) {
			continue
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockStorage) SaveLiability(_ context.Context, liability *model.Liability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Liabilities[liability.AccountID] = liability
	return nil
}

func (m *MockStorage) GetLiability(_ context.Context, accountID string) (*model.Liability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if l, ok := m.Liabilities[accountID]; ok {
		return l, nil
	}
	return nil, common.ErrNotFound
}

func (m *MockStorage) SaveProfile(_ context.Context, profile *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Profiles[profile.UserID] = profile
	return nil
}

func (m *MockStorage) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Profiles[userID]; ok {
		return p, nil
	}
	return nil, common.ErrUserNotFound
}

func (m *MockStorage) GetConsent(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return false, common.ErrUserNotFound
	}
	return p.ConsentGranted, nil
}

func (m *MockStorage) SetConsent(_ context.Context, userID string, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.Profiles[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	p.ConsentGranted = granted
	p.ConsentUpdatedAt = time.Now()
	return nil
}

func (m *MockStorage) GetPersonaAssignment(_ context.Context, userID string) (*model.PersonaAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if a, ok := m.Assignments[userID]; ok {
		return a, nil
	}
	return nil, common.ErrNotFound
}

func (m *MockStorage) SavePersonaAssignment(_ context.Context, assignment *model.PersonaAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Assignments[assignment.UserID] = assignment
	return nil
}

func (m *MockStorage) ReplacePersonaAssignment(_ context.Context, previous, next *model.PersonaAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if previous != nil {
		m.History[previous.UserID] = append(m.History[previous.UserID], *previous)
	}
	m.Assignments[next.UserID] = next
	return nil
}

func (m *MockStorage) UpdateAssignmentSignals(_ context.Context, userID string, signals model.SignalWindows) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	a, ok := m.Assignments[userID]
	if !ok {
		return common.ErrNotFound
	}
	a.Signals = signals
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockStorage) GetPersonaHistory(_ context.Context, userID string, limit int) ([]model.PersonaAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	history := m.History[userID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (m *MockStorage) SaveRecommendation(_ context.Context, rec *model.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Recs[rec.ID] = rec
	return nil
}

func (m *MockStorage) GetRecommendations(_ context.Context, userID string, limit int) ([]model.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.Recommendation
	for _, r := range m.Recs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStorage) GetRecommendationByID(_ context.Context, id string) (*model.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if r, ok := m.Recs[id]; ok {
		return r, nil
	}
	return nil, common.ErrNotFound
}

func (m *MockStorage) Migrate(_ context.Context) error { return nil }

func (m *MockStorage) Close() error { return nil }

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsSubtype(values []model.AccountSubtype, v model.AccountSubtype) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsType(values []model.AccountType, v model.AccountType) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
