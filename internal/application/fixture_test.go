package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/cache"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/security"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

const (
	testAdminKey = "admin-creation-key"
	testPassword = "SecurePass123!"
	testSecret   = "unit-test-secret-0123456789abcdefghijkl"
)

type fixture struct {
	service  *application.Service
	accounts *fakeAccounts
	attempts *fakeLoginAttempts
	outbox   *fakeOutbox
	lockouts *fakeLockouts
	resets   *cache.MemoryResetTokenStore
	notifier *fakeNotifier
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, defaultTestConfig())
}

func defaultTestConfig() application.Config {
	cfg := application.DefaultConfig()
	cfg.AdminCreationKey = testAdminKey
	cfg.FrontendBaseURL = "https://app.example.test"
	return cfg
}

func newFixtureWithConfig(t *testing.T, cfg application.Config) *fixture {
	t.Helper()

	signer, err := security.NewJWTSigner(testSecret)
	if err != nil {
		t.Fatalf("new jwt signer: %v", err)
	}
	f := &fixture{
		accounts: newFakeAccounts(),
		attempts: &fakeLoginAttempts{},
		outbox:   &fakeOutbox{},
		lockouts: &fakeLockouts{state: map[string]ports.LockoutState{}},
		resets:   cache.NewMemoryResetTokenStore(),
		notifier: &fakeNotifier{},
		clock:    &fakeClock{now: time.Now().UTC()},
	}
	f.service = application.NewService(application.Dependencies{
		Config:        cfg,
		Accounts:      f.accounts,
		LoginAttempts: f.attempts,
		Outbox:        f.outbox,
		Lockouts:      f.lockouts,
		ResetTokens:   f.resets,
		Hasher:        &fakeHasher{},
		TokenSigner:   signer,
		Notifier:      f.notifier,
		Clock:         f.clock.Now,
	})
	return f
}

func (f *fixture) register(t *testing.T, email, phone string) application.AuthResponse {
	t.Helper()
	res, err := f.service.Register(context.Background(), application.RegisterRequest{
		Name:            "Test User",
		Email:           email,
		Phone:           phone,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return res
}

func (f *fixture) provisionAdmin(t *testing.T, email string) application.AuthResponse {
	t.Helper()
	res, err := f.service.ProvisionAdmin(context.Background(), application.AdminRegisterRequest{
		RegisterRequest: application.RegisterRequest{
			Name:            "Admin User",
			Email:           email,
			Password:        testPassword,
			ConfirmPassword: testPassword,
		},
		AdminKey: testAdminKey,
	})
	if err != nil {
		t.Fatalf("provision admin failed: %v", err)
	}
	return res
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAccounts struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]domain.Account
	events      []ports.OutboxEvent
	unavailable bool
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[uuid.UUID]domain.Account)}
}

func (f *fakeAccounts) CreateWithOutboxTx(_ context.Context, params ports.CreateAccountParams, outboxEvent ports.OutboxEvent) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return domain.Account{}, domain.ErrUnavailable
	}
	for _, a := range f.byID {
		if (params.Email != "" && a.Email == params.Email) || (params.Phone != "" && a.Phone == params.Phone) {
			return domain.Account{}, domain.ErrConflict
		}
	}
	a := domain.Account{
		ID:           params.ID,
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Status:       params.Status,
		CreatedAt:    params.CreatedAt,
		UpdatedAt:    params.CreatedAt,
	}
	f.byID[a.ID] = a
	f.events = append(f.events, outboxEvent)
	return a, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, accountID uuid.UUID) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return domain.Account{}, domain.ErrUnavailable
	}
	a, ok := f.byID[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.Email == email })
}

func (f *fakeAccounts) GetByPhone(_ context.Context, phone string) (domain.Account, error) {
	return f.find(func(a domain.Account) bool { return a.Phone == phone })
}

func (f *fakeAccounts) find(match func(domain.Account) bool) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return domain.Account{}, domain.ErrUnavailable
	}
	for _, a := range f.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (f *fakeAccounts) UpdateLastLogin(_ context.Context, accountID uuid.UUID, at time.Time) error {
	return f.update(accountID, func(a *domain.Account) {
		a.LastLoginAt = &at
	})
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, accountID uuid.UUID, passwordHash string, at time.Time) error {
	return f.update(accountID, func(a *domain.Account) {
		a.PasswordHash = passwordHash
		a.UpdatedAt = at
	})
}

func (f *fakeAccounts) UpdateVerification(_ context.Context, account domain.Account, at time.Time) error {
	return f.update(account.ID, func(a *domain.Account) {
		a.EmailVerified = account.EmailVerified
		a.PhoneVerified = account.PhoneVerified
		a.VerificationCodes = cloneAccount(account).VerificationCodes
		a.UpdatedAt = at
	})
}

func (f *fakeAccounts) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return domain.ErrUnavailable
	}
	return nil
}

func (f *fakeAccounts) update(accountID uuid.UUID, mutate func(*domain.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return domain.ErrUnavailable
	}
	a, ok := f.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	mutate(&a)
	f.byID[accountID] = a
	return nil
}

// set overwrites a stored account, for tests that need a specific state.
func (f *fakeAccounts) set(a domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
}

func (f *fakeAccounts) get(accountID uuid.UUID) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneAccount(f.byID[accountID])
}

func (f *fakeAccounts) setUnavailable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = v
}

func (f *fakeAccounts) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

func cloneAccount(a domain.Account) domain.Account {
	if a.VerificationCodes != nil {
		codes := make(map[domain.Purpose]domain.VerificationCode, len(a.VerificationCodes))
		for k, v := range a.VerificationCodes {
			codes[k] = v
		}
		a.VerificationCodes = codes
	}
	return a
}

type fakeLoginAttempts struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (f *fakeLoginAttempts) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeLoginAttempts) reasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.attempts))
	for _, a := range f.attempts {
		out = append(out, a.FailureReason)
	}
	return out
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (f *fakeNotifier) Send(_ context.Context, n ports.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) last(kind string) (ports.Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Kind == kind {
			return f.sent[i], true
		}
	}
	return ports.Notification{}, false
}

func (f *fakeNotifier) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
