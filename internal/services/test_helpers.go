package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
)

// MockAccountStore implements AccountStore and AdminStore for testing
type MockAccountStore struct {
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, id, hash string) error
	UpdateLoginStateFunc   func(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.User, error)
	ToggleRoleFunc         func(ctx context.Context, id string) (*models.User, error)
	ToggleActiveFunc       func(ctx context.Context, id string) (*models.User, error)
	UnlockFunc             func(ctx context.Context, id string) (*models.User, error)
	StatsFunc              func(ctx context.Context, now time.Time) (*models.UserStats, error)
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, hash)
	}
	return nil
}

func (m *MockAccountStore) UpdateLoginState(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	if m.UpdateLoginStateFunc != nil {
		return m.UpdateLoginStateFunc(ctx, id, fn)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockAccountStore) ToggleRole(ctx context.Context, id string) (*models.User, error) {
	if m.ToggleRoleFunc != nil {
		return m.ToggleRoleFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) ToggleActive(ctx context.Context, id string) (*models.User, error) {
	if m.ToggleActiveFunc != nil {
		return m.ToggleActiveFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) Unlock(ctx context.Context, id string) (*models.User, error) {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountStore) Stats(ctx context.Context, now time.Time) (*models.UserStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, now)
	}
	return &models.UserStats{}, nil
}

// MemoryAccountStore is an in-memory AccountStore. UpdateLoginState holds
// a per-account mutex around the read-modify-write, standing in for the
// row lock the Postgres store takes.
type MemoryAccountStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	locks map[string]*sync.Mutex
	seq   int
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		users: make(map[string]*models.User),
		locks: make(map[string]*sync.Mutex),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func (s *MemoryAccountStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryAccountStore) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryAccountStore) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, models.ErrEmailTaken
		}
	}
	s.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("user-%d", s.seq)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = stored
	s.locks[stored.ID] = &sync.Mutex{}
	return cloneUser(stored), nil
}

func (s *MemoryAccountStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *MemoryAccountStore) UpdateLoginState(_ context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	rowLock, ok := s.locks[id]
	s.mu.Unlock()
	if !ok {
		return nil, models.ErrNotFound
	}

	rowLock.Lock()
	defer rowLock.Unlock()

	s.mu.Lock()
	working := cloneUser(s.users[id])
	s.mu.Unlock()

	if err := fn(working); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.users[id]
	stored.FailedLoginAttempts = working.FailedLoginAttempts
	stored.LockedUntil = working.LockedUntil
	stored.LastLogin = working.LastLogin
	return cloneUser(stored), nil
}

func (s *MemoryAccountStore) ToggleRole(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if u.IsAdmin() {
		u.Role = models.RoleUser
	} else {
		u.Role = models.RoleAdmin
	}
	return cloneUser(u), nil
}

func (s *MemoryAccountStore) ToggleActive(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.IsActive = !u.IsActive
	return cloneUser(u), nil
}

// Put stores u as-is, overwriting any account with the same id
func (s *MemoryAccountStore) Put(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
	if _, ok := s.locks[u.ID]; !ok {
		s.locks[u.ID] = &sync.Mutex{}
	}
}

// AuditEvent is one recorded audit call
type AuditEvent struct {
	Type      string
	SubjectID *string
	Details   map[string]string
}

// RecordingAuditSink captures audit events
type RecordingAuditSink struct {
	mu     sync.Mutex
	Events []AuditEvent
}

func (r *RecordingAuditSink) Record(_ context.Context, eventType string, subjectID *string, details map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, AuditEvent{Type: eventType, SubjectID: subjectID, Details: details})
}

// Count returns how many events of eventType were recorded
func (r *RecordingAuditSink) Count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Last returns the most recent event of eventType
func (r *RecordingAuditSink) Last(eventType string) (AuditEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == eventType {
			return r.Events[i], true
		}
	}
	return AuditEvent{}, false
}

// RecordingNotifier captures lockout notifications
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent chan string
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Sent: make(chan string, 16)}
}

func (n *RecordingNotifier) NotifyAccountLocked(_ context.Context, email string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent <- email
	return nil
}

// MockAuditLogRepository implements AuditLogRepository for testing
type MockAuditLogRepository struct {
	CreateFunc func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestUser creates a test user with default values
func NewTestUser(id, email, hash string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
