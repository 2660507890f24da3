package testutil

import (
	"context"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUserID(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockUserRepository) FindByConnectionCode(ctx context.Context, code string, now time.Time) (*domain.UserProfile, error) {
	args := m.Called(ctx, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockUserRepository) UpsertLanguage(ctx context.Context, userID int64, language, displayName string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, language, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockUserRepository) UpdatePreference(ctx context.Context, userID int64, field domain.PreferenceField, value string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockUserRepository) SetPairing(ctx context.Context, userID int64, partnerID *int64) error {
	args := m.Called(ctx, userID, partnerID)
	return args.Error(0)
}

func (m *MockUserRepository) SetConnectionCode(ctx context.Context, userID int64, code string, expiry time.Time) error {
	args := m.Called(ctx, userID, code, expiry)
	return args.Error(0)
}

func (m *MockUserRepository) ClearConnectionCode(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) IsCodeActive(ctx context.Context, code string, now time.Time) (bool, error) {
	args := m.Called(ctx, code, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockTranscriptRepository is a mock for TranscriptRepository
type MockTranscriptRepository struct {
	mock.Mock
}

func (m *MockTranscriptRepository) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTranscriptRepository) ListByPairing(ctx context.Context, pairingKey uuid.UUID, limit int) ([]domain.TranscriptEntry, error) {
	args := m.Called(ctx, pairingKey, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TranscriptEntry), args.Error(1)
}

// MockStore is a mock for Store. WithinTx runs fn against UserRepo unless
// the expectation returns an error.
type MockStore struct {
	mock.Mock
	UserRepo       *MockUserRepository
	TranscriptRepo *MockTranscriptRepository
}

// NewMockStore creates a MockStore with empty repository mocks
func NewMockStore() *MockStore {
	return &MockStore{
		UserRepo:       new(MockUserRepository),
		TranscriptRepo: new(MockTranscriptRepository),
	}
}

func (m *MockStore) Users() repository.UserRepository {
	return m.UserRepo
}

func (m *MockStore) Transcripts() repository.TranscriptRepository {
	return m.TranscriptRepo
}

func (m *MockStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.UserRepo)
}

func (m *MockStore) BulkReset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTranslator is a mock for the relay Translator
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, text string, source, target *domain.UserProfile) (string, error) {
	args := m.Called(ctx, text, source, target)
	return args.String(0), args.Error(1)
}

// MockSender is a mock for the relay Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}
