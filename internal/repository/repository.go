package repository

import (
	"context"
	"time"

	"relaybot/internal/domain"

	"github.com/google/uuid"
)

// UserRepository defines user profile operations.
// Lookups return (nil, nil) when the profile does not exist.
type UserRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.UserProfile, error)
	FindByConnectionCode(ctx context.Context, code string, now time.Time) (*domain.UserProfile, error)
	UpsertLanguage(ctx context.Context, userID int64, language, displayName string) (*domain.UserProfile, error)
	UpdatePreference(ctx context.Context, userID int64, field domain.PreferenceField, value string) (*domain.UserProfile, error)
	SetPairing(ctx context.Context, userID int64, partnerID *int64) error
	SetConnectionCode(ctx context.Context, userID int64, code string, expiry time.Time) error
	ClearConnectionCode(ctx context.Context, userID int64) error
	IsCodeActive(ctx context.Context, code string, now time.Time) (bool, error)
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

// TranscriptRepository defines append-only transcript operations
type TranscriptRepository interface {
	Append(ctx context.Context, entry *domain.TranscriptEntry) error
	ListByPairing(ctx context.Context, pairingKey uuid.UUID, limit int) ([]domain.TranscriptEntry, error)
}

// TxFunc runs inside a storage transaction. Profiles read through users are locked
// until the transaction ends.
type TxFunc func(ctx context.Context, users UserRepository) error

// Store bundles the repositories with transactional and maintenance operations
type Store interface {
	Users() UserRepository
	Transcripts() TranscriptRepository
	// WithinTx commits when fn returns nil and rolls back every write otherwise
	WithinTx(ctx context.Context, fn TxFunc) error
	// BulkReset deletes every profile and transcript entry
	BulkReset(ctx context.Context) error
	Ping(ctx context.Context) error
}
