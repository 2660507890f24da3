package testutil

import (
	"context"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/repository"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestProfile creates an unpaired test profile
func NewTestProfile(userID int64, name, language string) *domain.UserProfile {
	now := time.Now()
	return &domain.UserProfile{
		UserID:      userID,
		DisplayName: name,
		Language:    language,
		Dialect:     domain.DefaultDialect,
		Location:    domain.DefaultLocation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewPairedProfiles creates two test profiles paired with each other
func NewPairedProfiles(a, b int64) (*domain.UserProfile, *domain.UserProfile) {
	pa := NewTestProfile(a, "alice", "en")
	pb := NewTestProfile(b, "bob", "es")
	pa.PairedWith = &b
	pb.PairedWith = &a
	return pa, pb
}

// SeedProfile stores a profile with the given language through the repository
func SeedProfile(ctx context.Context, store repository.Store, userID int64, name, language string) *domain.UserProfile {
	u, err := store.Users().UpsertLanguage(ctx, userID, language, name)
	if err != nil {
		panic(err)
	}
	return u
}

// FixedClock returns a controllable clock starting at t
type FixedClock struct {
	T time.Time
}

// Now returns the current fake time
func (c *FixedClock) Now() time.Time {
	return c.T
}

// Advance moves the fake time forward
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
