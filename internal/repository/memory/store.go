// Package memory provides a map-backed repository.Store for local runs and tests.
// Transactions hold the store lock for their whole duration and restore a snapshot on error.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/repository"

	"github.com/google/uuid"
)

// Store implements repository.Store in memory
type Store struct {
	mu          sync.Mutex
	users       map[int64]*domain.UserProfile
	transcripts []domain.TranscriptEntry
	now         func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		users: make(map[int64]*domain.UserProfile),
		now:   time.Now,
	}
}

// Users returns a repository that locks the store per call
func (s *Store) Users() repository.UserRepository {
	return &userRepo{s: s, locked: false}
}

// Transcripts returns the transcript repository
func (s *Store) Transcripts() repository.TranscriptRepository {
	return &transcriptRepo{s: s}
}

// WithinTx runs fn under the store lock and rolls every user write back if fn fails
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[int64]*domain.UserProfile, len(s.users))
	for id, u := range s.users {
		snapshot[id] = cloneUser(u)
	}

	defer func() {
		if p := recover(); p != nil {
			s.users = snapshot
			panic(p)
		}
		if err != nil {
			s.users = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &userRepo{s: s, locked: true})
}

// BulkReset deletes every profile and transcript entry
func (s *Store) BulkReset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[int64]*domain.UserProfile)
	s.transcripts = nil
	return nil
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func cloneUser(u *domain.UserProfile) *domain.UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	if u.PairedWith != nil {
		v := *u.PairedWith
		c.PairedWith = &v
	}
	if u.ConnectionCode != nil {
		v := *u.ConnectionCode
		c.ConnectionCode = &v
	}
	if u.ConnectionCodeExpiry != nil {
		v := *u.ConnectionCodeExpiry
		c.ConnectionCodeExpiry = &v
	}
	return &c
}

// userRepo implements repository.UserRepository.
// locked is true inside WithinTx where the store mutex is already held.
type userRepo struct {
	s      *Store
	locked bool
}

func (r *userRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *userRepo) FindByUserID(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	defer r.lock()()
	return cloneUser(r.s.users[userID]), nil
}

func (r *userRepo) FindByConnectionCode(ctx context.Context, code string, now time.Time) (*domain.UserProfile, error) {
	defer r.lock()()

	// deterministic pick if two owners ever shared a code
	ids := make([]int64, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		u := r.s.users[id]
		if u.ConnectionCode != nil && *u.ConnectionCode == code && u.HasActiveCode(now) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *userRepo) UpsertLanguage(ctx context.Context, userID int64, language, displayName string) (*domain.UserProfile, error) {
	defer r.lock()()

	now := r.s.now()
	u, ok := r.s.users[userID]
	if !ok {
		u = &domain.UserProfile{
			UserID:    userID,
			Dialect:   domain.DefaultDialect,
			Location:  domain.DefaultLocation,
			CreatedAt: now,
		}
		r.s.users[userID] = u
	}
	u.Language = language
	u.DisplayName = displayName
	u.UpdatedAt = now
	return cloneUser(u), nil
}

func (r *userRepo) UpdatePreference(ctx context.Context, userID int64, field domain.PreferenceField, value string) (*domain.UserProfile, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unknown preference field %q", field)
	}
	defer r.lock()()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	switch field {
	case domain.PreferenceDialect:
		u.Dialect = value
	case domain.PreferenceLocation:
		u.Location = value
	}
	u.UpdatedAt = r.s.now()
	return cloneUser(u), nil
}

func (r *userRepo) SetPairing(ctx context.Context, userID int64, partnerID *int64) error {
	defer r.lock()()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if partnerID == nil {
		u.PairedWith = nil
	} else {
		v := *partnerID
		u.PairedWith = &v
	}
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepo) SetConnectionCode(ctx context.Context, userID int64, code string, expiry time.Time) error {
	defer r.lock()()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.ConnectionCode = &code
	u.ConnectionCodeExpiry = &expiry
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepo) ClearConnectionCode(ctx context.Context, userID int64) error {
	defer r.lock()()

	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.ConnectionCode = nil
	u.ConnectionCodeExpiry = nil
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepo) IsCodeActive(ctx context.Context, code string, now time.Time) (bool, error) {
	defer r.lock()()

	for _, u := range r.s.users {
		if u.ConnectionCode != nil && *u.ConnectionCode == code && u.HasActiveCode(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	defer r.lock()()

	var cleared int64
	for _, u := range r.s.users {
		if u.ConnectionCodeExpiry != nil && u.ConnectionCodeExpiry.Before(now) {
			u.ConnectionCode = nil
			u.ConnectionCodeExpiry = nil
			cleared++
		}
	}
	return cleared, nil
}

type transcriptRepo struct {
	s *Store
}

func (r *transcriptRepo) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.transcripts = append(r.s.transcripts, *entry)
	return nil
}

func (r *transcriptRepo) ListByPairing(ctx context.Context, pairingKey uuid.UUID, limit int) ([]domain.TranscriptEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.TranscriptEntry
	for _, e := range r.s.transcripts {
		if e.PairingKey == pairingKey {
			matched = append(matched, e)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}
