package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/metrics"
	"relaybot/internal/repository"

	"go.uber.org/zap"
)

const (
	// DefaultCodeTTL is how long an issued connection code stays valid
	DefaultCodeTTL = 10 * time.Minute

	codeLength      = 8
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 5
)

var errCodeSpaceExhausted = errors.New("could not generate an unused connection code")

// PairingConfig tunes the pairing lifecycle
type PairingConfig struct {
	CodeTTL time.Duration
	// ResetOnEnd wipes the whole directory after a voluntary end
	ResetOnEnd bool
}

// JoinResult holds both profiles after a successful join
type JoinResult struct {
	Owner  *domain.UserProfile
	Joiner *domain.UserProfile
}

// EndResult describes a finished pairing
type EndResult struct {
	InitiatorID int64
	PartnerID   int64
	// Reset is true when the directory was wiped afterwards
	Reset bool
}

// PairingOption customizes a PairingService
type PairingOption func(*PairingService)

// WithClock overrides the time source
func WithClock(now func() time.Time) PairingOption {
	return func(s *PairingService) { s.now = now }
}

// WithCodeGenerator overrides connection code generation
func WithCodeGenerator(gen func() string) PairingOption {
	return func(s *PairingService) { s.newCode = gen }
}

// PairingService handles connection codes and the pairing lifecycle
type PairingService struct {
	store   repository.Store
	cfg     PairingConfig
	locks   *keyedMutex
	now     func() time.Time
	newCode func() string
	logger  *zap.Logger
}

// NewPairingService creates a new pairing service
func NewPairingService(store repository.Store, cfg PairingConfig, logger *zap.Logger, opts ...PairingOption) *PairingService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	s := &PairingService{
		store:   store,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		now:     time.Now,
		newCode: GenerateCode,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCode returns a random code of uppercase letters and digits
func GenerateCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode trims and upper-cases user input
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IssueConnectionCode gives the requester a fresh code, replacing any previous one
func (s *PairingService) IssueConnectionCode(ctx context.Context, requesterID int64) (string, time.Time, error) {
	unlock := s.locks.lock(requesterID)
	defer unlock()

	var (
		code   string
		expiry time.Time
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		u, err := users.FindByUserID(ctx, requesterID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.ErrNotFound
		}
		if u.IsPaired() {
			return domain.ErrAlreadyPaired
		}

		now := s.now()
		for attempt := 0; ; attempt++ {
			if attempt == maxCodeAttempts {
				return errCodeSpaceExhausted
			}
			code = s.newCode()
			active, err := users.IsCodeActive(ctx, code, now)
			if err != nil {
				return err
			}
			if !active {
				break
			}
		}

		expiry = now.Add(s.cfg.CodeTTL)
		return users.SetConnectionCode(ctx, requesterID, code, expiry)
	})
	if err != nil {
		return "", time.Time{}, storeError("issue code", err)
	}

	metrics.ObservePairing(metrics.EventCodeIssued, 1)
	s.logger.Info("Connection code issued",
		zap.Int64("user_id", requesterID),
		zap.Time("expires_at", expiry))
	return code, expiry, nil
}

// ConsumeConnectionCode pairs the joiner with the code's owner and invalidates the code
func (s *PairingService) ConsumeConnectionCode(ctx context.Context, joinerID int64, entered string) (*JoinResult, error) {
	result, err := s.consume(ctx, joinerID, NormalizeCode(entered))
	if err != nil {
		metrics.ObservePairing(metrics.EventJoinFailed, 1)
		s.logger.Info("Join attempt rejected",
			zap.Int64("joiner_id", joinerID),
			zap.Error(err))
		return nil, err
	}

	metrics.ObservePairing(metrics.EventPaired, 1)
	s.logger.Info("Users paired",
		zap.Int64("owner_id", result.Owner.UserID),
		zap.Int64("joiner_id", result.Joiner.UserID))
	return result, nil
}

func (s *PairingService) consume(ctx context.Context, joinerID int64, code string) (*JoinResult, error) {
	if code == "" {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	// Resolve the owner first so both profile locks can be taken in order
	candidate, err := s.store.Users().FindByConnectionCode(ctx, code, s.now())
	if err != nil {
		return nil, storeError("find code", err)
	}
	if candidate == nil {
		return nil, domain.ErrInvalidOrExpiredCode
	}
	if candidate.UserID == joinerID {
		return nil, domain.ErrSelfPairing
	}

	unlock := s.locks.lock(joinerID, candidate.UserID)
	defer unlock()

	var result JoinResult
	err = s.store.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		owner, err := users.FindByConnectionCode(ctx, code, s.now())
		if err != nil {
			return err
		}
		if owner == nil || owner.UserID != candidate.UserID {
			return domain.ErrInvalidOrExpiredCode
		}

		joiner, err := users.FindByUserID(ctx, joinerID)
		if err != nil {
			return err
		}
		if joiner == nil {
			return domain.ErrNotFound
		}
		if owner.IsPaired() || joiner.IsPaired() {
			return domain.ErrAlreadyPaired
		}

		ownerID, joinID := owner.UserID, joiner.UserID
		if err := users.SetPairing(ctx, joinID, &ownerID); err != nil {
			return err
		}
		if err := users.SetPairing(ctx, ownerID, &joinID); err != nil {
			return err
		}
		if err := users.ClearConnectionCode(ctx, ownerID); err != nil {
			return err
		}
		if joiner.ConnectionCode != nil {
			if err := users.ClearConnectionCode(ctx, joinID); err != nil {
				return err
			}
		}

		owner.PairedWith, owner.ConnectionCode, owner.ConnectionCodeExpiry = &joinID, nil, nil
		joiner.PairedWith, joiner.ConnectionCode, joiner.ConnectionCodeExpiry = &ownerID, nil, nil
		result = JoinResult{Owner: owner, Joiner: joiner}
		return nil
	})
	if err != nil {
		return nil, storeError("consume code", err)
	}
	return &result, nil
}

// EndPairing ends the initiator's pairing and applies the configured reset policy
func (s *PairingService) EndPairing(ctx context.Context, initiatorID int64) (*EndResult, error) {
	result, err := s.end(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	metrics.ObservePairing(metrics.EventEnded, 1)
	s.logger.Info("Pairing ended",
		zap.Int64("initiator_id", result.InitiatorID),
		zap.Int64("partner_id", result.PartnerID))

	if !s.cfg.ResetOnEnd {
		return result, nil
	}

	if err := s.store.BulkReset(ctx); err != nil {
		s.logger.Error("Failed to reset directory after end", zap.Error(err))
		return result, nil
	}
	result.Reset = true
	metrics.ObservePairing(metrics.EventBulkReset, 1)
	s.logger.Warn("Directory reset after pairing end",
		zap.Int64("initiator_id", initiatorID))
	return result, nil
}

// ForceEndPairing ends the initiator's pairing without touching anyone else
func (s *PairingService) ForceEndPairing(ctx context.Context, initiatorID int64) (*EndResult, error) {
	result, err := s.end(ctx, initiatorID)
	if err != nil {
		return nil, err
	}
	metrics.ObservePairing(metrics.EventForceEnded, 1)
	s.logger.Warn("Pairing force-ended",
		zap.Int64("initiator_id", result.InitiatorID),
		zap.Int64("partner_id", result.PartnerID))
	return result, nil
}

func (s *PairingService) end(ctx context.Context, initiatorID int64) (*EndResult, error) {
	current, err := s.store.Users().FindByUserID(ctx, initiatorID)
	if err != nil {
		return nil, storeError("find profile", err)
	}
	if current == nil || !current.IsPaired() {
		return nil, domain.ErrNotPaired
	}

	unlock := s.locks.lock(initiatorID, current.PartnerID())
	defer unlock()

	result := &EndResult{InitiatorID: initiatorID}
	err = s.store.WithinTx(ctx, func(ctx context.Context, users repository.UserRepository) error {
		initiator, err := users.FindByUserID(ctx, initiatorID)
		if err != nil {
			return err
		}
		if initiator == nil || !initiator.IsPaired() {
			return domain.ErrNotPaired
		}
		result.PartnerID = initiator.PartnerID()
		if result.PartnerID != current.PartnerID() {
			return fmt.Errorf("pairing of user %d changed concurrently", initiatorID)
		}

		if err := users.SetPairing(ctx, initiatorID, nil); err != nil {
			return err
		}

		// The partner may have been deleted by a reset
		partner, err := users.FindByUserID(ctx, result.PartnerID)
		if err != nil {
			return err
		}
		if partner != nil && partner.PartnerID() == initiatorID {
			return users.SetPairing(ctx, partner.UserID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, storeError("end pairing", err)
	}
	return result, nil
}

// CleanupExpiredCodes drops every connection code past its expiry
func (s *PairingService) CleanupExpiredCodes(ctx context.Context) (int64, error) {
	n, err := s.store.Users().ClearExpiredCodes(ctx, s.now())
	if err != nil {
		return 0, storeError("clear expired codes", err)
	}
	metrics.ObservePairing(metrics.EventCodesExpired, int(n))
	return n, nil
}
