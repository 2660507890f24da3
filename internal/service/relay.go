package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/metrics"
	"relaybot/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTranslateTimeout bounds a single translation call
const DefaultTranslateTimeout = 30 * time.Second

// DefaultHistoryLimit is how many transcript entries an export returns
const DefaultHistoryLimit = 50

// Translator converts text between two user profiles
type Translator interface {
	Translate(ctx context.Context, text string, source, target *domain.UserProfile) (string, error)
}

// Sender delivers a text message to a user
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// RelayOutcome describes what happened to an inbound message
type RelayOutcome string

const (
	// RelayDelivered means the translation reached the partner
	RelayDelivered RelayOutcome = "delivered"
	// RelayDropped means the sender has no profile or no partner
	RelayDropped RelayOutcome = "dropped"
	// RelayPartnerMissing means the sender points at a partner profile that no longer exists
	RelayPartnerMissing RelayOutcome = "partner_missing"
)

// RelayResult is the outcome of one relay attempt
type RelayResult struct {
	Outcome   RelayOutcome
	PartnerID int64
	Entry     *domain.TranscriptEntry
}

// RelayService translates messages and forwards them to the sender's partner
type RelayService struct {
	store      repository.Store
	translator Translator
	sender     Sender
	timeout    time.Duration
	order      *keyedMutex
	now        func() time.Time
	logger     *zap.Logger
}

// NewRelayService creates a new relay service
func NewRelayService(store repository.Store, translator Translator, sender Sender, timeout time.Duration, logger *zap.Logger) *RelayService {
	if timeout <= 0 {
		timeout = DefaultTranslateTimeout
	}
	return &RelayService{
		store:      store,
		translator: translator,
		sender:     sender,
		timeout:    timeout,
		order:      newKeyedMutex(),
		now:        time.Now,
		logger:     logger,
	}
}

// Relay translates text from the sender into the partner's profile and delivers it.
// Calls for one sender never overlap; the transport keeps them in arrival order.
func (s *RelayService) Relay(ctx context.Context, senderID int64, text string) (*RelayResult, error) {
	unlock := s.order.lock(senderID)
	defer unlock()

	result, err := s.relay(ctx, senderID, text)
	switch {
	case err == nil:
		metrics.ObserveRelay(string(result.Outcome))
	case errors.Is(err, domain.ErrTranslationFailed):
		metrics.ObserveRelay(metrics.OutcomeFailed)
	case errors.Is(err, domain.ErrStoreUnavailable):
		// not counted as a relay attempt
	default:
		metrics.ObserveRelay(metrics.OutcomeDeliveryFailed)
	}
	return result, err
}

func (s *RelayService) relay(ctx context.Context, senderID int64, text string) (*RelayResult, error) {
	if strings.TrimSpace(text) == "" {
		return &RelayResult{Outcome: RelayDropped}, nil
	}

	users := s.store.Users()
	sender, err := users.FindByUserID(ctx, senderID)
	if err != nil {
		return nil, storeError("find sender", err)
	}
	if sender == nil || !sender.IsPaired() {
		s.logger.Debug("Dropping message from unpaired user", zap.Int64("user_id", senderID))
		return &RelayResult{Outcome: RelayDropped}, nil
	}

	partner, err := users.FindByUserID(ctx, sender.PartnerID())
	if err != nil {
		return nil, storeError("find partner", err)
	}
	if partner == nil {
		s.logger.Warn("Partner profile missing",
			zap.Int64("user_id", senderID),
			zap.Int64("partner_id", sender.PartnerID()))
		return &RelayResult{Outcome: RelayPartnerMissing, PartnerID: sender.PartnerID()}, nil
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	started := time.Now()
	translated, err := s.translator.Translate(tctx, text, sender, partner)
	cancel()
	metrics.ObserveTranslation(time.Since(started))
	if err != nil {
		s.logger.Error("Translation failed",
			zap.Int64("user_id", senderID),
			zap.Int64("partner_id", partner.UserID),
			zap.Error(err))
		return nil, asTranslationError(err)
	}

	if err := s.sender.Send(ctx, partner.UserID, translated); err != nil {
		s.logger.Error("Failed to deliver translation",
			zap.Int64("partner_id", partner.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("deliver to %d: %w", partner.UserID, err)
	}

	entry := &domain.TranscriptEntry{
		ID:             uuid.New(),
		PairingKey:     domain.PairingKeyFor(senderID, partner.UserID),
		SenderID:       senderID,
		OriginalText:   text,
		TranslatedText: translated,
		CreatedAt:      s.now(),
	}
	if err := s.store.Transcripts().Append(ctx, entry); err != nil {
		// already delivered; the transcript is best effort
		s.logger.Error("Failed to append transcript",
			zap.String("pairing_key", entry.PairingKey.String()),
			zap.Error(err))
		entry = nil
	}

	return &RelayResult{Outcome: RelayDelivered, PartnerID: partner.UserID, Entry: entry}, nil
}

// History returns the most recent transcript entries of the user's current pairing, oldest first
func (s *RelayService) History(ctx context.Context, userID int64, limit int) ([]domain.TranscriptEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	u, err := s.store.Users().FindByUserID(ctx, userID)
	if err != nil {
		return nil, storeError("find profile", err)
	}
	if u == nil || !u.IsPaired() {
		return nil, domain.ErrNotPaired
	}

	entries, err := s.store.Transcripts().ListByPairing(ctx, domain.PairingKeyFor(userID, u.PartnerID()), limit)
	if err != nil {
		return nil, storeError("list transcript", err)
	}
	return entries, nil
}

func asTranslationError(err error) error {
	if errors.Is(err, domain.ErrTranslationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTranslationFailed, err)
}
