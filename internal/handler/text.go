package handler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"relaybot/internal/domain"
	"relaybot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleText handles all text messages based on the awaiting flag
func (h *Handler) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	if isBareCommand(text) {
		return nil
	}

	awaiting := h.sessions.Awaiting(userID)
	if awaiting != domain.AwaitingNothing {
		// The flag is consumed by this message whatever the outcome
		h.sessions.SetAwaiting(userID, domain.AwaitingNothing)
	}

	switch awaiting {
	case domain.AwaitingCode:
		return h.handleCodeInput(c, text)
	case domain.AwaitingDialect:
		return h.handlePreferenceInput(c, domain.PreferenceDialect, text)
	case domain.AwaitingLocation:
		return h.handlePreferenceInput(c, domain.PreferenceLocation, text)
	}

	return h.handleRelay(c, c.Text())
}

// isBareCommand reports whether text is a single unregistered /word, which is not relayed
func isBareCommand(text string) bool {
	return strings.HasPrefix(text, "/") && !strings.ContainsFunc(text, unicode.IsSpace)
}

// handleCodeInput pairs the user with the owner of the entered code
func (h *Handler) handleCodeInput(c tele.Context, code string) error {
	joinerID := c.Sender().ID

	result, err := h.pairing.ConsumeConnectionCode(h.ctx, joinerID, code)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			h.logger.Error("Failed to join chat", zap.Int64("user_id", joinerID), zap.Error(err))
		}
		return h.fail(c, err)
	}

	owner, joiner := result.Owner, result.Joiner
	h.sessions.SetAwaiting(owner.UserID, domain.AwaitingNothing)
	h.notifier.ClearHistory(owner.UserID)
	h.notifier.ClearHistory(joiner.UserID)

	if err := h.notifier.Notify(owner.UserID, connectedText(joiner), chatMenuMarkup()); err != nil {
		h.logger.Warn("Failed to notify code owner", zap.Int64("owner_id", owner.UserID), zap.Error(err))
	}
	return c.Send(connectedText(owner), chatMenuMarkup())
}

// handlePreferenceInput stores a dialect or location
func (h *Handler) handlePreferenceInput(c tele.Context, field domain.PreferenceField, value string) error {
	userID := c.Sender().ID

	u, err := h.directory.UpdatePreference(h.ctx, userID, field, value)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("Failed to update preference",
				zap.Int64("user_id", userID),
				zap.String("field", string(field)),
				zap.Error(err))
		}
		return h.fail(c, err)
	}

	updated := u.Dialect
	label := "Dialect"
	if field == domain.PreferenceLocation {
		updated, label = u.Location, "Location"
	}
	return c.Send(fmt.Sprintf("%s updated to %s.", label, updated), menuFor(u))
}

// handleRelay translates the message for the user's partner
func (h *Handler) handleRelay(c tele.Context, text string) error {
	userID := c.Sender().ID

	result, err := h.relay.Relay(h.ctx, userID, text)
	if err != nil {
		if errors.Is(err, domain.ErrTranslationFailed) || errors.Is(err, domain.ErrStoreUnavailable) {
			return c.Send(userMessage(err))
		}
		return c.Send("Failed to deliver your message to your partner.")
	}

	switch result.Outcome {
	case service.RelayPartnerMissing:
		return c.Send("Your chat partner is no longer available. Use /end to leave this chat.")
	default:
		// Delivered messages need no receipt and unpaired messages are dropped silently
		return nil
	}
}

// connectedText announces the partner to a freshly paired user
func connectedText(partner *domain.UserProfile) string {
	name := partner.DisplayName
	if name == "" {
		name = fmt.Sprintf("user %d", partner.UserID)
	}
	return fmt.Sprintf("Connected to chat with %s (%s). Your messages will now be translated for them.",
		name, domain.LanguageName(partner.Language))
}
