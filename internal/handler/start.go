package handler

import (
	"fmt"

	"relaybot/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	msgWelcome        = "Welcome! Click Start to choose your language."
	msgSelectLanguage = "Select your language:"
	msgMainMenu       = "How can I assist you?"
	msgStillPaired    = "You are currently in a chat. Please end the current chat before starting a new one."
)

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	u, err := h.directory.FindByUserID(h.ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		return c.Send(userMessage(err))
	}

	if u.IsPaired() {
		return c.Send(msgStillPaired, chatMenuMarkup())
	}

	h.sessions.SetAwaiting(userID, domain.AwaitingNothing)
	return c.Send(msgWelcome, startMarkup())
}

// handleLanguageMenu shows the language keyboard
func (h *Handler) handleLanguageMenu(c tele.Context) error {
	h.sessions.SetAwaiting(c.Sender().ID, domain.AwaitingNothing)
	return h.render(c, msgSelectLanguage, languageMarkup())
}

// handleLanguageSelection stores the chosen language and shows the menu
func (h *Handler) handleLanguageSelection(c tele.Context, code string) error {
	userID := c.Sender().ID

	u, err := h.directory.UpsertLanguage(h.ctx, userID, code, displayName(c.Sender()))
	if err != nil {
		h.logger.Error("Failed to set language",
			zap.Int64("user_id", userID),
			zap.String("language", code),
			zap.Error(err))
		if c.Callback() != nil {
			_ = c.Respond()
		}
		return c.Send("Failed to set language.")
	}

	h.logger.Info("Language configured",
		zap.Int64("user_id", userID),
		zap.String("language", u.Language))

	text := fmt.Sprintf("Translation configured for %s. %s", domain.LanguageName(u.Language), msgMainMenu)
	return h.render(c, text, menuFor(u))
}

// handleMainMenu shows the menu matching the user's pairing state
func (h *Handler) handleMainMenu(c tele.Context) error {
	userID := c.Sender().ID
	h.sessions.SetAwaiting(userID, domain.AwaitingNothing)

	u, err := h.directory.FindByUserID(h.ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		return h.fail(c, err)
	}
	if u == nil {
		return h.render(c, msgSelectLanguage, languageMarkup())
	}
	return h.render(c, msgMainMenu, menuFor(u))
}

// displayName picks the most human name Telegram gives us
func displayName(user *tele.User) string {
	if user == nil {
		return ""
	}
	switch {
	case user.FirstName != "" && user.LastName != "":
		return user.FirstName + " " + user.LastName
	case user.FirstName != "":
		return user.FirstName
	default:
		return user.Username
	}
}
