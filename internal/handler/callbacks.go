package handler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"relaybot/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Telegram rejects longer text messages
const maxMessageLength = 4096

const (
	msgNotInChat      = "You are not currently in a chat."
	msgEnterCode      = "Please enter the connection code:"
	msgEnterDialect   = "Please enter your dialect (for example: Texan, Andalusian):"
	msgEnterLocation  = "Please enter your location:"
	msgHistoryCleared = "Chat history cleared."
	msgNoHistory      = "No messages in this chat yet."
	msgFurther        = "How can I assist you further?"
	msgSupport        = "Create Chat gives you a one-time code to share with your partner. " +
		"Join Chat asks for a code your partner shared. Once connected, every message you send " +
		"is translated into your partner's language. Use /end or End Chat to leave."
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// userMessage maps service errors to the text shown to the user
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Please choose your language first with /start."
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return "Invalid or expired connection code. Please try again."
	case errors.Is(err, domain.ErrSelfPairing):
		return "You cannot join your own chat. Share the code with your partner instead."
	case errors.Is(err, domain.ErrAlreadyPaired):
		return "Already in a chat. End the current chat first."
	case errors.Is(err, domain.ErrNotPaired):
		return msgNotInChat
	case errors.Is(err, domain.ErrTranslationFailed):
		return "Failed to translate your message. Please try again."
	case errors.Is(err, domain.ErrUnsupportedLanguage):
		return "This language is not supported."
	default:
		return "Something went wrong. Please try again later."
	}
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
// Otherwise, acknowledge callback and return error so caller can send new message
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// Already edited by another callback
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback, acknowledging",
			zap.Int64("user_id", userID),
			zap.String("callback_id", c.Callback().ID),
		)
		_ = c.Respond()
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("callback_id", c.Callback().ID),
	)
	if ackErr := c.Respond(); ackErr != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(ackErr))
	}
	return err
}

// render edits the callback message in place, or sends a new one for commands
func (h *Handler) render(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		if err := c.Edit(text, markup); err != nil {
			if handleErr := h.handleEditError(err, c, c.Sender().ID); handleErr == nil {
				return nil
			}
			return c.Send(text, markup)
		}
		return c.Respond()
	}
	return c.Send(text, markup)
}

// reply acknowledges a pending callback and sends a new message
func (h *Handler) reply(c tele.Context, text string, opts ...interface{}) error {
	if c.Callback() != nil {
		if err := c.Respond(); err != nil {
			h.logger.Warn("Failed to acknowledge callback", zap.Error(err))
		}
	}
	return c.Send(text, opts...)
}

// fail reports err to the user as plain text
func (h *Handler) fail(c tele.Context, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return h.reply(c, userMessage(err), startMarkup())
	}
	return h.reply(c, userMessage(err))
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	data := cleanCallbackData(callback.Data)
	h.logger.Debug("handleCallback: Processing callback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", c.Sender().ID),
	)

	key := callback.Unique
	if key == "" {
		key = data
	}
	if handler, ok := h.staticCallbacks()[key]; ok {
		return handler(c)
	}

	if strings.HasPrefix(data, languageDataPrefix) {
		return h.handleLanguageSelection(c, strings.TrimPrefix(data, languageDataPrefix))
	}

	h.logger.Warn("Unhandled callback in handleCallback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
	)
	return c.Respond()
}

func (h *Handler) staticCallbacks() map[string]tele.HandlerFunc {
	return map[string]tele.HandlerFunc{
		btnStart.Unique:          h.handleLanguageMenu,
		btnCreateChat.Unique:     h.handleCreateChat,
		btnJoinChat.Unique:       h.handleJoinChat,
		btnEndChat.Unique:        h.handleEnd,
		btnExportHistory.Unique:  h.handleExportHistory,
		btnClearHistory.Unique:   h.handleClearHistory,
		btnSettings.Unique:       h.handleSettings,
		btnDialect.Unique:        h.handleDialectPrompt,
		btnLocation.Unique:       h.handleLocationPrompt,
		btnChangeLanguage.Unique: h.handleLanguageMenu,
		btnSupport.Unique:        h.handleSupport,
		btnCancel.Unique:         h.handleCancel,
		btnMainMenu.Unique:       h.handleMainMenu,
	}
}

// handleCreateChat issues a connection code for the user
func (h *Handler) handleCreateChat(c tele.Context) error {
	userID := c.Sender().ID
	h.sessions.SetAwaiting(userID, domain.AwaitingNothing)

	code, expiry, err := h.pairing.IssueConnectionCode(h.ctx, userID)
	if err != nil {
		h.logger.Warn("Failed to issue connection code", zap.Int64("user_id", userID), zap.Error(err))
		return h.fail(c, err)
	}

	text := fmt.Sprintf("Your connection code is: %s\nShare it with your partner. It expires at %s UTC.",
		code, expiry.UTC().Format("15:04"))
	return h.reply(c, text)
}

// handleJoinChat asks for a connection code
func (h *Handler) handleJoinChat(c tele.Context) error {
	h.sessions.SetAwaiting(c.Sender().ID, domain.AwaitingCode)
	return h.reply(c, msgEnterCode, cancelMarkup())
}

// handleEnd ends the user's chat through the regular path
func (h *Handler) handleEnd(c tele.Context) error {
	return h.endChat(c, false)
}

// handleKill forcibly ends the user's chat without any reset
func (h *Handler) handleKill(c tele.Context) error {
	return h.endChat(c, true)
}

func (h *Handler) endChat(c tele.Context, force bool) error {
	userID := c.Sender().ID
	h.sessions.SetAwaiting(userID, domain.AwaitingNothing)

	end := h.pairing.EndPairing
	ownText, partnerText := "You have successfully ended the chat.", "The chat has been ended by the other user."
	if force {
		end = h.pairing.ForceEndPairing
		ownText, partnerText = "You have forcibly ended the chat.", "The chat has been forcibly ended by the other user."
	}

	result, err := end(h.ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotPaired) {
			h.logger.Error("Failed to end chat", zap.Int64("user_id", userID), zap.Bool("force", force), zap.Error(err))
		}
		return h.fail(c, err)
	}

	menuText, menu := msgFurther, mainMenuMarkup()
	if result.Reset {
		menuText, menu = msgWelcome, startMarkup()
	}

	partnerID := result.PartnerID
	h.sessions.SetAwaiting(partnerID, domain.AwaitingNothing)
	if !force {
		h.notifier.ClearHistory(partnerID)
		h.notifier.ClearHistory(userID)
	}
	if err := h.notifier.Notify(partnerID, partnerText); err != nil {
		h.logger.Warn("Failed to notify partner", zap.Int64("partner_id", partnerID), zap.Error(err))
	} else if err := h.notifier.Notify(partnerID, menuText, menu); err != nil {
		h.logger.Warn("Failed to send menu to partner", zap.Int64("partner_id", partnerID), zap.Error(err))
	}

	if err := h.reply(c, ownText); err != nil {
		return err
	}
	return c.Send(menuText, menu)
}

// handleSettings shows the profile and settings keyboard
func (h *Handler) handleSettings(c tele.Context) error {
	userID := c.Sender().ID
	h.sessions.SetAwaiting(userID, domain.AwaitingNothing)

	u, err := h.directory.FindByUserID(h.ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		return h.fail(c, err)
	}
	if u == nil {
		return h.fail(c, domain.ErrNotFound)
	}

	text := fmt.Sprintf("Settings\n\nLanguage: %s\nDialect: %s\nLocation: %s",
		domain.LanguageName(u.Language), u.Dialect, u.Location)
	return h.render(c, text, settingsMarkup())
}

// handleDialectPrompt asks for a dialect
func (h *Handler) handleDialectPrompt(c tele.Context) error {
	h.sessions.SetAwaiting(c.Sender().ID, domain.AwaitingDialect)
	return h.reply(c, msgEnterDialect, cancelMarkup())
}

// handleLocationPrompt asks for a location
func (h *Handler) handleLocationPrompt(c tele.Context) error {
	h.sessions.SetAwaiting(c.Sender().ID, domain.AwaitingLocation)
	return h.reply(c, msgEnterLocation, cancelMarkup())
}

// handleExportHistory sends the recent transcript of the current chat
func (h *Handler) handleExportHistory(c tele.Context) error {
	userID := c.Sender().ID

	entries, err := h.relay.History(h.ctx, userID, h.historyLimit)
	if err != nil {
		if !errors.Is(err, domain.ErrNotPaired) {
			h.logger.Error("Failed to export history", zap.Int64("user_id", userID), zap.Error(err))
		}
		return h.fail(c, err)
	}
	if len(entries) == 0 {
		return h.reply(c, msgNoHistory)
	}
	return h.reply(c, formatHistory(entries, userID, maxMessageLength))
}

// handleClearHistory deletes recent messages in the user's chat with the bot
func (h *Handler) handleClearHistory(c tele.Context) error {
	userID := c.Sender().ID
	if c.Callback() != nil {
		_ = c.Respond()
	}

	deleted := h.notifier.ClearHistory(userID)
	h.logger.Info("Chat history cleared", zap.Int64("user_id", userID), zap.Int("deleted", deleted))
	return c.Send(msgHistoryCleared, mainMenuMarkup())
}

// handleSupport explains how the bot works
func (h *Handler) handleSupport(c tele.Context) error {
	return h.reply(c, msgSupport)
}

// handleCancel cancels current operation and resets state
func (h *Handler) handleCancel(c tele.Context) error {
	h.sessions.SetAwaiting(c.Sender().ID, domain.AwaitingNothing)
	return h.handleMainMenu(c)
}

// formatHistory renders transcript entries from the viewer's side, dropping the oldest
// entries until the text fits in limit bytes
func formatHistory(entries []domain.TranscriptEntry, viewerID int64, limit int) string {
	const header = "Chat history:\n\n"

	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		stamp := e.CreatedAt.UTC().Format("2006-01-02 15:04")
		if e.SenderID == viewerID {
			blocks = append(blocks, fmt.Sprintf("[%s] You: %s\n→ %s\n", stamp, e.OriginalText, e.TranslatedText))
		} else {
			blocks = append(blocks, fmt.Sprintf("[%s] Partner: %s\n(original: %s)\n", stamp, e.TranslatedText, e.OriginalText))
		}
	}

	size := len(header)
	for _, b := range blocks {
		size += len(b) + 1
	}
	for len(blocks) > 1 && size > limit {
		size -= len(blocks[0]) + 1
		blocks = blocks[1:]
	}

	text := header + strings.Join(blocks, "\n")
	if len(text) > limit {
		text = truncate(text, limit)
	}
	return text
}

// truncate cuts s to at most limit bytes without splitting a rune
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
