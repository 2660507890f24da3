package handler

import (
	"context"
	"strconv"

	"relaybot/internal/session"

	tele "gopkg.in/telebot.v3"
)

// DefaultClearWindow is how many message ids back a history clear reaches
const DefaultClearWindow = 100

// Messenger is the part of *tele.Bot the sender needs
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Notifier pushes messages to users outside the current update and clears their chats
type Notifier interface {
	Notify(userID int64, text string, opts ...interface{}) error
	ClearHistory(chatID int64) int
}

// Sender delivers bot messages by user id and remembers the newest message id per chat.
// It implements service.Sender for relayed translations.
type Sender struct {
	bot         Messenger
	sessions    *session.Store
	clearWindow int
}

// NewSender creates a sender on top of the bot
func NewSender(bot Messenger, sessions *session.Store, clearWindow int) *Sender {
	if clearWindow <= 0 {
		clearWindow = DefaultClearWindow
	}
	return &Sender{
		bot:         bot,
		sessions:    sessions,
		clearWindow: clearWindow,
	}
}

// Send delivers plain text to a user's private chat
func (s *Sender) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Notify(userID, text)
}

// Notify sends text with optional markup to a user's private chat
func (s *Sender) Notify(userID int64, text string, opts ...interface{}) error {
	msg, err := s.bot.Send(tele.ChatID(userID), text, opts...)
	if err != nil {
		return err
	}
	if msg != nil {
		s.sessions.TrackMessage(userID, msg.ID)
	}
	return nil
}

// ClearHistory deletes up to clearWindow messages ending at the newest tracked id.
// Messages that are gone or too old to delete are skipped. Returns how many were deleted.
func (s *Sender) ClearHistory(chatID int64) int {
	last := s.sessions.LastMessageID(chatID)
	if last <= 0 {
		return 0
	}

	deleted := 0
	for id := last; id > 0 && id > last-s.clearWindow; id-- {
		msg := tele.StoredMessage{MessageID: strconv.Itoa(id), ChatID: chatID}
		if err := s.bot.Delete(msg); err != nil {
			continue
		}
		deleted++
	}
	return deleted
}
