package middleware

import (
	"relaybot/internal/session"

	tele "gopkg.in/telebot.v3"
)

// TrackMessages records the newest message id seen in each user's chat
func TrackMessages(sessions *session.Store) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if sender, msg := c.Sender(), c.Message(); sender != nil && msg != nil {
				sessions.TrackMessage(sender.ID, msg.ID)
			}
			return next(c)
		}
	}
}
