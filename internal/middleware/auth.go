package middleware

import (
	"relaybot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// PrivilegedOnly creates middleware that lets only privileged users through
func PrivilegedOnly(access *service.AccessService, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID

			if !access.IsPrivileged(userID) {
				logger.Warn("Privileged command refused",
					zap.Int64("user_id", userID),
					zap.String("text", c.Text()),
				)
				return c.Send("You are not allowed to use this command.")
			}

			return next(c)
		}
	}
}
