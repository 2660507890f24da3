package domain

// SessionState is the per-user scratch state kept in memory between two events
type SessionState map[string]string

// Session keys
const (
	SessionKeyAwaiting      = "awaiting"
	SessionKeyLastMessageID = "last_message_id"
)

// Awaiting represents what the next free-text message from a user is expected to be
type Awaiting string

const (
	AwaitingNothing  Awaiting = "idle"
	AwaitingCode     Awaiting = "awaiting_code"
	AwaitingDialect  Awaiting = "awaiting_dialect"
	AwaitingLocation Awaiting = "awaiting_location"
)

// Awaiting returns the awaiting flag, idle if unset or unknown
func (s SessionState) Awaiting() Awaiting {
	switch a := Awaiting(s[SessionKeyAwaiting]); a {
	case AwaitingCode, AwaitingDialect, AwaitingLocation:
		return a
	default:
		return AwaitingNothing
	}
}
