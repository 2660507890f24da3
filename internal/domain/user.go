package domain

import "time"

// Profile defaults applied when a user never set them explicitly
const (
	DefaultDialect  = "default"
	DefaultLocation = "unknown"
)

// UserProfile represents a bot user with their linguistic profile and pairing
type UserProfile struct {
	UserID      int64
	DisplayName string
	Language    string
	Dialect     string
	Location    string

	PairedWith           *int64
	ConnectionCode       *string
	ConnectionCodeExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPaired reports whether the user is currently relaying to a partner
func (u *UserProfile) IsPaired() bool {
	return u != nil && u.PairedWith != nil
}

// PartnerID returns the partner id or 0 when unpaired
func (u *UserProfile) PartnerID() int64 {
	if !u.IsPaired() {
		return 0
	}
	return *u.PairedWith
}

// HasActiveCode reports whether the user holds a connection code that has not expired at now
func (u *UserProfile) HasActiveCode(now time.Time) bool {
	if u == nil || u.ConnectionCode == nil || u.ConnectionCodeExpiry == nil {
		return false
	}
	return !now.After(*u.ConnectionCodeExpiry)
}

// PreferenceField names a free-form profile preference
type PreferenceField string

const (
	PreferenceDialect  PreferenceField = "dialect"
	PreferenceLocation PreferenceField = "location"
)

// Valid reports whether the field is one of the known preferences
func (f PreferenceField) Valid() bool {
	return f == PreferenceDialect || f == PreferenceLocation
}
