package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectedErr bool
	}{
		{name: "plain code", input: "en", expected: "en"},
		{name: "uppercase", input: "ES", expected: "es"},
		{name: "with region", input: "en-US", expected: "en"},
		{name: "underscore separator", input: "zh_Hans", expected: "zh"},
		{name: "surrounding whitespace", input: "  fa ", expected: "fa"},
		{name: "unsupported language", input: "it", expectedErr: true},
		{name: "garbage", input: "not a tag", expectedErr: true},
		{name: "empty", input: "", expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, err := ParseLanguage(tt.input)
			if tt.expectedErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, lang.Code)
		})
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Japanese", LanguageName("ja"))
	assert.Equal(t, "Turkish", LanguageName("TR"))
	assert.Equal(t, "XX", LanguageName("xx"))
}

func TestPairingKeyFor(t *testing.T) {
	ab := PairingKeyFor(100, 200)
	ba := PairingKeyFor(200, 100)
	other := PairingKeyFor(100, 300)

	assert.Equal(t, ab, ba)
	assert.NotEqual(t, ab, other)
	assert.Equal(t, ab, PairingKeyFor(100, 200), "key must be stable across calls")
}

func TestUserProfile_HasActiveCode(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	code := "ABC123XY"
	expiry := now.Add(10 * time.Minute)

	tests := []struct {
		name     string
		profile  *UserProfile
		at       time.Time
		expected bool
	}{
		{name: "nil profile", profile: nil, at: now, expected: false},
		{name: "no code", profile: &UserProfile{}, at: now, expected: false},
		{name: "before expiry", profile: &UserProfile{ConnectionCode: &code, ConnectionCodeExpiry: &expiry}, at: now, expected: true},
		{name: "exactly at expiry", profile: &UserProfile{ConnectionCode: &code, ConnectionCodeExpiry: &expiry}, at: expiry, expected: true},
		{name: "after expiry", profile: &UserProfile{ConnectionCode: &code, ConnectionCodeExpiry: &expiry}, at: expiry.Add(time.Second), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.profile.HasActiveCode(tt.at))
		})
	}
}

func TestUserProfile_Pairing(t *testing.T) {
	var nilProfile *UserProfile
	assert.False(t, nilProfile.IsPaired())
	assert.Equal(t, int64(0), nilProfile.PartnerID())

	partner := int64(42)
	u := &UserProfile{UserID: 1, PairedWith: &partner}
	assert.True(t, u.IsPaired())
	assert.Equal(t, int64(42), u.PartnerID())
}

func TestSessionState_Awaiting(t *testing.T) {
	assert.Equal(t, AwaitingNothing, SessionState{}.Awaiting())
	assert.Equal(t, AwaitingCode, SessionState{SessionKeyAwaiting: "awaiting_code"}.Awaiting())
	assert.Equal(t, AwaitingNothing, SessionState{SessionKeyAwaiting: "bogus"}.Awaiting())
}
