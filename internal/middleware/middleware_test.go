package middleware

import (
	"testing"

	"relaybot/internal/service"
	"relaybot/internal/session"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// fakeContext implements the parts of tele.Context the middleware touches
type fakeContext struct {
	tele.Context
	sender  *tele.User
	message *tele.Message
	sent    []interface{}
}

func (f *fakeContext) Sender() *tele.User { return f.sender }
func (f *fakeContext) Message() *tele.Message { return f.message }
func (f *fakeContext) Text() string { return "/kill" }
func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestPrivilegedOnly(t *testing.T) {
	tests := []struct {
		name       string
		admins     []int64
		userID     int64
		expectNext bool
	}{
		{name: "admin passes", admins: []int64{1}, userID: 1, expectNext: true},
		{name: "other user refused", admins: []int64{1}, userID: 2, expectNext: false},
		{name: "closed when no admins", admins: nil, userID: 2, expectNext: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := func(c tele.Context) error {
				called = true
				return nil
			}
			c := &fakeContext{sender: &tele.User{ID: tt.userID}}

			err := PrivilegedOnly(service.NewAccessService(tt.admins), zap.NewNop())(next)(c)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectNext, called)
			if !tt.expectNext {
				assert.Len(t, c.sent, 1)
			}
		})
	}
}

func TestTrackMessages(t *testing.T) {
	sessions := session.NewStore()
	next := func(c tele.Context) error { return nil }

	c := &fakeContext{sender: &tele.User{ID: 7}, message: &tele.Message{ID: 42}}
	assert.NoError(t, TrackMessages(sessions)(next)(c))
	assert.Equal(t, 42, sessions.LastMessageID(7))

	older := &fakeContext{sender: &tele.User{ID: 7}, message: &tele.Message{ID: 10}}
	assert.NoError(t, TrackMessages(sessions)(next)(older))
	assert.Equal(t, 42, sessions.LastMessageID(7))

	noMessage := &fakeContext{sender: &tele.User{ID: 8}}
	assert.NoError(t, TrackMessages(sessions)(next)(noMessage))
	assert.Equal(t, 0, sessions.LastMessageID(8))
}
