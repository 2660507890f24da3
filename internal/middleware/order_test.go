package middleware

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot
}

func textUpdate(sender *tele.User, id int, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Sender: sender,
			Chat:   &tele.Chat{ID: sender.ID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}
}

func TestSequencer_RunsHandlersInArrivalOrder(t *testing.T) {
	bot := newOfflineBot(t)
	seq := NewSequencer()
	alice := &tele.User{ID: 1}

	const n = 50
	contexts := make([]tele.Context, n)
	for i := 0; i < n; i++ {
		u := textUpdate(alice, i+1, fmt.Sprintf("m%02d", i))
		require.True(t, seq.Filter(&u))
		contexts[i] = bot.NewContext(u)
	}
	assert.Equal(t, n, seq.Pending(1))

	var (
		mu  sync.Mutex
		got []string
		wg  sync.WaitGroup
	)
	handler := seq.Ordered()(func(c tele.Context) error {
		mu.Lock()
		got = append(got, c.Text())
		mu.Unlock()
		return nil
	})

	// start the newest first so arrival order has to be restored
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(c tele.Context) {
			defer wg.Done()
			assert.NoError(t, handler(c))
		}(contexts[i])
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ordered handlers did not finish")
	}

	require.Len(t, got, n)
	for i, text := range got {
		assert.Equal(t, fmt.Sprintf("m%02d", i), text)
	}
	assert.Equal(t, 0, seq.Pending(1))
}

func TestSequencer_SendersDoNotBlockEachOther(t *testing.T) {
	bot := newOfflineBot(t)
	seq := NewSequencer()
	alice, bob := &tele.User{ID: 1}, &tele.User{ID: 2}

	first := textUpdate(alice, 1, "first")
	second := textUpdate(alice, 2, "second")
	fromBob := textUpdate(bob, 3, "hi")
	for _, u := range []*tele.Update{&first, &second, &fromBob} {
		seq.Filter(u)
	}

	ran := make(chan string, 3)
	handler := seq.Ordered()(func(c tele.Context) error {
		ran <- c.Text()
		return nil
	})

	// alice's second message waits for her first, bob's does not
	go func() { _ = handler(bot.NewContext(second)) }()
	require.NoError(t, handler(bot.NewContext(fromBob)))
	assert.Equal(t, "hi", <-ran)

	require.NoError(t, handler(bot.NewContext(first)))
	assert.Equal(t, "first", <-ran)
	select {
	case text := <-ran:
		assert.Equal(t, "second", text)
	case <-time.After(5 * time.Second):
		t.Fatal("second message never ran")
	}
}

func TestSequencer_UnqueuedUpdatesPassThrough(t *testing.T) {
	bot := newOfflineBot(t)
	seq := NewSequencer()
	called := 0
	handler := seq.Ordered()(func(c tele.Context) error {
		called++
		return nil
	})

	callback := tele.Update{Callback: &tele.Callback{ID: "cb", Sender: &tele.User{ID: 1}}}
	require.True(t, seq.Filter(&callback))
	require.NoError(t, handler(bot.NewContext(callback)))

	// never went through Filter
	stray := textUpdate(&tele.User{ID: 1}, 9, "hello")
	require.NoError(t, handler(bot.NewContext(stray)))

	assert.Equal(t, 2, called)
	assert.Equal(t, 0, seq.Pending(1))
}

func TestSequenced(t *testing.T) {
	alice := &tele.User{ID: 1}
	tests := []struct {
		name     string
		message  *tele.Message
		expected bool
	}{
		{name: "plain text", message: &tele.Message{Sender: alice, Text: "hello"}, expected: true},
		{name: "command", message: &tele.Message{Sender: alice, Text: "/end"}, expected: true},
		{name: "command with payload", message: &tele.Message{Sender: alice, Text: "/shrug ok"}, expected: true},
		{name: "no message", message: nil, expected: false},
		{name: "no sender", message: &tele.Message{Text: "hello"}, expected: false},
		{name: "media without text", message: &tele.Message{Sender: alice}, expected: false},
		{name: "filtered by telebot", message: &tele.Message{Sender: alice, Text: "\ahello"}, expected: false},
		{name: "addressed to a bot", message: &tele.Message{Sender: alice, Text: "/end@otherbot"}, expected: false},
		{name: "pinned", message: &tele.Message{Sender: alice, Text: "x", PinnedMessage: &tele.Message{}}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sequenced(tt.message))
		})
	}
}
