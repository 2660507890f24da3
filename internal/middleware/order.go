package middleware

import (
	"strings"
	"sync"

	tele "gopkg.in/telebot.v3"
)

// Sequencer keeps each user's text messages in the order Telegram delivered them.
// Filter runs in the poll loop, before telebot starts a goroutine per update, and
// queues the message. Ordered holds the handler until its message is first in line.
type Sequencer struct {
	mu     sync.Mutex
	queues map[int64]*senderQueue
}

type senderQueue struct {
	pending []*tele.Message
	turn    *sync.Cond
}

// NewSequencer creates an empty sequencer
func NewSequencer() *Sequencer {
	return &Sequencer{queues: make(map[int64]*senderQueue)}
}

// Poller wraps inner so every update passes through Filter in arrival order
func (s *Sequencer) Poller(inner tele.Poller) tele.Poller {
	return tele.NewMiddlewarePoller(inner, s.Filter)
}

// Filter queues text messages per sender. It never drops an update.
func (s *Sequencer) Filter(u *tele.Update) bool {
	m := u.Message
	if !sequenced(m) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[m.Sender.ID]
	if !ok {
		q = &senderQueue{turn: sync.NewCond(&s.mu)}
		s.queues[m.Sender.ID] = q
	}
	q.pending = append(q.pending, m)
	return true
}

// Ordered runs handlers for queued messages one at a time per sender, oldest first
func (s *Sequencer) Ordered() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			m := c.Update().Message
			if !s.await(m) {
				return next(c)
			}
			defer s.release(m)
			return next(c)
		}
	}
}

// Pending reports how many of the user's messages are queued or running
func (s *Sequencer) Pending(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[userID]; ok {
		return len(q.pending)
	}
	return 0
}

func (s *Sequencer) await(m *tele.Message) bool {
	if m == nil || m.Sender == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[m.Sender.ID]
	if !ok || !queued(q.pending, m) {
		return false
	}
	for q.pending[0] != m {
		q.turn.Wait()
	}
	return true
}

func (s *Sequencer) release(m *tele.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[m.Sender.ID]
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		delete(s.queues, m.Sender.ID)
		return
	}
	q.turn.Broadcast()
}

func queued(pending []*tele.Message, m *tele.Message) bool {
	for _, p := range pending {
		if p == m {
			return true
		}
	}
	return false
}

// sequenced reports whether telebot is sure to hand m to a text or command handler.
// Anything it may drop before a handler runs must stay out of the queue.
func sequenced(m *tele.Message) bool {
	if m == nil || m.Sender == nil || m.PinnedMessage != nil || m.Text == "" {
		return false
	}
	if m.Text[0] == '\a' {
		return false
	}
	// "/cmd@otherbot" is discarded when the bot name does not match
	if strings.HasPrefix(m.Text, "/") && strings.Contains(strings.Fields(m.Text)[0], "@") {
		return false
	}
	return true
}
