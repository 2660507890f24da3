package session

import (
	"sync"
	"testing"

	"relaybot/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestStore_GetEmpty(t *testing.T) {
	s := NewStore()

	state := s.Get(1)
	assert.NotNil(t, state)
	assert.Empty(t, state)
	assert.Equal(t, domain.AwaitingNothing, s.Awaiting(1))
}

func TestStore_MergeIsShallow(t *testing.T) {
	s := NewStore()

	s.Merge(1, domain.SessionState{"a": "1", "b": "2"})
	s.Merge(1, domain.SessionState{"b": "3", "c": "4"})

	assert.Equal(t, domain.SessionState{"a": "1", "b": "3", "c": "4"}, s.Get(1))
	assert.Empty(t, s.Get(2), "other users are unaffected")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Merge(1, domain.SessionState{"a": "1"})

	state := s.Get(1)
	state["a"] = "changed"

	assert.Equal(t, "1", s.Get(1)["a"])
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.SetAwaiting(1, domain.AwaitingCode)

	s.Clear(1)

	assert.Empty(t, s.Get(1))
	assert.Equal(t, domain.AwaitingNothing, s.Awaiting(1))
}

func TestStore_SetAwaiting(t *testing.T) {
	s := NewStore()

	s.SetAwaiting(1, domain.AwaitingDialect)
	assert.Equal(t, domain.AwaitingDialect, s.Awaiting(1))

	s.SetAwaiting(1, domain.AwaitingLocation)
	assert.Equal(t, domain.AwaitingLocation, s.Awaiting(1))

	s.TrackMessage(1, 10)
	s.SetAwaiting(1, domain.AwaitingNothing)
	assert.Equal(t, domain.AwaitingNothing, s.Awaiting(1))
	assert.Equal(t, 10, s.LastMessageID(1), "dropping the flag keeps other keys")
}

func TestStore_TrackMessageKeepsNewest(t *testing.T) {
	s := NewStore()

	assert.Equal(t, 0, s.LastMessageID(1))

	s.TrackMessage(1, 50)
	s.TrackMessage(1, 40)
	s.TrackMessage(1, 0)
	assert.Equal(t, 50, s.LastMessageID(1))

	s.TrackMessage(1, 51)
	assert.Equal(t, 51, s.LastMessageID(1))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := int64(i % 5)
			s.SetAwaiting(uid, domain.AwaitingCode)
			s.TrackMessage(uid, i+1)
			_ = s.Get(uid)
		}(i)
	}
	wg.Wait()

	for uid := int64(0); uid < 5; uid++ {
		assert.Equal(t, domain.AwaitingCode, s.Awaiting(uid))
	}
}
