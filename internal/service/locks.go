package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"relaybot/internal/domain"
)

// keyedMutex hands out one mutex per user id. Entries live only while someone holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refMutex)}
}

// lock acquires the mutexes of all ids in ascending order and returns the release func
func (k *keyedMutex) lock(ids ...int64) func() {
	sorted := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		k.mu.Lock()
		m, ok := k.locks[id]
		if !ok {
			m = &refMutex{}
			k.locks[id] = m
		}
		m.refs++
		k.mu.Unlock()

		m.Lock()
	}

	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			k.unlock(sorted[i])
		}
	}
}

func (k *keyedMutex) unlock(id int64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m := k.locks[id]
	m.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, id)
	}
}

// size reports how many ids currently have a mutex
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrInvalidOrExpiredCode,
	domain.ErrAlreadyPaired,
	domain.ErrNotPaired,
	domain.ErrSelfPairing,
	domain.ErrTranslationFailed,
	domain.ErrStoreUnavailable,
	domain.ErrUnsupportedLanguage,
}

// storeError passes domain errors through and classifies everything else as ErrStoreUnavailable
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
