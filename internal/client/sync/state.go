package sync

import (
	"time"

	"github.com/iudanet/docsync/internal/models"
)

// State состояние реплики для UI и CLI
type State struct {
	LastSyncAt time.Time
	LastError  string
	Pending    int // документов с локальными изменениями
	Queued     int // операций в очереди ретраев
	Online     bool
	Syncing    bool
}

// State returns the current snapshot
func (s *Service) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving state changes and a cancel func.
// The channel holds only the latest state: slow readers skip intermediate ones.
func (s *Service) Subscribe() (<-chan State, func()) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	ch <- s.state
	s.subs[id] = ch

	cancel := func() {
		s.stateMu.Lock()
		defer s.stateMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Service) updateState(fn func(st *State)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	before := s.state
	fn(&s.state)
	if before == s.state {
		return
	}

	for _, ch := range s.subs {
		// оставляем в канале только последнее состояние
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

// PendingOperations returns queued retry operations in retry order
func (s *Service) PendingOperations() []*models.PendingOperation {
	return s.queue.Pending()
}
