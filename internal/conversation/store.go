// Package conversation holds the ordered, append-only chat log.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-spend/internal/models"
)

// DefaultAckDelay is how long the "awaiting reply" indicator stays up after a
// submission. It is a fixed timer and is not tied to the actual reply.
const DefaultAckDelay = time.Second

type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	awaiting bool
	ackDelay time.Duration
	ackTimer *time.Timer
	ackGen   int
	changes  chan struct{}
}

func New(ackDelay time.Duration) *Store {
	if ackDelay <= 0 {
		ackDelay = DefaultAckDelay
	}
	return &Store{
		ackDelay: ackDelay,
		changes:  make(chan struct{}, 1),
	}
}

// Append adds one message to the end of the log.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, withID(msg))
	s.mu.Unlock()
	s.notify()
}

// AppendHistory adds a replayed, already chronological set of messages. It is
// not reconciled against entries that are already in the log.
func (s *Store) AppendHistory(msgs []models.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	for _, m := range msgs {
		s.messages = append(s.messages, withID(m))
	}
	s.mu.Unlock()
	s.notify()
}

// Echo appends the user's own message immediately and raises the awaiting
// indicator for the fixed ack delay.
func (s *Store) Echo(text string) {
	s.mu.Lock()
	s.messages = append(s.messages, withID(models.UserMessage(text)))
	s.awaiting = true
	if s.ackTimer != nil {
		s.ackTimer.Stop()
	}
	s.ackGen++
	gen := s.ackGen
	s.ackTimer = time.AfterFunc(s.ackDelay, func() { s.clearAwaiting(gen) })
	s.mu.Unlock()
	s.notify()
}

func (s *Store) clearAwaiting(gen int) {
	s.mu.Lock()
	if gen != s.ackGen {
		s.mu.Unlock()
		return
	}
	s.awaiting = false
	s.ackTimer = nil
	s.mu.Unlock()
	s.notify()
}

// All returns a copy of the log, oldest first.
func (s *Store) All() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Awaiting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.awaiting
}

// Changes signals after every mutation. Signals coalesce when nobody is reading.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Stop cancels a pending ack timer.
func (s *Store) Stop() {
	s.mu.Lock()
	if s.ackTimer != nil {
		s.ackTimer.Stop()
		s.ackTimer = nil
	}
	s.awaiting = false
	s.mu.Unlock()
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func withID(m models.Message) models.Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m
}
