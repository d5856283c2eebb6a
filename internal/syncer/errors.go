package syncer

import (
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is reported when a push is rejected because the queue is at
// capacity. The record is not lost: the next pull re-pushes it.
var ErrQueueFull = errors.New("sync queue full")

// ErrorSlot holds the most recent sync failure. It is the non-blocking channel
// through which background failures reach the user; reporting never blocks and
// never affects local state.
type ErrorSlot struct {
	mu    sync.Mutex
	err   error
	at    time.Time
	count int
}

func (s *ErrorSlot) Report(err error) {
	if s == nil || err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.at = time.Now()
	s.count++
}

// Notice is a reported failure as shown to the user.
type Notice struct {
	Err error
	At  time.Time
}

// Last returns the most recent failure, if any.
func (s *ErrorSlot) Last() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return Notice{}, false
	}
	return Notice{Err: s.err, At: s.at}, true
}

// Count is the number of errors reported since the last Clear.
func (s *ErrorSlot) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *ErrorSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	s.at = time.Time{}
	s.count = 0
}
