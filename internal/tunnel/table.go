package tunnel

import (
	"context"
	"httptun/internal/flog"
	"sync"
	"time"
)

// Table maps marks to live sessions. A session is present from the moment its
// target connection is established until it is torn down.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	closed   bool
}

// NewTable returns an empty table. max limits the number of concurrent
// sessions; 0 means unlimited.
func NewTable(maxSessions int) *Table {
	return &Table{
		sessions: make(map[string]*Session),
		max:      maxSessions,
	}
}

func (t *Table) Get(mark string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[mark]
	return s, ok
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// checkAdmit reports whether a session for mark could be added right now.
func (t *Table) checkAdmit(mark string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.admitLocked(mark)
}

func (t *Table) admitLocked(mark string) error {
	if t.closed {
		return ErrShutdown
	}
	if _, ok := t.sessions[mark]; ok {
		return ErrMarkInUse
	}
	if t.max > 0 && len(t.sessions) >= t.max {
		return ErrTooManySessions
	}
	return nil
}

// add registers s. The session removes itself from the table when closed.
func (t *Table) add(s *Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.admitLocked(s.mark); err != nil {
		return err
	}
	s.onStop = t.remove
	t.sessions[s.mark] = s
	return nil
}

func (t *Table) remove(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.sessions[s.mark]; ok && cur == s {
		delete(t.sessions, s.mark)
	}
}

func (t *Table) snapshot() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	list := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		list = append(list, s)
	}
	return list
}

// CloseAll tears down every session and stops admitting new ones.
func (t *Table) CloseAll(reason error) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	for _, s := range t.snapshot() {
		s.Close(reason)
	}
}

// reap closes sessions without client activity for longer than idle.
// The snapshot is taken without holding the lock while closing, so sessions
// added meanwhile are checked on the next pass.
func (t *Table) reap(idle time.Duration) int {
	now := time.Now()
	n := 0
	for _, s := range t.snapshot() {
		if s.idleSince(now) > idle {
			flog.Infof("session %s idle for over %s, closing", s.Mark(), idle)
			s.Close(ErrIdleTimeout)
			n++
		}
	}
	return n
}

func (t *Table) reaper(ctx context.Context, idle time.Duration) {
	interval := idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := t.reap(idle); n > 0 {
				flog.Debugf("reaped %d idle sessions, %d remain", n, t.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
