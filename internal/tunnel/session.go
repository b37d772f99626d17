package tunnel

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one tunneled TCP connection, keyed by its mark.
type Session struct {
	mark    string
	conn    net.Conn
	maxRead int

	mu         sync.Mutex
	running    bool
	writeBuf   []byte
	readBuf    []byte
	lastActive time.Time

	bytesUp   atomic.Int64
	bytesDown atomic.Int64
	dropped   atomic.Int64

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	err      error
	onStop   func(*Session)
}

func newSession(mark string, conn net.Conn, maxRead int) *Session {
	return &Session{
		mark:       mark,
		conn:       conn,
		maxRead:    maxRead,
		running:    true,
		lastActive: time.Now(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (s *Session) Mark() string {
	return s.mark
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed once the session has been torn down and removed from its table.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err waits for the session to end and reports why.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

// Forward queues data for the target. The write pump flushes everything
// queued so far in one write.
func (s *Session) Forward(data []byte) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.writeBuf = append(s.writeBuf, data...)
	s.lastActive = time.Now()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// TakeRead returns and clears everything received from the target so far.
func (s *Session) TakeRead() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, ErrSessionClosed
	}
	b := s.readBuf
	s.readBuf = nil
	s.lastActive = time.Now()
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (s *Session) takeWrite() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.writeBuf
	s.writeBuf = nil
	return b
}

// appendRead buffers bytes from the target. Past maxRead the oldest bytes are
// dropped; a slow reader loses data rather than stalling the socket.
func (s *Session) appendRead(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if len(p) >= s.maxRead {
		s.dropped.Add(int64(len(s.readBuf) + len(p) - s.maxRead))
		s.readBuf = append(s.readBuf[:0], p[len(p)-s.maxRead:]...)
		return
	}
	s.readBuf = append(s.readBuf, p...)
	if over := len(s.readBuf) - s.maxRead; over > 0 {
		s.dropped.Add(int64(over))
		n := copy(s.readBuf, s.readBuf[over:])
		s.readBuf = s.readBuf[:n]
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

// Close tears the session down: it stops both pumps, closes the socket and
// removes the session from its table before Done is closed. Only the first
// call has any effect.
func (s *Session) Close(reason error) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.running = false
		s.writeBuf = nil
		s.readBuf = nil
		s.mu.Unlock()

		s.err = reason
		_ = s.conn.Close()
		if s.onStop != nil {
			s.onStop(s)
		}
		close(s.done)
	})
}
