package tunnel

import (
	"errors"
	"httptun/internal/flog"
	"httptun/internal/pkg/buffer"
	"io"
	"net"
)

// pump moves bytes between the session's buffers and its socket until the
// session is closed.
func (s *Session) pump() {
	go s.readLoop()
	go s.writeLoop()
}

func (s *Session) readLoop() {
	bufp := buffer.Get()
	defer buffer.Put(bufp)
	buf := *bufp

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.bytesDown.Add(int64(n))
			s.appendRead(buf[:n])
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				flog.Debugf("session %s closed by target", s.mark)
			case errors.Is(err, net.ErrClosed):
				// closed locally
			default:
				flog.Errorf("session %s read error: %v", s.mark, err)
			}
			s.Close(err)
			return
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		data := s.takeWrite()
		if len(data) == 0 {
			continue
		}
		n, err := s.conn.Write(data)
		s.bytesUp.Add(int64(n))
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				flog.Errorf("session %s write error: %v", s.mark, err)
			}
			s.Close(err)
			return
		}
	}
}
