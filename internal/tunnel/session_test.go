package tunnel

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSession(t *testing.T, maxRead int) (*Session, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() { remote.Close() })
	return newSession("m", local, maxRead), remote
}

func TestAppendReadCap(t *testing.T) {
	tests := []struct {
		name    string
		maxRead int
		chunks  []string
		want    string
		dropped int64
	}{
		{name: "under cap", maxRead: 8, chunks: []string{"abc", "def"}, want: "abcdef"},
		{name: "exactly cap", maxRead: 6, chunks: []string{"abc", "def"}, want: "abcdef"},
		{name: "overflow keeps newest", maxRead: 4, chunks: []string{"abc", "def"}, want: "cdef", dropped: 2},
		{name: "single chunk over cap", maxRead: 3, chunks: []string{"ab", "cdefg"}, want: "efg", dropped: 4},
		{name: "many small", maxRead: 2, chunks: []string{"a", "b", "c", "d"}, want: "cd", dropped: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testSession(t, tt.maxRead)
			for _, c := range tt.chunks {
				s.appendRead([]byte(c))
			}
			got, err := s.TakeRead()
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
			require.Equal(t, tt.dropped, s.dropped.Load())
		})
	}
}

func TestTakeReadClears(t *testing.T) {
	s, _ := testSession(t, 16)
	s.appendRead([]byte("hello"))

	got, err := s.TakeRead()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = s.TakeRead()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestForwardQueuesInOrder(t *testing.T) {
	s, _ := testSession(t, 16)
	require.NoError(t, s.Forward([]byte("a")))
	require.NoError(t, s.Forward([]byte("b")))
	require.NoError(t, s.Forward([]byte("c")))
	require.Equal(t, "abc", string(s.takeWrite()))
	require.Empty(t, s.takeWrite())
}

func TestClosedSessionRejects(t *testing.T) {
	s, _ := testSession(t, 16)
	s.appendRead([]byte("pending"))
	s.Close(ErrDisconnected)
	s.Close(ErrIdleTimeout)

	require.False(t, s.Running())
	require.ErrorIs(t, s.Err(), ErrDisconnected)
	require.ErrorIs(t, s.Forward([]byte("x")), ErrSessionClosed)
	_, err := s.TakeRead()
	require.ErrorIs(t, err, ErrSessionClosed)

	s.appendRead([]byte("late"))
	require.Nil(t, s.readBuf)
}

func TestTableAddRemove(t *testing.T) {
	tbl := NewTable(1)
	s, _ := testSession(t, 16)
	require.NoError(t, tbl.add(s))
	require.Equal(t, 1, tbl.Len())

	dup, _ := testSession(t, 16)
	require.ErrorIs(t, tbl.add(dup), ErrMarkInUse)

	other, _ := testSession(t, 16)
	other.mark = "other"
	require.ErrorIs(t, tbl.add(other), ErrTooManySessions)

	s.Close(ErrDisconnected)
	<-s.Done()
	_, ok := tbl.Get("m")
	require.False(t, ok)
	require.Zero(t, tbl.Len())
}

func TestTableRemoveOnlyOwnEntry(t *testing.T) {
	tbl := NewTable(0)
	s, _ := testSession(t, 16)
	require.NoError(t, tbl.add(s))

	stale, _ := testSession(t, 16)
	tbl.remove(stale)
	_, ok := tbl.Get("m")
	require.True(t, ok)
}
