package encode

import (
	"bytes"
	"httptun/internal/blv"
	"httptun/internal/obfs"
	"httptun/internal/tunnel"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, name string, body []byte) blv.Record {
	t.Helper()
	o, err := obfs.New(name)
	require.NoError(t, err)
	rec, err := tunnel.NewCodec(o, blv.DefaultLengthOffset).Decode(body)
	require.NoError(t, err)
	return rec
}

func TestEncodeConnect(t *testing.T) {
	var buf bytes.Buffer
	err := encode(&buf, &options{
		obfs:   "substitution",
		offset: blv.DefaultLengthOffset,
		cmd:    "CONNECT",
		mark:   "m1",
		host:   "10.0.0.1",
		port:   "22",
	})
	require.NoError(t, err)

	rec := decodeBody(t, "substitution", buf.Bytes())
	for tag, want := range map[byte]string{
		blv.TagCommand: "CONNECT",
		blv.TagMark:    "m1",
		blv.TagHost:    "10.0.0.1",
		blv.TagPort:    "22",
	} {
		got, ok := rec.Get(tag)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	require.NotContains(t, rec, blv.TagData)
}

func TestEncodeDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload")
	payload := []byte{0, 1, 2, 0xfe, 0xff}
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	var buf bytes.Buffer
	err := encode(&buf, &options{
		obfs:     "base64",
		offset:   blv.DefaultLengthOffset,
		cmd:      "FORWARD",
		mark:     "m1",
		dataFile: path,
	})
	require.NoError(t, err)
	require.Equal(t, payload, []byte(decodeBody(t, "base64", buf.Bytes())[blv.TagData]))
}

func TestEncodeUnknownObfs(t *testing.T) {
	var buf bytes.Buffer
	err := encode(&buf, &options{obfs: "rot13", offset: blv.DefaultLengthOffset})
	require.Error(t, err)
	require.Zero(t, buf.Len())
}
