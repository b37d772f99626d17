package obfs

import (
	"bytes"
	"encoding/base64"
	"fmt"
)

// Base64Obfuscator is plain standard base64 without substitution.
// Useful for debugging captured traffic.
type Base64Obfuscator struct{}

func NewBase64Obfuscator() (Obfuscator, error) {
	return &Base64Obfuscator{}, nil
}

func (o *Base64Obfuscator) Name() string {
	return "base64"
}

func (o *Base64Obfuscator) Wrap(data []byte) ([]byte, error) {
	return encodeBase64(data), nil
}

func (o *Base64Obfuscator) Unwrap(data []byte) ([]byte, error) {
	return decodeBase64(data)
}

func encodeBase64(data []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out
}

// decodeBase64 accepts bodies with embedded line breaks and with or without
// trailing padding, as form posts and some HTTP clients produce them.
func decodeBase64(data []byte) ([]byte, error) {
	clean := make([]byte, 0, len(data))
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		clean = append(clean, c)
	}
	clean = bytes.TrimRight(clean, "=")

	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
	n, err := base64.RawStdEncoding.Decode(out, clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return out[:n], nil
}
