package tunnel

import (
	"fmt"
	"httptun/internal/blv"
	"httptun/internal/obfs"
)

// Codec converts between HTTP bodies and records: obfuscated base64 text on
// the outside, BLV records inside.
type Codec struct {
	obfs obfs.Obfuscator
	blv  *blv.Codec
}

func NewCodec(o obfs.Obfuscator, lengthOffset uint32) *Codec {
	return &Codec{
		obfs: o,
		blv:  blv.NewCodec(lengthOffset),
	}
}

// Decode parses a request body. Any failure wraps blv.ErrMalformedRecord.
func (c *Codec) Decode(body []byte) (blv.Record, error) {
	raw, err := c.obfs.Unwrap(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blv.ErrMalformedRecord, err)
	}
	return c.blv.Decode(raw)
}

func (c *Codec) Encode(rec blv.Record) ([]byte, error) {
	raw, err := c.blv.Encode(rec)
	if err != nil {
		return nil, err
	}
	return c.obfs.Wrap(raw)
}
