// Package blv implements the tag-length-value record format carried in
// tunnel request and response bodies.
//
// A message is a concatenation of records:
//
//	[1 byte: tag] [4 bytes: big-endian len(value) + offset] [value]
//
// The offset is a constant shared by both ends.
package blv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

const headerSize = 5

// DefaultLengthOffset is added to every encoded length.
const DefaultLengthOffset uint32 = 5261

// Field tags.
const (
	TagData          byte = 1
	TagCommand       byte = 2
	TagMark          byte = 3
	TagStatus        byte = 4
	TagError         byte = 5
	TagHost          byte = 6
	TagPort          byte = 7
	TagRedirectURL   byte = 8 // reserved
	TagForceRedirect byte = 9 // reserved
)

var tagNames = map[byte]string{
	TagData:          "DATA",
	TagCommand:       "CMD",
	TagMark:          "MARK",
	TagStatus:        "STATUS",
	TagError:         "ERROR",
	TagHost:          "IP",
	TagPort:          "PORT",
	TagRedirectURL:   "REDIRECTURL",
	TagForceRedirect: "FORCEREDIRECT",
}

// TagName returns the conventional name of tag, or its number for unknown tags.
func TagName(tag byte) string {
	if n, ok := tagNames[tag]; ok {
		return n
	}
	if IsDecoy(tag) {
		return fmt.Sprintf("DECOY(%d)", tag)
	}
	return fmt.Sprintf("TAG(%d)", tag)
}

// Decoy tags carry random padding only and are never interpreted.
const (
	TagDecoyHead byte = 0
	TagDecoyTail byte = 39
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrValueTooLarge   = errors.New("record value too large")
)

// Record maps tags to values. One record is built per message.
type Record map[byte][]byte

// Get returns the value for tag as a string, and whether it was present.
func (r Record) Get(tag byte) (string, bool) {
	v, ok := r[tag]
	return string(v), ok
}

func (r Record) Set(tag byte, v string) {
	r[tag] = []byte(v)
}

// IsDecoy reports whether tag is reserved for padding.
func IsDecoy(tag byte) bool {
	return tag == TagDecoyHead || tag == TagDecoyTail
}

// Codec encodes and decodes records with a fixed length offset.
type Codec struct {
	offset uint32
}

func NewCodec(offset uint32) *Codec {
	return &Codec{offset: offset}
}

// Decode parses data into a record. When a tag repeats, the last value wins.
// Values alias data.
func (c *Codec) Decode(data []byte) (Record, error) {
	rec := make(Record)
	i := 0
	for i < len(data) {
		if len(data)-i < headerSize {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedRecord, i)
		}
		tag := data[i]
		raw := binary.BigEndian.Uint32(data[i+1 : i+headerSize])
		i += headerSize
		if raw < c.offset {
			return nil, fmt.Errorf("%w: tag %d length below offset", ErrMalformedRecord, tag)
		}
		l := uint64(raw - c.offset)
		if l > uint64(len(data)-i) {
			return nil, fmt.Errorf("%w: tag %d declares %d bytes, %d remain", ErrMalformedRecord, tag, l, len(data)-i)
		}
		rec[tag] = data[i : i+int(l) : i+int(l)]
		i += int(l)
	}
	return rec, nil
}

// Encode serializes rec after adding the two decoy fields. rec is not modified.
// Fields are written in ascending tag order.
func (c *Codec) Encode(rec Record) ([]byte, error) {
	out := make(Record, len(rec)+2)
	for tag, v := range rec {
		out[tag] = v
	}
	out[TagDecoyHead] = decoy()
	out[TagDecoyTail] = decoy()

	tags := make([]byte, 0, len(out))
	size := 0
	for tag, v := range out {
		if uint64(len(v))+uint64(c.offset) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: tag %d has %d bytes", ErrValueTooLarge, tag, len(v))
		}
		tags = append(tags, tag)
		size += headerSize + len(v)
	}
	slices.Sort(tags)

	buf := make([]byte, 0, size)
	for _, tag := range tags {
		v := out[tag]
		buf = append(buf, tag)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v))+c.offset)
		buf = append(buf, v...)
	}
	return buf, nil
}
