package conf

import (
	"fmt"
	"httptun/internal/blv"
	"slices"
	"time"
)

const (
	DefaultMaxReadSize = 512 * 1024
	DefaultHello       = "NeoGeorg says, 'All seems fine'"
)

type Tunnel struct {
	// Obfuscation mode: substitution, base64
	Obfs string `yaml:"obfs"`

	// Added to every encoded record length; must match the client. 0 selects the default.
	LengthOffset uint32 `yaml:"length_offset"`

	// Per-session cap on bytes buffered for READ. Older bytes are dropped first.
	MaxReadSize int `yaml:"max_read_size"`

	// Seconds without READ/FORWARD before a session is torn down. 0 disables.
	IdleTimeout int `yaml:"idle_timeout"`

	// 0 means unlimited
	MaxSessions int `yaml:"max_sessions"`

	// Body returned for requests that carry no recognised command.
	Hello string `yaml:"hello"`
}

func (t *Tunnel) setDefaults() {
	if t.Obfs == "" {
		t.Obfs = "substitution"
	}
	if t.LengthOffset == 0 {
		t.LengthOffset = blv.DefaultLengthOffset
	}
	if t.MaxReadSize == 0 {
		t.MaxReadSize = DefaultMaxReadSize
	}
	if t.Hello == "" {
		t.Hello = DefaultHello
	}
}

func (t *Tunnel) validate() []error {
	var errors []error

	validModes := []string{"substitution", "base64"}
	if !slices.Contains(validModes, t.Obfs) {
		errors = append(errors, fmt.Errorf("tunnel obfs must be one of: %v", validModes))
	}
	if t.MaxReadSize < 1024 || t.MaxReadSize > 64*1024*1024 {
		errors = append(errors, fmt.Errorf("tunnel max_read_size must be between 1024 and 67108864 bytes"))
	}
	if t.IdleTimeout < 0 || t.IdleTimeout > 86400 {
		errors = append(errors, fmt.Errorf("tunnel idle_timeout must be between 0-86400 seconds"))
	}
	if t.MaxSessions < 0 {
		errors = append(errors, fmt.Errorf("tunnel max_sessions must be >= 0 (0 means unlimited)"))
	}
	return errors
}

func (t *Tunnel) IdleTimeoutD() time.Duration {
	return time.Duration(t.IdleTimeout) * time.Second
}
