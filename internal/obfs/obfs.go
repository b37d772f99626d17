package obfs

import "errors"

var (
	ErrInvalidData     = errors.New("invalid obfuscated data")
	ErrInvalidAlphabet = errors.New("alphabets must be permutations of each other")
)

// Obfuscator turns raw message bytes into a text-safe body and back.
type Obfuscator interface {
	// Name returns the obfuscator identifier
	Name() string

	// Wrap encodes raw bytes into the body sent on the wire
	Wrap(data []byte) ([]byte, error)

	// Unwrap recovers raw bytes from a wire body
	Unwrap(data []byte) ([]byte, error)
}

// NewFunc is a constructor function for creating obfuscators
type NewFunc func() (Obfuscator, error)

// Registry maps obfuscator names to constructor functions
var Registry = map[string]NewFunc{
	"base64":       NewBase64Obfuscator,
	"substitution": NewSubstitutionObfuscator,
}

// New creates an obfuscator by name
func New(name string) (Obfuscator, error) {
	fn, ok := Registry[name]
	if !ok {
		return nil, errors.New("unknown obfuscator: " + name)
	}
	return fn()
}
