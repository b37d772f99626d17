package obfs

// StdAlphabet is the standard base64 alphabet.
const StdAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// ScrambledAlphabet is the fixed permutation of StdAlphabet used on the wire.
// Both ends must be built with the same table.
const ScrambledAlphabet = "qGazlPCkgmoJ7X6s5M0ThDwvyKfdrbxVZLn1OQYFEUj2/c34+AIWBtRSieNH8u9p"

// Alphabet is a 1:1 byte substitution between two equal-length alphabets.
// Bytes outside the alphabets pass through unchanged.
type Alphabet struct {
	enc [256]byte
	dec [256]byte
}

func NewAlphabet(from, to string) (*Alphabet, error) {
	if len(from) != len(to) || !isPermutation(from, to) {
		return nil, ErrInvalidAlphabet
	}
	a := &Alphabet{}
	for i := range 256 {
		a.enc[i] = byte(i)
		a.dec[i] = byte(i)
	}
	for i := 0; i < len(from); i++ {
		a.enc[from[i]] = to[i]
		a.dec[to[i]] = from[i]
	}
	return a, nil
}

func isPermutation(a, b string) bool {
	var seenA, seenB [256]int
	for i := 0; i < len(a); i++ {
		seenA[a[i]]++
		seenB[b[i]]++
	}
	for i := range 256 {
		if seenA[i] > 1 || seenA[i] != seenB[i] {
			return false
		}
	}
	return true
}

// Encode maps text from the source alphabet into the target alphabet.
func (a *Alphabet) Encode(text string) string {
	return string(a.EncodeBytes([]byte(text)))
}

// Decode is the inverse of Encode.
func (a *Alphabet) Decode(text string) string {
	return string(a.DecodeBytes([]byte(text)))
}

// EncodeBytes maps b in place and returns it.
func (a *Alphabet) EncodeBytes(b []byte) []byte {
	for i, c := range b {
		b[i] = a.enc[c]
	}
	return b
}

// DecodeBytes maps b in place and returns it.
func (a *Alphabet) DecodeBytes(b []byte) []byte {
	for i, c := range b {
		b[i] = a.dec[c]
	}
	return b
}

// SubstitutionObfuscator base64-encodes data and then swaps the standard
// alphabet for ScrambledAlphabet. This only defeats naive signature matching.
type SubstitutionObfuscator struct {
	alphabet *Alphabet
}

func NewSubstitutionObfuscator() (Obfuscator, error) {
	a, err := NewAlphabet(StdAlphabet, ScrambledAlphabet)
	if err != nil {
		return nil, err
	}
	return &SubstitutionObfuscator{alphabet: a}, nil
}

func (o *SubstitutionObfuscator) Name() string {
	return "substitution"
}

func (o *SubstitutionObfuscator) Wrap(data []byte) ([]byte, error) {
	return o.alphabet.EncodeBytes(encodeBase64(data)), nil
}

func (o *SubstitutionObfuscator) Unwrap(data []byte) ([]byte, error) {
	text := o.alphabet.DecodeBytes(append([]byte(nil), data...))
	return decodeBase64(text)
}
