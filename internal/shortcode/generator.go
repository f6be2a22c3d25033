// Package shortcode generates random short codes for links.
//
// Codes are drawn uniformly from a configurable alphabet using crypto/rand,
// so multiple service instances can generate concurrently with no shared
// state. Uniqueness is enforced by the store's unique constraint at write
// time, not here: generating a code reserves nothing.
package shortcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Base62Alphabet is the default code alphabet.
const Base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Length bounds for generated codes.
const (
	MinLength = 6
	MaxLength = 8
)

var (
	// ErrInvalidLength indicates a code length outside the supported range.
	ErrInvalidLength = errors.New("code length must be between 6 and 8")
	// ErrInvalidAlphabet indicates an unusable alphabet.
	ErrInvalidAlphabet = errors.New("alphabet must contain at least 2 distinct characters")
)

// Generator produces random short codes.
type Generator struct {
	alphabet string
	length   int
}

// New creates a Generator with the given alphabet and code length.
func New(alphabet string, length int) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, ErrInvalidLength
	}
	if len(alphabet) < 2 || hasDuplicates(alphabet) {
		return nil, ErrInvalidAlphabet
	}
	return &Generator{alphabet: alphabet, length: length}, nil
}

// Generate returns a new random code. It does not consult any store;
// callers detect collisions on write and retry.
func (g *Generator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(g.length)

	max := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(g.alphabet[n.Int64()])
	}

	return b.String(), nil
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Alphabet returns the configured alphabet.
func (g *Generator) Alphabet() string {
	return g.alphabet
}

// Valid reports whether s could have been produced by this generator.
func (g *Generator) Valid(s string) bool {
	if len(s) != g.length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(g.alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

func hasDuplicates(s string) bool {
	seen := make(map[byte]bool, len(s))
	for i := 0; i < len(s); i++ {
		if seen[s[i]] {
			return true
		}
		seen[s[i]] = true
	}
	return false
}
