// Package keys mints verification keys for completed sessions.
package keys

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"authenticity-survey/internal/models"
)

// Strategy selects how keys are built
type Strategy string

const (
	StrategyCode     Strategy = "code"     // XXXX-XXXX-XXXX for raters
	StrategyPrefixed Strategy = "prefixed" // prefix + random suffix for internal record ids
)

const (
	// DefaultAlphabet drops 0/O and 1/I
	DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultPrefix   = "session_"

	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	codeLength      = 12
	codeGroupSize   = 4
	codeSeparator   = "-"
	minAlphabetSize = 32
	confusables     = "0O1Il"

	defaultSuffixLength = 9
	maxSuffixLength     = 32
)

// Issuer mints verification keys. Keys are not checked for uniqueness against the store.
type Issuer interface {
	Issue() (models.VerificationKey, error)
}

// Config for building an Issuer
type Config struct {
	Strategy     Strategy
	Alphabet     string // code strategy only
	Prefix       string // prefixed strategy only
	SuffixLength int    // prefixed strategy only
}

// NewIssuer builds the issuer described by cfg
func NewIssuer(cfg Config) (Issuer, error) {
	switch cfg.Strategy {
	case "", StrategyCode:
		return NewCodeIssuer(cfg.Alphabet)
	case StrategyPrefixed:
		return NewPrefixedIssuer(cfg.Prefix, cfg.SuffixLength)
	default:
		return nil, fmt.Errorf("%w: unknown key strategy %q", models.ErrInvalidConfiguration, cfg.Strategy)
	}
}

// CodeIssuer produces 12-character grouped codes from an unambiguous alphabet
type CodeIssuer struct {
	alphabet []byte
	random   io.Reader
}

// NewCodeIssuer validates the alphabet. An empty alphabet selects DefaultAlphabet.
func NewCodeIssuer(alphabet string) (*CodeIssuer, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}

	seen := make(map[rune]bool, len(alphabet))
	for _, r := range alphabet {
		if r > 0x7f {
			return nil, fmt.Errorf("%w: key alphabet must be ASCII", models.ErrInvalidConfiguration)
		}
		if strings.ContainsRune(confusables, r) {
			return nil, fmt.Errorf("%w: key alphabet contains confusable character %q", models.ErrInvalidConfiguration, r)
		}
		if strings.ContainsRune(codeSeparator, r) {
			return nil, fmt.Errorf("%w: key alphabet contains the group separator", models.ErrInvalidConfiguration)
		}
		if seen[r] {
			return nil, fmt.Errorf("%w: key alphabet repeats %q", models.ErrInvalidConfiguration, r)
		}
		seen[r] = true
	}
	if len(seen) < minAlphabetSize {
		return nil, fmt.Errorf("%w: key alphabet needs at least %d symbols, got %d",
			models.ErrInvalidConfiguration, minAlphabetSize, len(seen))
	}

	return &CodeIssuer{alphabet: []byte(alphabet), random: rand.Reader}, nil
}

// Issue returns a fresh XXXX-XXXX-XXXX code
func (c *CodeIssuer) Issue() (models.VerificationKey, error) {
	chars, err := pick(c.random, c.alphabet, codeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	var b strings.Builder
	b.Grow(codeLength + codeLength/codeGroupSize)
	for i, ch := range chars {
		if i > 0 && i%codeGroupSize == 0 {
			b.WriteString(codeSeparator)
		}
		b.WriteByte(ch)
	}
	return models.VerificationKey(b.String()), nil
}

// pick draws n alphabet symbols from random without modulo bias
func pick(random io.Reader, alphabet []byte, n int) ([]byte, error) {
	size := len(alphabet)
	limit := 256 - 256%size

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(random, buf); err != nil {
			return nil, err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%size])
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}

// PrefixedIssuer produces prefix + lowercase alphanumeric suffix keys
type PrefixedIssuer struct {
	prefix       string
	suffixLength int
	random       io.Reader
}

// NewPrefixedIssuer creates a prefixed issuer. Zero values fall back to defaults.
func NewPrefixedIssuer(prefix string, suffixLength int) (*PrefixedIssuer, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if suffixLength == 0 {
		suffixLength = defaultSuffixLength
	}
	if suffixLength < 0 || suffixLength > maxSuffixLength {
		return nil, fmt.Errorf("%w: key suffix length must be between 1 and %d",
			models.ErrInvalidConfiguration, maxSuffixLength)
	}

	return &PrefixedIssuer{prefix: prefix, suffixLength: suffixLength, random: rand.Reader}, nil
}

// Issue returns prefix followed by random alphanumeric characters
func (p *PrefixedIssuer) Issue() (models.VerificationKey, error) {
	suffix, err := pick(p.random, []byte(suffixAlphabet), p.suffixLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return models.VerificationKey(p.prefix + string(suffix)), nil
}
