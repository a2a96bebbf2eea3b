package keys

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"authenticity-survey/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)

func TestCodeIssuer_Format(t *testing.T) {
	issuer, err := NewCodeIssuer("")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key, err := issuer.Issue()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, string(key))
		assert.NotContains(t, string(key), "0")
		assert.NotContains(t, string(key), "O")
		assert.NotContains(t, string(key), "1")
		assert.NotContains(t, string(key), "I")
	}
}

func TestCodeIssuer_NoCollisions(t *testing.T) {
	issuer, err := NewCodeIssuer(DefaultAlphabet)
	require.NoError(t, err)

	seen := make(map[models.VerificationKey]bool, 10000)
	for i := 0; i < 10000; i++ {
		key, err := issuer.Issue()
		require.NoError(t, err)
		require.False(t, seen[key], "collision on %s after %d keys", key, i)
		seen[key] = true
	}
}

func TestCodeIssuer_RejectsBiasedBytes(t *testing.T) {
	// 33 symbols: 256 % 33 = 25, so bytes >= 231 must be skipped
	alphabet := DefaultAlphabet + "#"
	issuer, err := NewCodeIssuer(alphabet)
	require.NoError(t, err)

	stream := append(bytes.Repeat([]byte{255}, 12), bytes.Repeat([]byte{0}, 12)...)
	issuer.random = bytes.NewReader(stream)

	key, err := issuer.Issue()
	require.NoError(t, err)
	assert.Equal(t, models.VerificationKey("AAAA-AAAA-AAAA"), key)
}

func TestCodeIssuer_ReadFailure(t *testing.T) {
	issuer, err := NewCodeIssuer("")
	require.NoError(t, err)
	issuer.random = strings.NewReader("short")

	_, err = issuer.Issue()
	assert.Error(t, err)
}

func TestNewCodeIssuer_InvalidAlphabet(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
	}{
		{"too small", "ABCDEFGHJK"},
		{"confusable zero", "0BCDEFGHJKLMNPQRSTUVWXYZ23456789"},
		{"confusable one", "ABCDEFGHJKLMNPQRSTUVWXYZ21456789"},
		{"repeated symbol", "AACDEFGHJKLMNPQRSTUVWXYZ23456789"},
		{"separator", "-BCDEFGHJKLMNPQRSTUVWXYZ23456789"},
		{"non ascii", "ÄBCDEFGHJKLMNPQRSTUVWXYZ23456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodeIssuer(tt.alphabet)
			assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
		})
	}
}

func TestPrefixedIssuer(t *testing.T) {
	issuer, err := NewPrefixedIssuer("", 0)
	require.NoError(t, err)

	key, err := issuer.Issue()
	require.NoError(t, err)
	assert.Regexp(t, `^session_[0-9a-z]{9}$`, string(key))

	other, err := issuer.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = NewPrefixedIssuer("x_", 40)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

// Every suffix position must be free to take any symbol, even at full length.
func TestPrefixedIssuer_EveryPositionVaries(t *testing.T) {
	issuer, err := NewPrefixedIssuer("s_", maxSuffixLength)
	require.NoError(t, err)

	seen := make([]map[byte]bool, maxSuffixLength)
	for i := range seen {
		seen[i] = make(map[byte]bool)
	}
	for i := 0; i < 200; i++ {
		key, err := issuer.Issue()
		require.NoError(t, err)
		suffix := strings.TrimPrefix(string(key), "s_")
		require.Len(t, suffix, maxSuffixLength)
		for pos := 0; pos < len(suffix); pos++ {
			seen[pos][suffix[pos]] = true
		}
	}

	for pos, symbols := range seen {
		assert.Greater(t, len(symbols), 10, "suffix position %d looks fixed", pos)
	}
}

func TestPrefixedIssuer_UsesWholeAlphabet(t *testing.T) {
	issuer, err := NewPrefixedIssuer("p_", 4)
	require.NoError(t, err)
	// 252 and above are rejected for a 36-symbol alphabet
	issuer.random = bytes.NewReader([]byte{252, 255, 0, 35, 36, 71, 1, 2})

	key, err := issuer.Issue()
	require.NoError(t, err)
	assert.Equal(t, models.VerificationKey("p_a9a9"), key)
}

func TestNewIssuer(t *testing.T) {
	code, err := NewIssuer(Config{})
	require.NoError(t, err)
	assert.IsType(t, &CodeIssuer{}, code)

	prefixed, err := NewIssuer(Config{Strategy: StrategyPrefixed, Prefix: "rating_", SuffixLength: 12})
	require.NoError(t, err)
	key, err := prefixed.Issue()
	require.NoError(t, err)
	assert.Regexp(t, `^rating_[0-9a-z]{12}$`, string(key))

	_, err = NewIssuer(Config{Strategy: "sequential"})
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}
