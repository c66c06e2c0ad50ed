package license

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
)

const (
	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyGroups   = 4
	groupSize   = 4

	DefaultKeyPrefix = "MOULIN"
)

var (
	keyPattern    = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]{4}){4}$`)
	prefixPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// KeyGenerator produces candidate license keys. Uniqueness is enforced by
// the store, not the generator.
type KeyGenerator interface {
	Generate() (string, error)
}

type RandomKeyGenerator struct {
	Prefix string
	// Reader defaults to crypto/rand.
	Reader io.Reader
}

// NewKeyGenerator rejects prefixes that would produce keys ValidKeyFormat
// refuses, an empty prefix falls back to DefaultKeyPrefix.
func NewKeyGenerator(prefix string) (*RandomKeyGenerator, error) {
	prefix = NormalizeKey(prefix)
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !ValidKeyPrefix(prefix) {
		return nil, fmt.Errorf("invalid key prefix %q: only letters and digits are allowed", prefix)
	}
	return &RandomKeyGenerator{Prefix: prefix}, nil
}

// Generate returns PREFIX-XXXX-XXXX-XXXX-XXXX with each X drawn uniformly from [A-Z0-9].
func (g *RandomKeyGenerator) Generate() (string, error) {
	reader := g.Reader
	if reader == nil {
		reader = rand.Reader
	}

	max := big.NewInt(int64(len(keyAlphabet)))
	var b strings.Builder
	b.Grow(len(g.Prefix) + keyGroups*(groupSize+1))
	b.WriteString(g.Prefix)

	for i := 0; i < keyGroups; i++ {
		b.WriteByte('-')
		for j := 0; j < groupSize; j++ {
			n, err := rand.Int(reader, max)
			if err != nil {
				return "", err
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
	}

	return b.String(), nil
}

// NormalizeKey trims and uppercases a caller supplied key.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidKeyPrefix reports whether a normalized prefix can head a key.
func ValidKeyPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}

// ValidKeyFormat reports whether a normalized key has the generated shape,
// whatever its prefix.
func ValidKeyFormat(key string) bool {
	return keyPattern.MatchString(key)
}
