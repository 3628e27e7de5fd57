// Package refcode generates referral codes of the form AB-123.
package refcode

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m3rciful/refbot/internal/domain"
)

// DefaultMaxAttempts bounds the uniqueness probes of one Generate call.
const DefaultMaxAttempts = 50

// Checker reports whether a code is already assigned.
type Checker interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator derives codes from name initials and re-rolls the digits on collision.
type Generator struct {
	checker     Checker
	maxAttempts int
	intn        func(n int) int
}

// Option customises a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRand replaces the random source; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) {
		if intn != nil {
			g.intn = intn
		}
	}
}

// New returns a Generator probing checker for uniqueness.
func New(checker Checker, opts ...Option) *Generator {
	g := &Generator{checker: checker, maxAttempts: DefaultMaxAttempts, intn: rand.Intn}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a code not yet known to the checker.
func (g *Generator) Generate(ctx context.Context, firstName, lastName string) (string, error) {
	prefix := string([]rune{g.initial(firstName), g.initial(lastName)})
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := fmt.Sprintf("%s-%03d", prefix, g.intn(1000))
		exists, err := g.checker.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("refcode: uniqueness probe: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("refcode: %d attempts for prefix %s: %w", g.maxAttempts, prefix, domain.ErrCodeExhausted)
}

// initial returns the first Latin letter of name in upper case, or a random one.
func (g *Generator) initial(name string) rune {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r < unicode.MaxASCII && unicode.IsLetter(r) {
		return unicode.ToUpper(r)
	}
	return rune('A' + g.intn(26))
}
