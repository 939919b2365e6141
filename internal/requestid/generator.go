// Package requestid issues short, team-prefixed ticket identifiers such as
// EN482913.
package requestid

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/procurekit/procurement-service/internal/domain"
)

// DefaultMaxAttempts bounds probe collisions and insert conflicts together.
const DefaultMaxAttempts = 50

const (
	minSuffix = 100000
	maxSuffix = 999999
)

var (
	// ErrExhausted means no free id was found within the attempt bound.
	ErrExhausted = errors.New("requestid: could not generate unique request id")
	// ErrTaken is returned by a Reserve func when the insert hit the unique constraint.
	ErrTaken = errors.New("requestid: request id already taken")
)

// Prober reports whether a request id is already in use.
type Prober interface {
	RequestIDExists(ctx context.Context, requestID string) (bool, error)
}

// Reserve persists the ticket under requestID. It must return ErrTaken (or an
// error wrapping it) when storage rejects the id as a duplicate.
type Reserve func(ctx context.Context, requestID string) error

// Generator draws random ids and retries on collision.
type Generator struct {
	prober      Prober
	maxAttempts int
	draw        func() int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithDraw replaces the random suffix source; used by tests.
func WithDraw(draw func() int) Option {
	return func(g *Generator) {
		if draw != nil {
			g.draw = draw
		}
	}
}

// NewGenerator builds a generator backed by prober.
func NewGenerator(prober Prober, opts ...Option) *Generator {
	g := &Generator{
		prober:      prober,
		maxAttempts: DefaultMaxAttempts,
		draw:        func() int { return minSuffix + rand.Intn(maxSuffix-minSuffix+1) },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Format composes a request id from a team prefix and numeric suffix.
func Format(team domain.TeamName, suffix int) (string, error) {
	prefix, ok := team.RequestIDPrefix()
	if !ok {
		return "", fmt.Errorf("requestid: unknown team %q", team)
	}
	return fmt.Sprintf("%s%06d", prefix, suffix), nil
}

// Generate finds a free id for team and hands it to reserve. A probe hit or an
// ErrTaken from reserve both consume one attempt; any other error aborts.
func (g *Generator) Generate(ctx context.Context, team domain.TeamName, reserve Reserve) (string, error) {
	if _, ok := team.RequestIDPrefix(); !ok {
		return "", fmt.Errorf("requestid: unknown team %q", team)
	}
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := Format(team, g.draw())
		if err != nil {
			return "", err
		}
		exists, err := g.prober.RequestIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe request id: %w", err)
		}
		if exists {
			continue
		}
		if reserve == nil {
			return candidate, nil
		}
		if err := reserve(ctx, candidate); err != nil {
			if errors.Is(err, ErrTaken) {
				continue
			}
			return "", err
		}
		return candidate, nil
	}
	return "", ErrExhausted
}
