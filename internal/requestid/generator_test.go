package requestid

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/procurement-service/internal/domain"
)

type setProber struct {
	mu    sync.Mutex
	taken map[string]bool
}

func newSetProber(ids ...string) *setProber {
	p := &setProber{taken: map[string]bool{}}
	for _, id := range ids {
		p.taken[id] = true
	}
	return p
}

func (p *setProber) RequestIDExists(_ context.Context, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taken[id], nil
}

func (p *setProber) reserve(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.taken[id] {
		return ErrTaken
	}
	p.taken[id] = true
	return nil
}

func sequence(values ...int) func() int {
	i := 0
	return func() int {
		v := values[i%len(values)]
		i++
		return v
	}
}

func TestGenerate_DistinctWithPrefix(t *testing.T) {
	prober := newSetProber()
	gen := NewGenerator(prober)
	pattern := regexp.MustCompile(`^EN[1-9][0-9]{5}$`)

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id, err := gen.Generate(context.Background(), domain.TeamEngineering, prober.reserve)
		require.NoError(t, err)
		require.Regexp(t, pattern, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerate_RetriesProbeCollision(t *testing.T) {
	prober := newSetProber("SA111111")
	gen := NewGenerator(prober, WithDraw(sequence(111111, 222222)))

	id, err := gen.Generate(context.Background(), domain.TeamSales, prober.reserve)
	require.NoError(t, err)
	assert.Equal(t, "SA222222", id)
}

func TestGenerate_InsertConflictIsRetried(t *testing.T) {
	prober := newSetProber()
	calls := 0
	reserve := func(ctx context.Context, id string) error {
		calls++
		if id == "IN333333" {
			return errors.Join(errors.New("unique violation"), ErrTaken)
		}
		return prober.reserve(ctx, id)
	}
	gen := NewGenerator(prober, WithDraw(sequence(333333, 444444)))

	id, err := gen.Generate(context.Background(), domain.TeamInnovation, reserve)
	require.NoError(t, err)
	assert.Equal(t, "IN444444", id)
	assert.Equal(t, 2, calls)
}

func TestGenerate_ExhaustionIsFatal(t *testing.T) {
	prober := newSetProber("EN555555")
	reserved := false
	gen := NewGenerator(prober, WithMaxAttempts(5), WithDraw(sequence(555555)))

	_, err := gen.Generate(context.Background(), domain.TeamEngineering, func(context.Context, string) error {
		reserved = true
		return nil
	})
	require.ErrorIs(t, err, ErrExhausted)
	assert.False(t, reserved)
}

func TestGenerate_OtherReserveErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	gen := NewGenerator(newSetProber())
	_, err := gen.Generate(context.Background(), domain.TeamSales, func(context.Context, string) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestGenerate_UnknownTeam(t *testing.T) {
	_, err := NewGenerator(newSetProber()).Generate(context.Background(), domain.TeamName("MARKETING"), nil)
	require.Error(t, err)
}
