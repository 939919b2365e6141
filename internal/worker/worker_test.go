package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/procurement-service/internal/mailer"
	"github.com/procurekit/procurement-service/internal/persistence"
)

type fakeTransport struct {
	mu    sync.Mutex
	fails int
	sent  []mailer.Message
}

func (f *fakeTransport) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestEmailWorkerSends(t *testing.T) {
	queue := mailer.NewChannelQueue(4)
	transport := &fakeTransport{}
	w := NewEmailWorker(queue, transport, nil, nil, EmailWorkerConfig{})

	require.NoError(t, queue.Enqueue(context.Background(), mailer.Message{ID: "m1", To: []string{"a@example.com"}}))
	require.NoError(t, w.ProcessOne(context.Background()))

	require.Len(t, transport.sent, 1)
	assert.Equal(t, 1, transport.sent[0].Attempts)
	assert.Equal(t, 0, queue.Len())
}

func TestEmailWorkerRequeuesThenDrops(t *testing.T) {
	queue := mailer.NewChannelQueue(4)
	transport := &fakeTransport{fails: 10}
	w := NewEmailWorker(queue, transport, nil, nil, EmailWorkerConfig{MaxAttempts: 2})
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, mailer.Message{ID: "m1", To: []string{"a@example.com"}}))

	require.NoError(t, w.ProcessOne(ctx))
	assert.Equal(t, 1, queue.Len(), "first failure is re-queued")

	require.NoError(t, w.ProcessOne(ctx))
	assert.Equal(t, 0, queue.Len(), "dropped after max attempts")
	assert.Empty(t, transport.sent)
}

func TestEmailWorkerRunStopsOnCancel(t *testing.T) {
	queue := mailer.NewChannelQueue(4)
	transport := &fakeTransport{}
	w := NewEmailWorker(queue, transport, nil, nil, EmailWorkerConfig{Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, queue.Enqueue(ctx, mailer.Message{ID: "m1", To: []string{"a@example.com"}}))
	require.Eventually(t, func() bool {
		transport.mu.Lock()
		defer transport.mu.Unlock()
		return len(transport.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type countingReaper struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReaper) AutoCloseExpired(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return 2, nil
}

func TestSchedulerRunOnceHonoursLock(t *testing.T) {
	ctx := context.Background()
	reaper := &countingReaper{}
	lock := persistence.NewLocalLock()
	s := NewAutoCloseScheduler(reaper, lock, time.Hour, nil)

	res, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Closed: 2}, res)

	held, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, held, "RunOnce must release the lock")

	res, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, reaper.calls)
}

func TestSchedulerTicks(t *testing.T) {
	reaper := &countingReaper{}
	s := NewAutoCloseScheduler(reaper, persistence.NewLocalLock(), 10*time.Millisecond, nil)

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		reaper.mu.Lock()
		defer reaper.mu.Unlock()
		return reaper.calls >= 2
	}, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}
