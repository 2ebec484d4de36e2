package notification

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedNotifier blocks every delivery until release is closed.
type gatedNotifier struct {
	release chan struct{}
	err     error

	mu       sync.Mutex
	sent     []string
	ctxErrs  []error
	deadline []bool
}

func newGatedNotifier() *gatedNotifier {
	return &gatedNotifier{release: make(chan struct{})}
}

func (n *gatedNotifier) Notify(ctx context.Context, to domain.Contact, message string) error {
	<-n.release
	_, hasDeadline := ctx.Deadline()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to.UserID+": "+message)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	n.deadline = append(n.deadline, hasDeadline)
	return n.err
}

func (n *gatedNotifier) delivered() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func TestDispatcherReturnsBeforeDelivery(t *testing.T) {
	next := newGatedNotifier()
	d := NewDispatcher(next, 2, 8, time.Second, logger.Nop())

	done := make(chan error, 1)
	go func() { done <- d.Notify(context.Background(), alice, "Ride accepted") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Notify waited for the transport")
	}
	assert.Empty(t, next.delivered())

	close(next.release)
	d.Close()
	assert.Equal(t, []string{"r1: Ride accepted"}, next.delivered())
}

func TestDispatcherDetachesFromCallerContext(t *testing.T) {
	next := newGatedNotifier()
	d := NewDispatcher(next, 1, 1, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Notify(ctx, alice, "Driver assigned"))
	cancel()

	close(next.release)
	d.Close()

	next.mu.Lock()
	defer next.mu.Unlock()
	require.Len(t, next.ctxErrs, 1)
	assert.NoError(t, next.ctxErrs[0], "delivery must outlive the request that queued it")
	assert.True(t, next.deadline[0], "delivery must be bounded")
}

func TestDispatcherRejectsWhenFullOrClosed(t *testing.T) {
	next := newGatedNotifier()
	d := NewDispatcher(next, 1, 1, time.Second, logger.Nop())

	// one job held by the worker, one in the queue; keep going until full
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = d.Notify(context.Background(), alice, "x")
	}
	assert.ErrorIs(t, err, ErrQueueFull)

	close(next.release)
	d.Close()
	assert.ErrorIs(t, d.Notify(context.Background(), alice, "late"), ErrDispatcherClosed)
	d.Close()
}

func TestDispatcherLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	next := newGatedNotifier()
	next.err = errors.New("smtp down")
	close(next.release)

	d := NewDispatcher(next, 1, 4, time.Second, logger.NewLoggerWithWriter("test", &buf, logger.LevelInfo))
	require.NoError(t, d.Notify(context.Background(), alice, "Ride started"))
	d.Close()

	assert.Contains(t, buf.String(), "notify_failed")
	assert.Contains(t, buf.String(), "smtp down")
}
