package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenhatah/hotspot_pay/internal/gateway"
	"github.com/greenhatah/hotspot_pay/internal/logging"
	"github.com/greenhatah/hotspot_pay/internal/payment"
)

type stubTimer struct{ stopped bool }

func (t *stubTimer) Stop() bool {
	t.stopped = true
	return true
}

type stubScheduler struct{ timers []*stubTimer }

func (s *stubScheduler) AfterFunc(time.Duration, func()) payment.Timer {
	t := &stubTimer{}
	s.timers = append(s.timers, t)
	return t
}

func newTestRegistry(t *testing.T, gw gateway.Client, sched payment.Scheduler) (*Registry, *time.Time) {
	t.Helper()
	factory := func(id string, target payment.Target) (*payment.Orchestrator, error) {
		return payment.NewOrchestrator(payment.Options{
			ID:        id,
			Target:    target,
			Gateway:   gw,
			Scheduler: sched,
			Logger:    logging.Discard(),
		})
	}
	reg := NewRegistry(factory, 30*time.Minute, logging.Discard())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	return reg, &now
}

var target = payment.Target{Name: "R1", Location: "Cocody"}

func TestCreateAndGet(t *testing.T) {
	reg, _ := newTestRegistry(t, gateway.NewSandbox(0), &stubScheduler{})

	s, err := reg.Create("client-a", target)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, target, s.Target)

	got, err := reg.Get(s.ID, "client-a")
	require.NoError(t, err)
	assert.Same(t, s.Orchestrator, got.Orchestrator)
	assert.Equal(t, payment.StateIdle, got.Orchestrator.Snapshot().State)
	assert.Equal(t, s.ID, got.Orchestrator.Snapshot().SessionID)
}

func TestGetRejectsForeignClient(t *testing.T) {
	reg, _ := newTestRegistry(t, gateway.NewSandbox(0), &stubScheduler{})

	s, err := reg.Create("client-a", target)
	require.NoError(t, err)

	_, err = reg.Get(s.ID, "client-b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.Discard(s.ID, "client-b"), ErrNotFound)

	_, err = reg.Get("missing", "client-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiscardClosesOrchestrator(t *testing.T) {
	sched := &stubScheduler{}
	reg, _ := newTestRegistry(t, gateway.NewSandbox(5), sched)
	ctx := context.Background()

	s, err := reg.Create("client-a", target)
	require.NoError(t, err)
	_, err = s.Orchestrator.Pay(ctx, "0706050403", 200)
	require.NoError(t, err)
	_, err = s.Orchestrator.Confirm(ctx)
	require.NoError(t, err)
	require.Len(t, sched.timers, 1)

	require.NoError(t, reg.Discard(s.ID, "client-a"))

	assert.True(t, sched.timers[0].stopped)
	assert.Equal(t, 0, reg.Len())
	_, err = s.Orchestrator.Pay(ctx, "0706050403", 200)
	assert.ErrorIs(t, err, payment.ErrClosed)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	sched := &stubScheduler{}
	reg, now := newTestRegistry(t, gateway.NewSandbox(5), sched)
	ctx := context.Background()

	idle, err := reg.Create("client-a", target)
	require.NoError(t, err)
	active, err := reg.Create("client-b", target)
	require.NoError(t, err)
	confirming, err := reg.Create("client-c", target)
	require.NoError(t, err)
	_, err = confirming.Orchestrator.Pay(ctx, "0706050403", 200)
	require.NoError(t, err)
	_, err = confirming.Orchestrator.Confirm(ctx)
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	_, err = reg.Get(active.ID, "client-b")
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())

	_, err = reg.Get(idle.ID, "client-a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(active.ID, "client-b")
	assert.NoError(t, err)
	_, err = reg.Get(confirming.ID, "client-c")
	assert.NoError(t, err, "a running confirmation is never evicted")
}

func TestCloseAll(t *testing.T) {
	reg, _ := newTestRegistry(t, gateway.NewSandbox(0), &stubScheduler{})

	s, err := reg.Create("client-a", target)
	require.NoError(t, err)

	reg.CloseAll()

	assert.Equal(t, 0, reg.Len())
	_, err = s.Orchestrator.Confirm(context.Background())
	assert.ErrorIs(t, err, payment.ErrClosed)
}

func TestCreateSupersedesClientSession(t *testing.T) {
	sched := &stubScheduler{}
	reg, _ := newTestRegistry(t, gateway.NewSandbox(5), sched)
	ctx := context.Background()

	first, err := reg.Create("client-a", target)
	require.NoError(t, err)
	_, err = first.Orchestrator.Pay(ctx, "0706050403", 200)
	require.NoError(t, err)
	snap, err := first.Orchestrator.Confirm(ctx)
	require.NoError(t, err)
	require.Equal(t, payment.StateConfirming, snap.State)
	require.Len(t, sched.timers, 1)

	other, err := reg.Create("client-b", target)
	require.NoError(t, err)

	second, err := reg.Create("client-a", target)
	require.NoError(t, err)

	assert.True(t, sched.timers[0].stopped, "the pending re-check of the old session is cancelled")
	assert.Equal(t, 2, reg.Len())
	_, err = reg.Get(first.ID, "client-a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = first.Orchestrator.Confirm(ctx)
	assert.ErrorIs(t, err, payment.ErrClosed)

	_, err = reg.Get(second.ID, "client-a")
	assert.NoError(t, err)
	_, err = reg.Get(other.ID, "client-b")
	assert.NoError(t, err, "other clients keep their sessions")

	require.NoError(t, reg.Discard(second.ID, "client-a"))
	third, err := reg.Create("client-a", target)
	require.NoError(t, err)
	_, err = reg.Get(third.ID, "client-a")
	assert.NoError(t, err)
}
