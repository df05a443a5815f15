package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testSignal string

func (s testSignal) SignalName() string { return string(s) }

type recordingActivator struct {
	lock    sync.Mutex
	signals []Signal
	active  int
	maxSeen int
	doneCh  chan struct{}
	expect  int
}

func (a *recordingActivator) Activate(ctx context.Context, sig Signal) {
	a.lock.Lock()
	a.active++
	if a.active > a.maxSeen {
		a.maxSeen = a.active
	}
	a.lock.Unlock()

	time.Sleep(time.Millisecond)

	a.lock.Lock()
	a.active--
	if _, tick := sig.(TickSignal); !tick {
		a.signals = append(a.signals, sig)
		if len(a.signals) == a.expect {
			close(a.doneCh)
		}
	}
	a.lock.Unlock()
}

func TestLoopActivatesSignalsInOrder(t *testing.T) {
	act := &recordingActivator{doneCh: make(chan struct{}), expect: 20}
	loop := NewLoop(act)
	loop.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	var expected []Signal
	for i := 0; i < act.expect; i++ {
		sig := testSignal(string(rune('a' + i)))
		expected = append(expected, sig)
		loop.Post(sig)
	}

	select {
	case <-act.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("activations timeout")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	act.lock.Lock()
	defer act.lock.Unlock()
	require.Equal(t, expected, act.signals)
	require.Equal(t, 1, act.maxSeen)
}

func TestLoopPostBeforeRun(t *testing.T) {
	act := &recordingActivator{doneCh: make(chan struct{}), expect: 2}
	loop := NewLoop(act)
	loop.Post(testSignal("first"))
	loop.Post(testSignal("second"))
	require.Equal(t, 2, loop.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	select {
	case <-act.doneCh:
	case <-time.After(time.Second):
		t.Fatal("activations timeout")
	}
	require.Equal(t, 0, loop.Pending())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("one"))
	require.EqualError(t, errs.Aggregate(), "one")
	errs.Add(errors.New("two"))
	require.EqualError(t, errs.Aggregate(), "Multiple errors:\none\ntwo")
}

type closeRecorder struct {
	closed chan struct{}
}

func (c *closeRecorder) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &closeRecorder{closed: make(chan struct{})}
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCloser(ctx, c, func() error {
			<-c.closed
			return errors.New("closed")
		})
	}()
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	c = &closeRecorder{closed: make(chan struct{})}
	err := RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	<-c.closed
}

func TestRunnerWait(t *testing.T) {
	r := NewRunner()
	r.Go(
		NamedRun("ok", RunnableFunc(func(context.Context) error { return nil })),
		RunnableFunc(func(context.Context) error { return errors.New("failed") }),
		RunnableFunc(func(context.Context) error { return context.Canceled }),
	)
	require.EqualError(t, r.Wait(), "failed")
}
