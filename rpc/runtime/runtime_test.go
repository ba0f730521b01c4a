package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport/inproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingSink records every reported task error
type collectingSink struct {
	mu     sync.Mutex
	errors map[string]error
}

func (s *collectingSink) report(task string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[task] = err
}

func (s *collectingSink) get(task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[task]
}

func newTestRuntime() (*Runtime, *collectingSink) {
	sink := &collectingSink{errors: map[string]error{}}
	return New(WithRegistry(inproc.NewRegistry()), WithErrorSink(sink.report)), sink
}

func TestRunUntilComplete(t *testing.T) {
	rt, _ := newTestRuntime()
	defer rt.Close()

	err := rt.RunUntilComplete(func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)

	expected := errors.New("task failed")
	err = rt.RunUntilComplete(func(ctx context.Context) error {
		return expected
	})
	assert.ErrorIs(t, err, expected)
}

func TestRunReturnsResult(t *testing.T) {
	rt, _ := newTestRuntime()
	defer rt.Close()

	result, err := Run(rt, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRunUntilCompleteIsNotReentrant(t *testing.T) {
	rt, _ := newTestRuntime()
	defer rt.Close()

	var inner error
	err := rt.RunUntilComplete(func(ctx context.Context) error {
		inner = rt.RunUntilComplete(func(ctx context.Context) error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, common.ErrInvalidState)

	// The guard is released afterwards
	assert.NoError(t, rt.RunUntilComplete(func(ctx context.Context) error { return nil }))
}

func TestRunUntilCompleteCatchesPanic(t *testing.T) {
	rt, _ := newTestRuntime()
	defer rt.Close()

	err := rt.RunUntilComplete(func(ctx context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGoReportsErrors(t *testing.T) {
	rt, sink := newTestRuntime()

	expected := errors.New("handler failed")
	rt.Go("failing", func(ctx context.Context) error { return expected })
	rt.Go("panicking", func(ctx context.Context) error { panic("boom") })
	rt.Go("closed", func(ctx context.Context) error {
		return fmt.Errorf("%w: peer went away", common.ErrCommClosed)
	})
	rt.Go("canceled", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, rt.Close())

	assert.ErrorIs(t, sink.get("failing"), expected)
	require.Error(t, sink.get("panicking"))
	assert.Contains(t, sink.get("panicking").Error(), "boom")
	assert.NoError(t, sink.get("closed"))
	assert.NoError(t, sink.get("canceled"))
}

func TestCloseWaitsForTasks(t *testing.T) {
	rt, _ := newTestRuntime()

	var finished atomic.Int32
	for i := 0; i < 10; i++ {
		rt.Go(fmt.Sprintf("task %d", i), func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(5 * time.Millisecond)
			finished.Add(1)
			return nil
		})
	}

	require.NoError(t, rt.Close())
	assert.Equal(t, int32(10), finished.Load())
	assert.Error(t, rt.Context().Err())

	// Close is idempotent
	assert.NoError(t, rt.Close())
}

func TestCloseRunsClosers(t *testing.T) {
	rt, _ := newTestRuntime()

	var order []string
	rt.OnClose("first", func() error {
		order = append(order, "first")
		return nil
	})
	rt.OnClose("second", func() error {
		order = append(order, "second")
		return errors.New("second failed")
	})
	rt.OnClose("third", func() error {
		order = append(order, "third")
		return errors.New("third failed")
	})

	err := rt.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second failed")
	assert.Contains(t, err.Error(), "third failed")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	// Registered after close: runs immediately
	ran := false
	rt.OnClose("late", func() error {
		ran = true
		return nil
	})
	assert.True(t, ran)
}

func TestClosedRuntime(t *testing.T) {
	rt, _ := newTestRuntime()
	require.NoError(t, rt.Close())

	err := rt.RunUntilComplete(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, common.ErrInvalidState)

	// Tasks still run, with a canceled context
	done := make(chan error, 1)
	rt.Go("late", func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	})
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("late task did not run")
	}
}

func TestSetErrorSink(t *testing.T) {
	rt := New(WithRegistry(inproc.NewRegistry()))

	reported := make(chan string, 1)
	rt.SetErrorSink(func(task string, err error) { reported <- task })
	rt.Go("failing", func(ctx context.Context) error { return errors.New("failed") })
	require.NoError(t, rt.Close())

	assert.Equal(t, "failing", <-reported)
	assert.NotSame(t, inproc.DefaultRegistry(), rt.Registry())
	assert.Same(t, inproc.DefaultRegistry(), New().Registry())
}
