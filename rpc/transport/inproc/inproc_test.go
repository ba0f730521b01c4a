package inproc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goSpawner runs tasks on plain goroutines and records their errors
type goSpawner struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	errors []error
}

func (s *goSpawner) Go(name string, task func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := task(context.Background()); err != nil && !common.IsCommClosed(err) {
			s.mu.Lock()
			s.errors = append(s.errors, err)
			s.mu.Unlock()
		}
	}()
}

func echo(ctx context.Context, c transport.Comm) error {
	for {
		msg, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if err := c.Write(ctx, msg); err != nil {
			return err
		}
	}
}

func startEcho(t *testing.T, r *Registry, name string) (transport.Listener, *goSpawner) {
	spawner := &goSpawner{}
	l, err := r.NewListener(name, echo, spawner, common.DefaultCommConfig())
	require.NoError(t, err)
	require.NoError(t, l.Start(context.Background()))
	return l, spawner
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	a, _ := startEcho(t, r, "b-listener")
	b, _ := startEcho(t, r, "a-listener")
	assert.Equal(t, []string{"a-listener", "b-listener"}, r.Names())

	require.NoError(t, a.Stop())
	assert.Equal(t, []string{"a-listener"}, r.Names())
	require.NoError(t, b.Stop())
	assert.Empty(t, r.Names())
}

func TestGeneratedName(t *testing.T) {
	r := NewRegistry()
	first, _ := startEcho(t, r, "")
	second, _ := startEcho(t, r, "")
	defer first.Stop()
	defer second.Stop()

	assert.Regexp(t, `^inproc://[0-9a-f-]{36}$`, first.ContactAddress())
	assert.NotEqual(t, first.ContactAddress(), second.ContactAddress())
	assert.Equal(t, first.ContactAddress(), first.ListenAddress())
}

func TestDuplicateName(t *testing.T) {
	r := NewRegistry()
	first, _ := startEcho(t, r, "taken")
	defer first.Stop()

	second, err := r.NewListener("taken", echo, &goSpawner{}, common.DefaultCommConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, second.Start(context.Background()), common.ErrBind)

	// Stopping the loser must not remove the winner
	require.NoError(t, second.Stop())
	assert.Equal(t, []string{"taken"}, r.Names())

	// Registries are independent
	other, _ := startEcho(t, NewRegistry(), "taken")
	defer other.Stop()
}

func TestConnectUnknownName(t *testing.T) {
	_, err := NewRegistry().Connect(context.Background(), "missing", common.DefaultCommConfig())
	assert.ErrorIs(t, err, common.ErrConnect)
	assert.True(t, common.IsConnectFailure(err, common.ConnectUnresolvable))
}

func TestConnectCanceled(t *testing.T) {
	r := NewRegistry()
	l, _ := startEcho(t, r, "svc")
	defer l.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Connect(ctx, "svc", common.DefaultCommConfig())
	assert.ErrorIs(t, err, common.ErrConnect)
}

func TestEchoAndOrdering(t *testing.T) {
	r := NewRegistry()
	l, spawner := startEcho(t, r, "echo")
	ctx := context.Background()

	c, err := r.Connect(ctx, "echo", common.DefaultCommConfig())
	require.NoError(t, err)
	assert.Equal(t, "inproc://echo", c.PeerAddress())
	assert.Contains(t, c.LocalAddress(), "inproc://echo/")

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Write(ctx, common.Int(int64(i))))
	}
	for i := 0; i < 1000; i++ {
		msg, err := c.Read(ctx)
		require.NoError(t, err)
		n, _ := msg.AsInt()
		require.Equal(t, int64(i), n)
	}

	require.NoError(t, c.Close())
	require.NoError(t, l.Stop())
	spawner.wg.Wait()
	assert.Empty(t, spawner.errors)
}

func TestBuffersAreNotCopied(t *testing.T) {
	client, server := newPair("inproc://c", "inproc://s", mustPipeline(t), common.DefaultCommConfig(),
		mustPipeline(t), common.DefaultCommConfig())
	defer client.Close()
	defer server.Close()

	data := make([]byte, 1<<20)
	ctx := context.Background()
	require.NoError(t, client.Write(ctx, common.Bytes(data)))

	msg, err := server.Read(ctx)
	require.NoError(t, err)
	received, ok := msg.AsBytes()
	require.True(t, ok)
	require.Len(t, received, len(data))
	assert.Same(t, &data[0], &received[0])
}

func TestCloseSemantics(t *testing.T) {
	ctx := context.Background()

	t.Run("local close unblocks read", func(t *testing.T) {
		client, server := newPair("inproc://c", "inproc://s", mustPipeline(t), common.DefaultCommConfig(),
			mustPipeline(t), common.DefaultCommConfig())
		defer server.Close()

		result := make(chan error, 1)
		go func() {
			_, err := client.Read(ctx)
			result <- err
		}()
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, client.Close())

		select {
		case err := <-result:
			assert.ErrorIs(t, err, common.ErrCommClosed)
		case <-time.After(5 * time.Second):
			t.Fatal("read did not return")
		}
		assert.True(t, client.Closed())
		assert.ErrorIs(t, client.Write(ctx, common.Nil()), common.ErrCommClosed)
	})

	t.Run("peer close delivers pending messages first", func(t *testing.T) {
		client, server := newPair("inproc://c", "inproc://s", mustPipeline(t), common.DefaultCommConfig(),
			mustPipeline(t), common.DefaultCommConfig())
		defer client.Close()

		require.NoError(t, server.Write(ctx, common.String("last words")))
		require.NoError(t, server.Close())

		msg, err := client.Read(ctx)
		require.NoError(t, err)
		s, _ := msg.AsString()
		assert.Equal(t, "last words", s)

		_, err = client.Read(ctx)
		assert.ErrorIs(t, err, common.ErrCommClosed)
		assert.True(t, client.Closed())
		assert.ErrorIs(t, client.Write(ctx, common.Nil()), common.ErrCommClosed)
	})

	t.Run("abort drops pending messages", func(t *testing.T) {
		client, server := newPair("inproc://c", "inproc://s", mustPipeline(t), common.DefaultCommConfig(),
			mustPipeline(t), common.DefaultCommConfig())
		defer client.Close()

		require.NoError(t, server.Write(ctx, common.String("dropped")))
		server.Abort()

		_, err := client.Read(ctx)
		assert.ErrorIs(t, err, common.ErrCommClosed)
	})

	t.Run("read respects context", func(t *testing.T) {
		client, server := newPair("inproc://c", "inproc://s", mustPipeline(t), common.DefaultCommConfig(),
			mustPipeline(t), common.DefaultCommConfig())
		defer client.Close()
		defer server.Close()

		timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := client.Read(timeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, client.Closed())
	})
}

func TestStoppedListenerRefuses(t *testing.T) {
	r := NewRegistry()
	l, _ := startEcho(t, r, "stopping")

	// A lookup that raced with Stop still hits the stopped listener
	found, ok := r.listeners.Load("stopping")
	require.True(t, ok)
	require.NoError(t, l.Stop())

	_, err := found.accept(mustPipeline(t), common.DefaultCommConfig())
	assert.True(t, common.IsConnectFailure(err, common.ConnectRefused))
	assert.ErrorIs(t, l.Start(context.Background()), common.ErrInvalidState)
}

func mustPipeline(t *testing.T) *codec.Pipeline {
	p, err := newPipeline(common.DefaultCommConfig())
	require.NoError(t, err)
	return p
}
