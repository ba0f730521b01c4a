package perf

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/comm"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/runtime"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/ValentinKolb/dComm/rpc/transport/inproc"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sourcegraph/conc/pool"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// listenAddresses are the listen URIs used per transport. Ports and names are picked on Start.
var listenAddresses = map[string]func() string{
	"tcp":    func() string { return "tcp://127.0.0.1" },
	"inproc": func() string { return "inproc://" },
	"ws":     func() string { return "ws://127.0.0.1" },
	"unix": func() string {
		return "unix://" + filepath.Join(os.TempDir(), fmt.Sprintf("dcomm-perf-%d-%d.sock", os.Getpid(), time.Now().UnixNano()))
	},
}

// benchmark is one named entry of the suite
type benchmark struct {
	name string
	fn   func(b *testing.B)
}

// suite holds the shared runtime, the messages and the latency timers of a perf run
type suite struct {
	rt     *runtime.Runtime
	config common.CommConfig
	timers gometrics.Registry
	small  common.Message
	large  common.Message
	random common.Message
	preSer common.Message
}

func newSuite(config common.CommConfig) *suite {
	s := &suite{
		rt:     runtime.New(runtime.WithRegistry(inproc.NewRegistry())),
		config: config,
		timers: gometrics.NewRegistry(),
	}
	s.rt.SetErrorSink(func(task string, err error) {
		Logger.Errorf("(%s) - %v", task, err)
	})

	size := perfLargeSizeKB * 1024

	// Random data repeated ten times: too far apart for the compressors to find the repetition
	chunk := make([]byte, size/10)
	_, _ = rand.Read(chunk)
	uncompressible := bytes.Repeat(chunk, 10)

	s.small = message(common.Bytes([]byte("foo")))
	s.large = message(common.Bytes(bytes.Repeat([]byte("z"), size)))
	s.random = message(common.Bytes(uncompressible))

	ser, err := codec.ToSerialized(common.Bytes(uncompressible))
	if err != nil {
		panic(err)
	}
	s.preSer = message(common.Wrap(ser))
	return s
}

// message builds {"op": "update", "x": [123, 456], "data": data}
func message(data common.Value) common.Message {
	return common.Map(map[string]common.Value{
		"op":   common.String("update"),
		"x":    common.List(common.Int(123), common.Int(456)),
		"data": data,
	})
}

func (s *suite) close() {
	if err := s.rt.Close(); err != nil {
		Logger.Warningf("Failed to close runtime: %v", err)
	}
}

// timer returns the latency timer of a benchmark
func (s *suite) timer(name string) gometrics.Timer {
	return gometrics.GetOrRegisterTimer(name, s.timers)
}

// benchmarks returns the suite in execution order
func (s *suite) benchmarks(transports []string) []benchmark {
	result := []benchmark{
		{"loop-start-stop", s.loopStartStop},
		{"loop-run-sync", s.loopRunSync},
	}
	for _, t := range transports {
		t := t
		result = append(result, benchmark{t + "-connect", func(b *testing.B) { s.connect(b, t) }})
	}
	for _, t := range transports {
		t := t
		result = append(result,
			benchmark{t + "-small-transfers", func(b *testing.B) { s.transfer(b, t+"-small-transfers", t, s.small, true) }},
			benchmark{t + "-large-transfers", func(b *testing.B) { s.transfer(b, t+"-large-transfers", t, s.large, true) }},
			benchmark{t + "-large-transfers-uncompressible", func(b *testing.B) {
				s.transfer(b, t+"-large-transfers-uncompressible", t, s.random, true)
			}},
			benchmark{t + "-large-transfers-no-deserialize", func(b *testing.B) {
				s.transfer(b, t+"-large-transfers-no-deserialize", t, s.preSer, false)
			}},
		)
	}
	return result
}

// --------------------------------------------------------------------------
// Runtime overhead
// --------------------------------------------------------------------------

// loopStartStop measures creating and closing a runtime
func (s *suite) loopStartStop(b *testing.B) {
	timer := s.timer("loop-start-stop")
	registry := inproc.NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()
		rt := runtime.New(runtime.WithRegistry(registry))
		_ = rt.Close()
		timer.UpdateSince(start)
	}
}

// loopRunSync measures running an empty task to completion
func (s *suite) loopRunSync(b *testing.B) {
	timer := s.timer("loop-run-sync")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()
		_ = s.rt.RunUntilComplete(func(ctx context.Context) error { return nil })
		timer.UpdateSince(start)
	}
}

// --------------------------------------------------------------------------
// Connect
// --------------------------------------------------------------------------

// connect measures starting a listener and running perfConnects concurrent connect/close cycles
func (s *suite) connect(b *testing.B, transportName string) {
	timer := s.timer(transportName + "-connect")
	closeComm := func(_ context.Context, c transport.Comm) error { return c.Close() }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()
		err := s.rt.RunUntilComplete(func(ctx context.Context) error {
			listener, err := comm.Listen(s.rt, listenAddresses[transportName](), closeComm, comm.WithConfig(s.config))
			if err != nil {
				return err
			}
			if err := listener.Start(ctx); err != nil {
				return err
			}
			defer listener.Stop()

			p := pool.New().WithErrors().WithContext(ctx)
			for j := 0; j < perfConnects; j++ {
				p.Go(func(ctx context.Context) error {
					c, err := comm.Connect(ctx, s.rt, listener.ContactAddress(), comm.WithConfig(s.config))
					if err != nil {
						return err
					}
					return c.Close()
				})
			}
			return p.Wait()
		})
		timer.UpdateSince(start)
		if err != nil {
			Logger.Errorf("(%s-connect) - %v", transportName, err)
			b.FailNow()
		}
	}
}

// --------------------------------------------------------------------------
// Transfer
// --------------------------------------------------------------------------

// transfer measures sending msg perfTransfers times to an echo handler and reading all replies
func (s *suite) transfer(b *testing.B, name, transportName string, msg common.Message, deserialize bool) {
	timer := s.timer(name)
	config := s.config
	config.Deserialize = deserialize

	// The handler echoes exactly perfTransfers messages, then closes
	handler := func(ctx context.Context, c transport.Comm) error {
		for i := 0; i < perfTransfers; i++ {
			obj, err := c.Read(ctx)
			if err != nil {
				return err
			}
			if err := c.Write(ctx, obj); err != nil {
				return err
			}
		}
		return c.Close()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := time.Now()
		err := s.rt.RunUntilComplete(func(ctx context.Context) error {
			listener, err := comm.Listen(s.rt, listenAddresses[transportName](), handler, comm.WithConfig(config))
			if err != nil {
				return err
			}
			if err := listener.Start(ctx); err != nil {
				return err
			}
			defer listener.Stop()

			c, err := comm.Connect(ctx, s.rt, listener.ContactAddress(), comm.WithConfig(config))
			if err != nil {
				return err
			}
			defer c.Close()

			// Write in a separate task, replies are only bounded by the read-ahead
			written := make(chan error, 1)
			s.rt.Go("writer "+name, func(ctx context.Context) error {
				for j := 0; j < perfTransfers; j++ {
					if err := c.Write(ctx, msg); err != nil {
						written <- err
						return err
					}
				}
				written <- nil
				return nil
			})

			// Read back to ensure that the round-trip is complete
			for j := 0; j < perfTransfers; j++ {
				if _, err := c.Read(ctx); err != nil {
					return err
				}
			}
			return <-written
		})
		timer.UpdateSince(start)
		if err != nil {
			Logger.Errorf("(%s) - %v", name, err)
			b.FailNow()
		}
	}
}
