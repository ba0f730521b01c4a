package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/codec"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/transport"
)

// Connect establishes a Comm to location using connector. The attempt including the
// handshake is bounded by config.ConnectTimeout. Failures are returned as
// *common.ConnectError.
func Connect(ctx context.Context, connector IClientConnector, location string, config common.CommConfig) (transport.Comm, error) {
	address := connector.GetName() + "://" + location
	metrics := common.MetricsFor(connector.GetName())

	pipeline, err := codec.NewPipeline(config)
	if err != nil {
		return nil, err
	}

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	conn, err := connector.Connect(ctx, location, config)
	if err != nil {
		metrics.ConnectFailures.Inc()
		// Case context deadline: report the timeout even if the dialer wrapped it differently
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &common.ConnectError{Reason: common.ConnectTimeout, Address: address, Err: err}
		}
		return nil, common.NewConnectError(address, err)
	}

	c := newStreamComm(connector.GetName(), conn, pipeline, config)
	if err := c.handshake(ctx, config.HandshakeTimeout); err != nil {
		c.Close()
		metrics.ConnectFailures.Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &common.ConnectError{Reason: common.ConnectTimeout, Address: address, Err: err}
		}
		return nil, &common.ConnectError{Reason: common.ConnectRefused, Address: address, Err: fmt.Errorf("handshake: %w", err)}
	}

	Logger.Debugf("Connected to %s using %s transport", address, connector.GetName())
	return c, nil
}
