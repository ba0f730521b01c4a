package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/runtime"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"time"
)

var (
	pingCount int
	pingSize  int

	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Measure round trips to an echo server",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
	sendCmd = &cobra.Command{
		Use:   "send [json]",
		Short: "Sends a JSON value and prints the echoed message",
		Args:  cobra.ExactArgs(1),
		RunE:  runSend,
	}
)

func init() {
	pingCmd.Flags().IntVar(&pingCount, "count", 10, "Number of round trips")
	pingCmd.Flags().IntVar(&pingSize, "size", 0, "Size of the byte payload of every ping (in bytes)")
}

func runPing(_ *cobra.Command, _ []string) error {
	return rt.RunUntilComplete(func(ctx context.Context) error {
		c, err := connect(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Printf("PING %s (%d bytes payload)\n", c.PeerAddress(), pingSize)

		payload := make([]byte, pingSize)
		timer := gometrics.NewTimer()
		for i := 0; i < pingCount; i++ {
			msg := common.Map(map[string]common.Value{
				"op":   common.String("ping"),
				"seq":  common.Int(int64(i)),
				"data": common.Bytes(payload),
			})

			start := time.Now()
			if err := c.Write(ctx, msg); err != nil {
				return err
			}
			reply, err := c.Read(ctx)
			if err != nil {
				return err
			}
			rtt := time.Since(start)
			timer.Update(rtt)

			seq, _ := reply.Get("seq")
			n, _ := seq.AsInt()
			fmt.Printf("reply from %s: seq=%d time=%s\n", c.PeerAddress(), n, rtt)
		}

		snapshot := timer.Snapshot()
		fmt.Printf("\n%d round trips, min/avg/max = %s/%s/%s\n", snapshot.Count(),
			time.Duration(snapshot.Min()), time.Duration(snapshot.Mean()), time.Duration(snapshot.Max()))
		return nil
	})
}

func runSend(_ *cobra.Command, args []string) error {
	var raw any
	if err := json.Unmarshal([]byte(args[0]), &raw); err != nil {
		return fmt.Errorf("argument is not valid JSON: %w", err)
	}
	msg, err := common.FromGo(raw)
	if err != nil {
		return err
	}

	reply, err := runtime.Run(rt, func(ctx context.Context) (common.Message, error) {
		c, err := connect(ctx)
		if err != nil {
			return common.Nil(), err
		}
		defer c.Close()

		if err := c.Write(ctx, msg); err != nil {
			return common.Nil(), err
		}
		return c.Read(ctx)
	})
	if err != nil {
		return err
	}
	fmt.Println(reply.String())
	return nil
}
