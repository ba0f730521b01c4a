package serve

import (
	"context"
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/dComm/cmd/util"
	"github.com/ValentinKolb/dComm/rpc/comm"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/ValentinKolb/dComm/rpc/runtime"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("cli")

var (
	serveCmdConfig = &common.ServeConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an echo server",
		Long:    `Start a server that writes every message it reads back to the sender. The configuration can be set via command line flags or environment variables. The format of the environment variables is DCOMM_<flag> (e.g. DCOMM_COMPRESSION=zstd)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupCommFlags(ServeCmd)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "tcp://0.0.0.0:8786", cmdUtil.WrapString("The address on which the server will listen (e.g. tcp://0.0.0.0:8786, unix:///tmp/dcomm.sock, ws://localhost:8080)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional host:port on which transport counters are served in Prometheus format under /metrics"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Comm = cmdUtil.GetCommConfig()

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	return nil
}

// run starts the echo server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	Logger.Infof("Starting dComm echo server with configuration:\n%s", serveCmdConfig.String())

	rt := runtime.New()
	defer rt.Close()

	listener, err := comm.Listen(rt, serveCmdConfig.Endpoint, echo, comm.WithConfig(serveCmdConfig.Comm))
	if err != nil {
		return err
	}
	if err := listener.Start(rt.Context()); err != nil {
		return err
	}
	fmt.Printf("listening on %s (contact %s)\n", listener.ListenAddress(), listener.ContactAddress())

	if serveCmdConfig.MetricsEndpoint != "" {
		metricsServer := startMetricsServer(serveCmdConfig.MetricsEndpoint)
		rt.OnClose("metrics server", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(ctx)
		})
	}

	// Wait for a termination signal
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	Logger.Infof("Received %s, shutting down", sig)

	return rt.Close()
}

// echo writes every message back until the peer closes the comm
func echo(ctx context.Context, c transport.Comm) error {
	count := 0
	defer func() {
		Logger.Debugf("Comm with %s ended after %d messages", c.PeerAddress(), count)
	}()

	for {
		msg, err := c.Read(ctx)
		if err != nil {
			// Undecodable messages are skipped as long as the stream itself is intact
			if !c.Closed() && (errors.Is(err, common.ErrSerialization) || errors.Is(err, common.ErrFrameCorruption)) {
				Logger.Warningf("Dropping message from %s: %v", c.PeerAddress(), err)
				continue
			}
			return err
		}
		if err := c.Write(ctx, msg); err != nil {
			return err
		}
		count++
	}
}

// startMetricsServer serves the transport counters under /metrics
func startMetricsServer(endpoint string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteMetrics(w)
	})
	server := &http.Server{Addr: endpoint, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics server failed: %v", err)
		}
	}()
	return server
}
