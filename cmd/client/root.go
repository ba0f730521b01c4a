package client

import (
	"context"
	"github.com/ValentinKolb/dComm/cmd/util"
	"github.com/ValentinKolb/dComm/rpc/comm"
	"github.com/ValentinKolb/dComm/rpc/runtime"
	"github.com/ValentinKolb/dComm/rpc/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rt *runtime.Runtime

	// ClientCommands represents the client command group
	ClientCommands = &cobra.Command{
		Use:                "client",
		Short:              "Talk to a running echo server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common comm flags to the client command
	util.SetupCommFlags(ClientCommands)

	ClientCommands.PersistentFlags().String("endpoint", "tcp://localhost:8786", util.WrapString("The contact address of the echo server"))

	// Add subcommands
	ClientCommands.AddCommand(pingCmd)
	ClientCommands.AddCommand(sendCmd)
}

// setupClient binds the flags and creates the runtime of the command
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	rt = runtime.New()
	return nil
}

func closeClient(_ *cobra.Command, _ []string) error {
	if rt == nil {
		return nil
	}
	return rt.Close()
}

// connect opens a comm to the configured endpoint
func connect(ctx context.Context) (transport.Comm, error) {
	return comm.Connect(ctx, rt, viper.GetString("endpoint"), util.GetCommOptions()...)
}
