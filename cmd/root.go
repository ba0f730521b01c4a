package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dComm/cmd/client"
	"github.com/ValentinKolb/dComm/cmd/perf"
	"github.com/ValentinKolb/dComm/cmd/serve"
	"github.com/ValentinKolb/dComm/rpc/comm"
	"github.com/ValentinKolb/dComm/rpc/compression"
	"github.com/ValentinKolb/dComm/rpc/serializer"
	"github.com/spf13/cobra"
	"os"
	"strings"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcomm",
		Short: "transport-agnostic message channels",
		Long: fmt.Sprintf(`dComm (v%s)

A communication layer written in Go: listen on and connect to tcp, unix,
websocket or in-process addresses and exchange framed messages with
pluggable serialization and size-based compression.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dComm",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dComm v%s\n", Version)
			fmt.Printf("  transports:  %s\n", strings.Join(comm.Schemes(), ", "))
			fmt.Printf("  serializers: %s\n", strings.Join(serializer.Names(), ", "))
			fmt.Printf("  compression: %s\n", strings.Join(compression.Names(), ", "))
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(client.ClientCommands)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
