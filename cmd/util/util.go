package util

import (
	"github.com/ValentinKolb/dComm/rpc/comm"
	"github.com/ValentinKolb/dComm/rpc/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCommFlags adds the codec and socket flags shared by all commands that open comms
func SetupCommFlags(cmd *cobra.Command) {
	defaults := common.DefaultCommConfig()

	key := "serializer"
	cmd.PersistentFlags().String(key, defaults.Serializer, WrapString("Serializer for outgoing messages (binary, json, gob)"))

	key = "compression"
	cmd.PersistentFlags().String(key, defaults.Compression, WrapString("Compression for outgoing frames (lz4, snappy, zstd, none). In-process comms never compress"))

	key = "compression-threshold"
	cmd.PersistentFlags().Int(key, defaults.CompressionThreshold, WrapString("Frames smaller than this many bytes are sent uncompressed"))

	key = "deserialize"
	cmd.PersistentFlags().Bool(key, defaults.Deserialize, WrapString("Whether pre-serialized values are deserialized on read. If false they are handed out as placeholders"))

	key = "connect-timeout"
	cmd.PersistentFlags().Duration(key, defaults.ConnectTimeout, WrapString("Upper bound for establishing a connection including the handshake"))

	key = "handshake-timeout"
	cmd.PersistentFlags().Duration(key, defaults.HandshakeTimeout, WrapString("Upper bound for the handshake of network transports"))

	key = "max-frame-size"
	cmd.PersistentFlags().Uint64(key, defaults.MaxFrameSize, WrapString("Largest frame (in bytes) accepted from a peer"))

	key = "read-ahead"
	cmd.PersistentFlags().Int(key, defaults.ReadAhead, WrapString("How many decoded messages a network comm buffers before it stops reading"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, defaults.TCP.TCPNoDelay, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, defaults.TCP.TCPLingerSec, WrapString("The linger time (in seconds, tcp only, negative keeps the OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads .env files and enables DCOMM_ environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dcomm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCommConfig reads the comm configuration from viper
func GetCommConfig() common.CommConfig {
	return common.CommConfig{
		Serializer:           viper.GetString("serializer"),
		Compression:          viper.GetString("compression"),
		CompressionThreshold: viper.GetInt("compression-threshold"),
		Deserialize:          viper.GetBool("deserialize"),
		ConnectTimeout:       durationOr(viper.GetDuration("connect-timeout"), common.DefaultConnectTimeout),
		HandshakeTimeout:     durationOr(viper.GetDuration("handshake-timeout"), common.DefaultHandshakeTimeout),
		MaxFrameSize:         viper.GetUint64("max-frame-size"),
		ReadAhead:            viper.GetInt("read-ahead"),
		Socket: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCP: common.TCPConf{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
	}
}

// GetCommOptions returns the configuration as options for comm.Listen and comm.Connect
func GetCommOptions() []comm.Option {
	return []comm.Option{comm.WithConfig(GetCommConfig())}
}

// BindCommandFlags binds a command's flags to viper and applies the log level
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
