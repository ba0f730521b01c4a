package perf

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dComm/cmd/util"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var Logger = logger.GetLogger("cli")

var (
	// PerfCmd runs the comm benchmark suite against in-process listeners
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Benchmark connect and transfer performance of the transports",
		Long:    "Runs listener and connector in this process and measures the event loop overhead, connect/close cycles and message transfers for every selected transport.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfTransports  = []string{"tcp", "inproc"}
	perfSkip        = make([]string, 0)
	perfConnects    = 100
	perfTransfers   = 100
	perfLargeSizeKB = 10 * 1024
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupCommFlags(PerfCmd)

	// add flags
	key := "transports"
	PerfCmd.PersistentFlags().String(key, "tcp,inproc", util.WrapString("Transports to benchmark (comma separated - tcp, inproc, unix, ws)"))
	key = "skip"
	PerfCmd.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. loop-start-stop,tcp-large)"))
	key = "connects"
	PerfCmd.PersistentFlags().Int(key, 100, util.WrapString("Number of concurrent connect/close cycles per connect benchmark run"))
	key = "transfers"
	PerfCmd.PersistentFlags().Int(key, 100, util.WrapString("Number of messages sent per transfer benchmark run"))
	key = "large-size"
	PerfCmd.PersistentFlags().Int(key, 10*1024, util.WrapString("How large the payload of the large message tests should be (in KB)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfTransports = splitList(viper.GetString("transports"))
	perfSkip = splitList(viper.GetString("skip"))
	perfConnects = viper.GetInt("connects")
	perfTransfers = viper.GetInt("transfers")
	perfLargeSizeKB = viper.GetInt("large-size")

	if perfConnects <= 0 || perfTransfers <= 0 || perfLargeSizeKB <= 0 {
		return fmt.Errorf("connects, transfers and large-size must be positive")
	}
	for _, t := range perfTransports {
		if _, ok := listenAddresses[t]; !ok {
			return fmt.Errorf("unknown transport %q (expected one of tcp, inproc, unix, ws)", t)
		}
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dComm transports")

	// Print configuration
	config := util.GetCommConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Transports: %s\n", strings.Join(perfTransports, ", "))
	fmt.Printf("Transfers: %d, Connects: %d, Large Size: %d KB\n", perfTransfers, perfConnects, perfLargeSizeKB)
	fmt.Println()

	fmt.Println("starting tests...")

	s := newSuite(config)
	defer s.close()

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	var order []string
	for _, bm := range s.benchmarks(perfTransports) {
		if shouldSkip(bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
		} else {
			results[bm.name] = testing.Benchmark(bm.fn)
		}
		order = append(order, bm.name)
		printResult(bm.name, results[bm.name], s.timer(bm.name))
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results, s); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer gometrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-40sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := timer.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Printf("%-40s%.0fns/op (%s/op)\t%.2f ops/sec\tp50 %s\tp99 %s\n", test, nsPerOp, time.Duration(nsPerOp),
		opsPerSec, time.Duration(p[0]), time.Duration(p[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]testing.BenchmarkResult, s *suite) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "P50Ns", "P99Ns",
		"Serializer", "Compression", "CompressionThreshold",
		"Connects", "Transfers", "LargeSizeKB",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range order {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := s.timer(test).Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.2f", opsPerSec),
			skipped,
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			s.config.Serializer,
			s.config.Compression,
			strconv.Itoa(s.config.CompressionThreshold),
			strconv.Itoa(perfConnects),
			strconv.Itoa(perfTransfers),
			strconv.Itoa(perfLargeSizeKB),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
