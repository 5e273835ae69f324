package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	consts "github.com/nvtrung/certprobe-cli/internal/constants"
	"github.com/nvtrung/certprobe-cli/internal/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe <host> [host...]",
	Short: "Inspect the TLS certificates of one or more hosts",
	Long: `Probe connects to each host, retrieves the certificate it presents and
classifies it (ok, expiring_soon, expired, self_signed, unreachable,
handshake_error, timeout). Hosts may carry an explicit port
("example.com:8443"); port 443 is assumed otherwise. One bad host never
affects the others and results come back in input order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

func init() {
	registerProbeFlags(probeCmd.Flags())
	probeCmd.Flags().Bool("progress", true, "Show live progress while probing")
	probeCmd.Flags().Bool("telemetry", false, "Append a run summary to telemetry.jsonl")
	probeCmd.Flags().StringP("output", "O", "table", "Output format: table or json")
	probeCmd.Flags().String("results-dir", "", "Directory for results.json (default from config results_dir)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg := resolveProbeConfig(cmd.Flags())
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q (want table or json)", output)
	}

	reqs := buildRequests(args)
	prober := cfg.NewProber()
	runner := cfg.NewRunner()

	var printer *progressPrinter
	var observe func(probe.Result)
	if cfg.ProgressEnabled && output == "table" {
		printer = newProgressPrinter(len(reqs), "probe")
		printer.Start()
		observe = func(res probe.Result) {
			printer.Observe(res.Status, res.ResponseTimeMS/1000.0)
		}
	}

	start := time.Now()
	results := runner.ProbeAll(cmd.Context(), prober, reqs, observe)
	elapsed := time.Since(start)

	if printer != nil {
		printer.Stop()
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	} else {
		printResultsTable(results)
	}

	outDir := resultsDir
	if flagDir, _ := cmd.Flags().GetString("results-dir"); flagDir != "" {
		outDir = flagDir
		if err := os.MkdirAll(outDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("create results directory: %w", err)
		}
	}
	if err := saveRunOutput(outDir, results, elapsed); err != nil {
		logger.Warnf("failed to save results: %v", err)
	}
	if cfg.TelemetryEnabled {
		if err := recordTelemetry(outDir, "probe", results, elapsed); err != nil {
			logger.Warnf("failed to record telemetry: %v", err)
		}
	}
	return nil
}

// buildRequests turns raw CLI or API host strings into probe requests,
// preserving input order.
func buildRequests(targets []string) []probe.Request {
	reqs := make([]probe.Request, 0, len(targets))
	for _, t := range targets {
		reqs = append(reqs, probe.ParseRequest(strings.TrimSpace(t)))
	}
	return reqs
}

func printResultsTable(results []probe.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tSTATUS\tEXPIRES\tDAYS LEFT\tISSUER")
	for _, res := range results {
		expires, days, issuer := "-", "-", "-"
		if res.Certificate != nil {
			expires = res.Certificate.NotAfter.Format("2006-01-02")
			days = fmt.Sprintf("%d", res.Certificate.DaysUntilExpiry)
			issuer = res.Certificate.Issuer
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", res.Host, formatStatusWithColor(res.Status), expires, days, issuer)
	}
	_ = w.Flush()

	ok, warn, fail := summarizeStatuses(results)
	fmt.Printf("\n%s %d ok  %s %d warning  %s %d failed\n",
		colorSuccess("✓"), ok, colorWarn("!"), warn, colorError("✗"), fail)
}
