package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	consts "github.com/nvtrung/certprobe-cli/internal/constants"
	"github.com/nvtrung/certprobe-cli/internal/probe"
)

type telemetryRecord struct {
	Timestamp           time.Time `json:"timestamp"`
	Command             string    `json:"command"`
	TargetCount         int       `json:"target_count"`
	OKCount             int       `json:"ok_count"`
	WarningCount        int       `json:"warning_count"`
	FailureCount        int       `json:"failure_count"`
	SuccessRate         float64   `json:"success_rate"`
	DurationSeconds     float64   `json:"duration_seconds"`
	AvgDurationPerProbe float64   `json:"avg_duration_per_probe"`
}

func recordTelemetry(dir string, command string, results []probe.Result, duration time.Duration) error {
	okCount, warnCount, failCount := summarizeStatuses(results)
	total := len(results)

	successRate := 0.0
	if total > 0 {
		successRate = (float64(okCount) / float64(total)) * 100
	}

	avgDuration := 0.0
	if total > 0 {
		avgDuration = duration.Seconds() / float64(total)
	}

	record := telemetryRecord{
		Timestamp:           time.Now().UTC(),
		Command:             command,
		TargetCount:         total,
		OKCount:             okCount,
		WarningCount:        warnCount,
		FailureCount:        failCount,
		SuccessRate:         successRate,
		DurationSeconds:     duration.Seconds(),
		AvgDurationPerProbe: avgDuration,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath := filepath.Join(dir, "telemetry.jsonl")
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

// summarizeStatuses buckets results into healthy, warning (still serving
// but flagged) and failed.
func summarizeStatuses(results []probe.Result) (okCount, warnCount, failCount int) {
	for _, r := range results {
		switch r.Status {
		case probe.StatusOK:
			okCount++
		case probe.StatusExpiringSoon, probe.StatusSelfSigned:
			warnCount++
		default:
			failCount++
		}
	}
	return okCount, warnCount, failCount
}
