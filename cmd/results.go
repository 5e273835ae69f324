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

// RunMetadata describes one completed batch run.
type RunMetadata struct {
	Timestamp       time.Time `json:"timestamp"`
	TargetCount     int       `json:"target_count"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// RunOutput is the on-disk shape of a saved batch run.
type RunOutput struct {
	Metadata RunMetadata    `json:"metadata"`
	Results  []probe.Result `json:"results"`
}

// saveRunOutput persists the latest batch run to <dir>/results.json.
func saveRunOutput(dir string, results []probe.Result, duration time.Duration) error {
	out := RunOutput{
		Metadata: RunMetadata{
			Timestamp:       time.Now().UTC(),
			TargetCount:     len(results),
			DurationSeconds: duration.Seconds(),
		},
		Results: results,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	path := filepath.Join(dir, "results.json")
	if err := os.WriteFile(path, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
