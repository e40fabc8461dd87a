package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/types"
)

// SessionReport is the structured JSON report written by --report.
type SessionReport struct {
	SessionID  string              `json:"session_id"`
	Key        int                 `json:"shm_key"`
	Command    string              `json:"command"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	StatusType string              `json:"status_type,omitempty"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Metrics *metrics.Snapshot `json:"metrics"`
}

// BuildSessionReport composes a SessionReport from an outcome and a
// metrics snapshot.
func BuildSessionReport(command string, key int, outcome *types.Outcome, snap metrics.Snapshot, elapsed time.Duration) *SessionReport {
	return &SessionReport{
		SessionID:  snap.SessionID,
		Key:        key,
		Command:    command,
		Outcome:    outcome.Status,
		StatusType: outcome.StatusType,
		Message:    outcome.Message,
		ExitCode:   ExitCode(outcome),
		DurationMs: elapsed.Milliseconds(),
		Metrics:    &snap,
	}
}

// WriteSessionReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteSessionReport(report *SessionReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeSessionReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

func writeSessionReportTo(report *SessionReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *SessionReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
