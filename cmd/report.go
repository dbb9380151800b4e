package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contact-sync/internal/model"
)

// syncReport is the final summary printed by sync and push.
type syncReport struct {
	Kind   model.RunKind    `json:"kind" yaml:"kind"`
	RunID  string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Mode   string           `json:"mode" yaml:"mode"`
	Counts model.SyncCounts `json:"counts" yaml:"counts"`
}

func newSyncReport(kind model.RunKind, runID string, counts model.SyncCounts, dryRun bool) syncReport {
	mode := "write"
	if dryRun {
		mode = "dry-run"
	}
	return syncReport{Kind: kind, RunID: runID, Mode: mode, Counts: counts}
}

// lines returns the text rows for the report. A pull reports updates, a
// push reports failures.
func (r syncReport) lines() []string {
	out := []string{fmt.Sprintf("Created: %d", r.Counts.Created)}
	if r.Kind == model.RunKindPull {
		out = append(out, fmt.Sprintf("Updated: %d", r.Counts.Updated))
	}
	out = append(out, fmt.Sprintf("Skipped: %d", r.Counts.Skipped))
	if r.Kind == model.RunKindPush {
		out = append(out, fmt.Sprintf("Failed: %d", r.Counts.Failed))
	}
	if r.RunID != "" {
		out = append(out, "Run: "+r.RunID)
	}
	return append(out, "Mode: "+r.Mode)
}

// writeReport renders r in the requested format.
func writeReport(w io.Writer, r syncReport, format string) error {
	switch format {
	case "", "text":
		for _, l := range r.lines() {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return eris.Wrap(err, "write report")
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "encode report json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode report yaml")
		}
		return eris.Wrap(enc.Close(), "encode report yaml")
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}
