// Package reconcile checks a saved layout against the live monitor set before it is applied.
package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/frudas24/displayctl/internal/monitor"
)

// ErrReconciliationFailed is matched by every error Reconcile returns.
var ErrReconciliationFailed = errors.New("reconciliation failed")

// Error describes why a saved layout cannot be applied.
type Error struct {
	// Missing lists referenced connectors that are not connected.
	Missing []string
	// Connector and ModeID identify a mode with no same-resolution replacement.
	Connector string
	ModeID    string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: monitors not currently available: %s", ErrReconciliationFailed, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: no suitable alternative for mode %s on %s", ErrReconciliationFailed, e.ModeID, e.Connector)
}

// Unwrap exposes ErrReconciliationFailed to errors.Is.
func (e *Error) Unwrap() error {
	return ErrReconciliationFailed
}

// Substitution records a stale mode id replaced by a live one.
type Substitution struct {
	Connector string
	From      string
	To        string
	Width     int
	Height    int
}

// Report lists what Reconcile changed.
type Report struct {
	Substitutions []Substitution
}

// Changed reports whether any mode id was rewritten.
func (r Report) Changed() bool {
	return len(r.Substitutions) > 0
}

// Reconcile returns a copy of saved whose mode ids all exist in live.
//
// A referenced connector missing from live fails the whole operation. A mode id
// no longer offered is replaced by the first live mode of that connector with
// the saved mode's width and height; refresh rate is not considered. Neither
// input is modified.
func Reconcile(saved, live monitor.Snapshot) (monitor.Snapshot, Report, error) {
	var missing []string
	for _, connector := range saved.Connectors() {
		if _, ok := monitor.FindMonitor(live.Monitors, connector); !ok {
			missing = append(missing, connector)
		}
	}
	if len(missing) > 0 {
		return monitor.Snapshot{}, Report{}, &Error{Missing: missing}
	}

	out := saved.Clone()
	var report Report
	for i := range out.LogicalMonitors {
		refs := out.LogicalMonitors[i].Monitors
		for j := range refs {
			ref := &refs[j]
			current, _ := monitor.FindMonitor(live.Monitors, ref.Connector)
			if _, ok := current.FindMode(ref.ModeID); ok {
				continue
			}
			replacement, ok := alternative(saved, current, ref.ModeID)
			if !ok {
				return monitor.Snapshot{}, Report{}, &Error{Connector: ref.Connector, ModeID: ref.ModeID}
			}
			report.Substitutions = append(report.Substitutions, Substitution{
				Connector: ref.Connector,
				From:      ref.ModeID,
				To:        replacement.ID,
				Width:     replacement.Width,
				Height:    replacement.Height,
			})
			ref.ModeID = replacement.ID
		}
	}
	return out, report, nil
}

// alternative finds a live mode matching the resolution the saved mode id had.
func alternative(saved monitor.Snapshot, current monitor.Monitor, modeID string) (monitor.Mode, bool) {
	savedMonitor, ok := monitor.FindMonitor(saved.Monitors, current.Connector)
	if !ok {
		return monitor.Mode{}, false
	}
	savedMode, ok := savedMonitor.FindMode(modeID)
	if !ok {
		return monitor.Mode{}, false
	}
	return current.FirstWithResolution(savedMode.Width, savedMode.Height)
}
