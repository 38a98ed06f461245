package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/frudas24/displayctl/internal/monitor"
)

// modesShown caps the per-monitor mode list printed by Current.
const modesShown = 3

// preview prints what loading a layout would apply.
func (a *App) preview(name string, serial uint32, logical []monitor.LogicalMonitor) {
	a.heading.Fprintf(a.out, "Configuration '%s' would apply:\n", name)
	fmt.Fprintf(a.out, "Serial: %d\n", serial)
	writeLogical(a.out, "  ", logical)
	fmt.Fprintln(a.out, "\nUse 'load' without --dry-run to apply this configuration.")
}

// writeLogical prints one line per logical monitor and one per placed monitor.
func writeLogical(w io.Writer, indent string, logical []monitor.LogicalMonitor) {
	for i, lm := range logical {
		primary := ""
		if lm.Primary {
			primary = " (primary)"
		}
		transform := ""
		if lm.Transform != monitor.TransformNormal {
			transform = ", rotation " + lm.Transform.String()
		}
		fmt.Fprintf(w, "%sLogical monitor %d: %d,%d scale %s%s%s\n",
			indent, i+1, lm.X, lm.Y, strconv.FormatFloat(lm.Scale, 'g', -1, 64), transform, primary)
		for _, ref := range lm.Monitors {
			fmt.Fprintf(w, "%s  - %s (mode: %s)\n", indent, ref.Connector, ref.ModeID)
		}
	}
}

// modeFlags labels the current and preferred modes.
func modeFlags(mode monitor.Mode) string {
	switch {
	case mode.Properties.Bool(monitor.PropIsCurrent) && mode.Properties.Bool(monitor.PropIsPreferred):
		return " (current, preferred)"
	case mode.Properties.Bool(monitor.PropIsCurrent):
		return " (current)"
	case mode.Properties.Bool(monitor.PropIsPreferred):
		return " (preferred)"
	}
	return ""
}
