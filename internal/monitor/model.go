// Package monitor describes monitor layouts as captured from the display service.
package monitor

import "fmt"

// PropIsCurrent flags the mode currently driving a monitor.
const PropIsCurrent = "is-current"

// PropIsPreferred flags the monitor's preferred mode.
const PropIsPreferred = "is-preferred"

// Properties is a free-form flag/property mapping attached to most records.
type Properties map[string]any

// Bool reports whether key holds a true boolean.
func (p Properties) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// Clone returns a shallow copy of the mapping. A nil map stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Mode is one video mode a monitor supports.
type Mode struct {
	ID              string     `json:"id"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	RefreshRate     float64    `json:"refresh_rate"`
	PreferredScale  float64    `json:"preferred_scale"`
	SupportedScales []float64  `json:"supported_scales"`
	Properties      Properties `json:"properties"`
}

// String renders the mode as WxH@R.RHz.
func (m Mode) String() string {
	return fmt.Sprintf("%dx%d@%.1fHz", m.Width, m.Height, m.RefreshRate)
}

// Monitor is a physical output identified by its connector name.
type Monitor struct {
	Connector  string     `json:"connector"`
	Modes      []Mode     `json:"modes"`
	Properties Properties `json:"properties"`
}

// FindMode returns the mode with the given id.
func (m Monitor) FindMode(id string) (Mode, bool) {
	for _, mode := range m.Modes {
		if mode.ID == id {
			return mode, true
		}
	}
	return Mode{}, false
}

// CurrentMode returns the mode flagged as currently active.
func (m Monitor) CurrentMode() (Mode, bool) {
	for _, mode := range m.Modes {
		if mode.Properties.Bool(PropIsCurrent) {
			return mode, true
		}
	}
	return Mode{}, false
}

// FirstWithResolution returns the first mode, in list order, matching width and height.
func (m Monitor) FirstWithResolution(width, height int) (Mode, bool) {
	for _, mode := range m.Modes {
		if mode.Width == width && mode.Height == height {
			return mode, true
		}
	}
	return Mode{}, false
}

// FindMonitor returns the monitor attached to connector.
func FindMonitor(list []Monitor, connector string) (Monitor, bool) {
	for _, m := range list {
		if m.Connector == connector {
			return m, true
		}
	}
	return Monitor{}, false
}

// MonitorRef places a connector, driven by a given mode, inside a logical monitor.
type MonitorRef struct {
	Connector  string     `json:"connector"`
	ModeID     string     `json:"mode_id"`
	Properties Properties `json:"properties,omitempty"`
}

// LogicalMonitor is a region of the desktop covered by one or more monitors.
type LogicalMonitor struct {
	X          int          `json:"x"`
	Y          int          `json:"y"`
	Scale      float64      `json:"scale"`
	Transform  Transform    `json:"transform"`
	Primary    bool         `json:"primary"`
	Monitors   []MonitorRef `json:"monitors"`
	Properties Properties   `json:"properties"`
}

// Snapshot is a full display configuration as reported by the service.
type Snapshot struct {
	Serial          uint32           `json:"serial"`
	Monitors        []Monitor        `json:"monitors"`
	LogicalMonitors []LogicalMonitor `json:"logical_monitors"`
	Properties      Properties       `json:"properties"`
}

// Connectors lists connectors referenced by logical monitors, in first-seen order.
func (s Snapshot) Connectors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, lm := range s.LogicalMonitors {
		for _, ref := range lm.Monitors {
			if seen[ref.Connector] {
				continue
			}
			seen[ref.Connector] = true
			out = append(out, ref.Connector)
		}
	}
	return out
}

// MonitorCount returns the number of placed monitors across all logical monitors.
func (s Snapshot) MonitorCount() int {
	n := 0
	for _, lm := range s.LogicalMonitors {
		n += len(lm.Monitors)
	}
	return n
}

// Clone returns a deep copy; slices and property maps are not shared.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Serial:     s.Serial,
		Properties: s.Properties.Clone(),
	}
	if s.Monitors != nil {
		out.Monitors = make([]Monitor, len(s.Monitors))
	}
	for i, m := range s.Monitors {
		cm := Monitor{Connector: m.Connector, Properties: m.Properties.Clone()}
		if m.Modes != nil {
			cm.Modes = make([]Mode, len(m.Modes))
		}
		for j, mode := range m.Modes {
			if mode.SupportedScales != nil {
				mode.SupportedScales = append(make([]float64, 0, len(mode.SupportedScales)), mode.SupportedScales...)
			}
			mode.Properties = mode.Properties.Clone()
			cm.Modes[j] = mode
		}
		out.Monitors[i] = cm
	}
	if s.LogicalMonitors != nil {
		out.LogicalMonitors = make([]LogicalMonitor, len(s.LogicalMonitors))
	}
	for i, lm := range s.LogicalMonitors {
		if lm.Monitors != nil {
			refs := make([]MonitorRef, len(lm.Monitors))
			for j, ref := range lm.Monitors {
				ref.Properties = ref.Properties.Clone()
				refs[j] = ref
			}
			lm.Monitors = refs
		}
		lm.Properties = lm.Properties.Clone()
		out.LogicalMonitors[i] = lm
	}
	return out
}

// Validate checks the fields a layout cannot be applied without.
func (s Snapshot) Validate() error {
	for i, m := range s.Monitors {
		if m.Connector == "" {
			return fmt.Errorf("monitor %d: missing connector", i)
		}
		for j, mode := range m.Modes {
			if mode.ID == "" {
				return fmt.Errorf("%s: mode %d: missing id", m.Connector, j)
			}
			if mode.Width <= 0 || mode.Height <= 0 {
				return fmt.Errorf("%s: mode %s: invalid size %dx%d", m.Connector, mode.ID, mode.Width, mode.Height)
			}
		}
	}
	for i, lm := range s.LogicalMonitors {
		if len(lm.Monitors) == 0 {
			return fmt.Errorf("logical monitor %d: no monitors", i)
		}
		for _, ref := range lm.Monitors {
			if ref.Connector == "" || ref.ModeID == "" {
				return fmt.Errorf("logical monitor %d: incomplete monitor entry %+v", i, ref)
			}
		}
	}
	return nil
}
