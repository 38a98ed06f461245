package displayconfig

import (
	"fmt"
	"reflect"

	"github.com/godbus/dbus/v5"

	"github.com/frudas24/displayctl/internal/monitor"
)

// ParseState converts the body of a GetCurrentState reply into a snapshot.
//
// Each logical monitor entry is annotated with the mode currently active on its
// connector. Property maps that cannot be read become empty maps; any other
// shape mismatch fails the whole conversion with ErrServiceCallFailed.
func ParseState(body []any) (monitor.Snapshot, error) {
	if len(body) != 4 {
		return monitor.Snapshot{}, malformed("state: expected 4 values, got %d", len(body))
	}
	serial, ok := asUint32(body[0])
	if !ok {
		return monitor.Snapshot{}, malformed("state: serial: unexpected %T", body[0])
	}
	rawMonitors, ok := asList(body[1])
	if !ok {
		return monitor.Snapshot{}, malformed("state: monitors: unexpected %T", body[1])
	}
	monitors := make([]monitor.Monitor, 0, len(rawMonitors))
	for i, raw := range rawMonitors {
		m, err := parseMonitor(raw)
		if err != nil {
			return monitor.Snapshot{}, fmt.Errorf("monitor %d: %w", i, err)
		}
		monitors = append(monitors, m)
	}
	rawLogical, ok := asList(body[2])
	if !ok {
		return monitor.Snapshot{}, malformed("state: logical monitors: unexpected %T", body[2])
	}
	logical := make([]monitor.LogicalMonitor, 0, len(rawLogical))
	for i, raw := range rawLogical {
		lm, err := parseLogicalMonitor(raw, monitors)
		if err != nil {
			return monitor.Snapshot{}, fmt.Errorf("logical monitor %d: %w", i, err)
		}
		logical = append(logical, lm)
	}
	return monitor.Snapshot{
		Serial:          serial,
		Monitors:        monitors,
		LogicalMonitors: logical,
		Properties:      parseProperties(body[3]),
	}, nil
}

// parseMonitor reads ((ssss) a(siiddada{sv}) a{sv}).
func parseMonitor(raw any) (monitor.Monitor, error) {
	fields, ok := asList(raw)
	if !ok || len(fields) != 3 {
		return monitor.Monitor{}, malformed("expected 3-field struct, got %T", raw)
	}
	connector, err := parseSpecConnector(fields[0])
	if err != nil {
		return monitor.Monitor{}, err
	}
	rawModes, ok := asList(fields[1])
	if !ok {
		return monitor.Monitor{}, malformed("%s: modes: unexpected %T", connector, fields[1])
	}
	modes := make([]monitor.Mode, 0, len(rawModes))
	for i, rm := range rawModes {
		mode, err := parseMode(rm)
		if err != nil {
			return monitor.Monitor{}, fmt.Errorf("%s: mode %d: %w", connector, i, err)
		}
		modes = append(modes, mode)
	}
	return monitor.Monitor{
		Connector:  connector,
		Modes:      modes,
		Properties: parseProperties(fields[2]),
	}, nil
}

// parseSpecConnector extracts the connector from a (connector, vendor, product, serial) spec.
func parseSpecConnector(raw any) (string, error) {
	spec, ok := asList(raw)
	if !ok || len(spec) != 4 {
		return "", malformed("monitor spec: expected 4 strings, got %T", raw)
	}
	connector, ok := spec[0].(string)
	if !ok || connector == "" {
		return "", malformed("monitor spec: connector: unexpected %T", spec[0])
	}
	return connector, nil
}

// parseMode reads (s i i d d ad a{sv}).
func parseMode(raw any) (monitor.Mode, error) {
	f, ok := asList(raw)
	if !ok || len(f) != 7 {
		return monitor.Mode{}, malformed("expected 7-field struct, got %T", raw)
	}
	id, ok := f[0].(string)
	if !ok || id == "" {
		return monitor.Mode{}, malformed("id: unexpected %T", f[0])
	}
	width, ok := asInt(f[1])
	if !ok {
		return monitor.Mode{}, malformed("%s: width: unexpected %T", id, f[1])
	}
	height, ok := asInt(f[2])
	if !ok {
		return monitor.Mode{}, malformed("%s: height: unexpected %T", id, f[2])
	}
	refresh, ok := asFloat(f[3])
	if !ok {
		return monitor.Mode{}, malformed("%s: refresh rate: unexpected %T", id, f[3])
	}
	preferred, ok := asFloat(f[4])
	if !ok {
		return monitor.Mode{}, malformed("%s: preferred scale: unexpected %T", id, f[4])
	}
	rawScales, ok := asList(f[5])
	if !ok {
		return monitor.Mode{}, malformed("%s: supported scales: unexpected %T", id, f[5])
	}
	scales := make([]float64, 0, len(rawScales))
	for _, rs := range rawScales {
		s, ok := asFloat(rs)
		if !ok {
			return monitor.Mode{}, malformed("%s: supported scale: unexpected %T", id, rs)
		}
		scales = append(scales, s)
	}
	return monitor.Mode{
		ID:              id,
		Width:           int(width),
		Height:          int(height),
		RefreshRate:     refresh,
		PreferredScale:  preferred,
		SupportedScales: scales,
		Properties:      parseProperties(f[6]),
	}, nil
}

// parseLogicalMonitor reads (i i d u b a(ssss) a{sv}).
func parseLogicalMonitor(raw any, monitors []monitor.Monitor) (monitor.LogicalMonitor, error) {
	f, ok := asList(raw)
	if !ok || len(f) != 7 {
		return monitor.LogicalMonitor{}, malformed("expected 7-field struct, got %T", raw)
	}
	x, okX := asInt(f[0])
	y, okY := asInt(f[1])
	if !okX || !okY {
		return monitor.LogicalMonitor{}, malformed("position: unexpected %T,%T", f[0], f[1])
	}
	scale, ok := asFloat(f[2])
	if !ok {
		return monitor.LogicalMonitor{}, malformed("scale: unexpected %T", f[2])
	}
	transform, ok := asUint32(f[3])
	if !ok {
		return monitor.LogicalMonitor{}, malformed("transform: unexpected %T", f[3])
	}
	primary, ok := f[4].(bool)
	if !ok {
		return monitor.LogicalMonitor{}, malformed("primary: unexpected %T", f[4])
	}
	specs, ok := asList(f[5])
	if !ok {
		return monitor.LogicalMonitor{}, malformed("monitors: unexpected %T", f[5])
	}
	refs := make([]monitor.MonitorRef, 0, len(specs))
	for _, spec := range specs {
		connector, err := parseSpecConnector(spec)
		if err != nil {
			return monitor.LogicalMonitor{}, err
		}
		m, ok := monitor.FindMonitor(monitors, connector)
		if !ok {
			return monitor.LogicalMonitor{}, malformed("%s: not in monitor list", connector)
		}
		mode, ok := m.CurrentMode()
		if !ok {
			return monitor.LogicalMonitor{}, malformed("%s: no current mode", connector)
		}
		refs = append(refs, monitor.MonitorRef{Connector: connector, ModeID: mode.ID})
	}
	return monitor.LogicalMonitor{
		X:          int(x),
		Y:          int(y),
		Scale:      scale,
		Transform:  monitor.Transform(transform),
		Primary:    primary,
		Monitors:   refs,
		Properties: parseProperties(f[6]),
	}, nil
}

// Render converts a snapshot into an apply request bound to serial.
// It performs no validation; reconcile the snapshot first.
func Render(s monitor.Snapshot, serial uint32) ApplyRequest {
	req := ApplyRequest{
		Serial:          serial,
		Method:          ApplyMethod,
		LogicalMonitors: make([]LogicalMonitorConfig, 0, len(s.LogicalMonitors)),
		Properties:      orEmpty(s.Properties),
	}
	for _, lm := range s.LogicalMonitors {
		cfg := LogicalMonitorConfig{
			X:          int32(lm.X),
			Y:          int32(lm.Y),
			Scale:      lm.Scale,
			Transform:  uint32(lm.Transform),
			Primary:    lm.Primary,
			Monitors:   make([]MonitorAssignment, 0, len(lm.Monitors)),
			Properties: orEmpty(lm.Properties),
		}
		for _, ref := range lm.Monitors {
			cfg.Monitors = append(cfg.Monitors, MonitorAssignment{
				Connector:  ref.Connector,
				ModeID:     ref.ModeID,
				Properties: orEmpty(ref.Properties),
			})
		}
		req.LogicalMonitors = append(req.LogicalMonitors, cfg)
	}
	return req
}

// parseProperties converts an a{sv} payload. Anything else yields an empty map.
func parseProperties(raw any) monitor.Properties {
	out := monitor.Properties{}
	switch props := raw.(type) {
	case map[string]dbus.Variant:
		for k, v := range props {
			out[k] = v.Value()
		}
	case map[string]any:
		for k, v := range props {
			out[k] = v
		}
	}
	return out
}

func orEmpty(p monitor.Properties) monitor.Properties {
	if p == nil {
		return monitor.Properties{}
	}
	return p.Clone()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrServiceCallFailed, fmt.Sprintf(format, args...))
}

// asList accepts any slice; the bus decoder returns structs as []any and
// arrays as typed slices.
func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case byte:
		return int64(n), true
	default:
		return 0, false
	}
}

func asUint32(v any) (uint32, bool) {
	n, ok := asInt(v)
	if !ok || n < 0 || n > int64(^uint32(0)) {
		return 0, false
	}
	return uint32(n), true
}

func asFloat(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, true
	}
	n, ok := asInt(v)
	return float64(n), ok
}
