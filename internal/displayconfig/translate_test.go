package displayconfig

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/displayctl/internal/monitor"
)

func modeTuple(id string, w, h int32, refresh float64, current bool) []any {
	props := map[string]dbus.Variant{}
	if current {
		props["is-current"] = dbus.MakeVariant(true)
	}
	return []any{id, w, h, refresh, 1.0, []float64{1, 2}, props}
}

// stateBody mimics the decoded GetCurrentState reply for a laptop panel plus one HDMI screen.
func stateBody() []any {
	monitors := [][]any{
		{
			[]any{"eDP-1", "BOE", "0x0a1c", "0x00000000"},
			[][]any{
				modeTuple("2560x1600@60", 2560, 1600, 60.002, true),
				modeTuple("1920x1200@60", 1920, 1200, 59.95, false),
			},
			map[string]dbus.Variant{"is-builtin": dbus.MakeVariant(true), "display-name": dbus.MakeVariant("Built-in display")},
		},
		{
			[]any{"HDMI-1", "DEL", "DELL U2415", "7MT0"},
			[][]any{
				modeTuple("1920x1200@59.950", 1920, 1200, 59.95, true),
				modeTuple("1920x1080@60.000", 1920, 1080, 60, false),
			},
			map[string]dbus.Variant{},
		},
	}
	logical := [][]any{
		{int32(0), int32(0), 1.25, uint32(0), true, [][]any{{"eDP-1", "BOE", "0x0a1c", "0x00000000"}}, map[string]dbus.Variant{}},
		{int32(2048), int32(0), 1.0, uint32(1), false, [][]any{{"HDMI-1", "DEL", "DELL U2415", "7MT0"}}, map[string]dbus.Variant{}},
	}
	props := map[string]dbus.Variant{
		"layout-mode":                   dbus.MakeVariant(uint32(1)),
		"supports-changing-layout-mode": dbus.MakeVariant(true),
	}
	return []any{uint32(42), monitors, logical, props}
}

// TestParseState_Snapshot verifies monitors, modes and placements are translated.
func TestParseState_Snapshot(t *testing.T) {
	snap, err := ParseState(stateBody())
	require.NoError(t, err)

	assert.Equal(t, uint32(42), snap.Serial)
	require.Len(t, snap.Monitors, 2)
	assert.Equal(t, "eDP-1", snap.Monitors[0].Connector)
	assert.Equal(t, "Built-in display", snap.Monitors[0].Properties["display-name"])
	require.Len(t, snap.Monitors[1].Modes, 2)
	mode := snap.Monitors[1].Modes[1]
	assert.Equal(t, monitor.Mode{
		ID:              "1920x1080@60.000",
		Width:           1920,
		Height:          1080,
		RefreshRate:     60,
		PreferredScale:  1,
		SupportedScales: []float64{1, 2},
		Properties:      monitor.Properties{},
	}, mode)

	require.Len(t, snap.LogicalMonitors, 2)
	lm := snap.LogicalMonitors[1]
	assert.Equal(t, 2048, lm.X)
	assert.Equal(t, monitor.Transform90, lm.Transform)
	assert.False(t, lm.Primary)
	assert.Equal(t, []monitor.MonitorRef{{Connector: "HDMI-1", ModeID: "1920x1200@59.950"}}, lm.Monitors)
	assert.Equal(t, uint32(1), snap.Properties["layout-mode"])
}

// TestParseState_MalformedPropertiesTolerated verifies unreadable property maps become empty.
func TestParseState_MalformedPropertiesTolerated(t *testing.T) {
	body := stateBody()
	mons := body[1].([][]any)
	mons[0][2] = "not a dict"
	body[3] = int32(5)

	snap, err := ParseState(body)
	require.NoError(t, err)
	assert.Equal(t, monitor.Properties{}, snap.Monitors[0].Properties)
	assert.Equal(t, monitor.Properties{}, snap.Properties)
}

// TestParseState_MissingRequiredFields verifies required fields fail the whole capture.
func TestParseState_MissingRequiredFields(t *testing.T) {
	cases := map[string]func(body []any) []any{
		"arity": func(body []any) []any { return body[:3] },
		"connector": func(body []any) []any {
			body[1].([][]any)[0][0] = []any{int32(1), "a", "b", "c"}
			return body
		},
		"mode id": func(body []any) []any {
			body[1].([][]any)[1][1].([][]any)[0][0] = ""
			return body
		},
		"width": func(body []any) []any {
			body[1].([][]any)[1][1].([][]any)[0][1] = "1920"
			return body
		},
		"serial": func(body []any) []any {
			body[0] = "42"
			return body
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseState(mutate(stateBody()))
			require.ErrorIs(t, err, ErrServiceCallFailed)
		})
	}
}

// TestParseState_NoCurrentMode verifies a placed connector without an active mode is rejected.
func TestParseState_NoCurrentMode(t *testing.T) {
	body := stateBody()
	modes := body[1].([][]any)[1][1].([][]any)
	modes[0][6] = map[string]dbus.Variant{}

	_, err := ParseState(body)
	require.ErrorIs(t, err, ErrServiceCallFailed)
	assert.Contains(t, err.Error(), "HDMI-1")
}

// TestRender_Shape verifies the apply request mirrors the snapshot and carries the given serial.
func TestRender_Shape(t *testing.T) {
	snap, err := ParseState(stateBody())
	require.NoError(t, err)

	req := Render(snap, 77)
	assert.Equal(t, uint32(77), req.Serial)
	assert.Equal(t, ApplyMethod, req.Method)
	require.Len(t, req.LogicalMonitors, 2)
	first := req.LogicalMonitors[0]
	assert.Equal(t, LogicalMonitorConfig{
		X:          0,
		Y:          0,
		Scale:      1.25,
		Transform:  0,
		Primary:    true,
		Monitors:   []MonitorAssignment{{Connector: "eDP-1", ModeID: "2560x1600@60", Properties: monitor.Properties{}}},
		Properties: monitor.Properties{},
	}, first)
	assert.Equal(t, uint32(1), req.Properties["layout-mode"])
}

// TestRender_NilProperties verifies missing property maps render as empty maps.
func TestRender_NilProperties(t *testing.T) {
	req := Render(monitor.Snapshot{LogicalMonitors: []monitor.LogicalMonitor{{
		Scale:    1,
		Monitors: []monitor.MonitorRef{{Connector: "DP-1", ModeID: "m"}},
	}}}, 1)
	assert.NotNil(t, req.Properties)
	assert.NotNil(t, req.LogicalMonitors[0].Properties)
	assert.NotNil(t, req.LogicalMonitors[0].Monitors[0].Properties)
}
