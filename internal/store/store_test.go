package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/displayctl/internal/monitor"
)

func layout() monitor.Snapshot {
	return monitor.Snapshot{
		Serial: 5,
		Monitors: []monitor.Monitor{{
			Connector: "HDMI-1",
			Modes: []monitor.Mode{{
				ID: "modeA", Width: 1920, Height: 1080, RefreshRate: 60, PreferredScale: 1,
				SupportedScales: []float64{1, 2},
				Properties:      monitor.Properties{"is-current": true},
			}},
			Properties: monitor.Properties{"display-name": "Dell"},
		}},
		LogicalMonitors: []monitor.LogicalMonitor{{
			X: 0, Y: 0, Scale: 1, Primary: true,
			Monitors:   []monitor.MonitorRef{{Connector: "HDMI-1", ModeID: "modeA"}},
			Properties: monitor.Properties{},
		}},
		Properties: monitor.Properties{"layout-mode": float64(1)},
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "displayctl"))
	require.NoError(t, err)
	return s
}

// TestSaveLoad_RoundTrip verifies saving and loading preserves the layout.
func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newStore(t)
	path, err := s.Save("work", layout())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "work.json"), path)

	out, err := s.Load("work")
	require.NoError(t, err)
	assert.Equal(t, layout(), out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestSave_Overwrites verifies saving under an existing name replaces it.
func TestSave_Overwrites(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("work", layout())
	require.NoError(t, err)

	changed := layout()
	changed.LogicalMonitors[0].X = 100
	_, err = s.Save("work", changed)
	require.NoError(t, err)

	out, err := s.Load("work")
	require.NoError(t, err)
	assert.Equal(t, 100, out.LogicalMonitors[0].X)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// TestSave_FileFormat verifies the persisted field names.
func TestSave_FileFormat(t *testing.T) {
	s := newStore(t)
	path, err := s.Save("home", layout())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"serial"`, `"monitors"`, `"logical_monitors"`, `"properties"`, `"mode_id"`, `"refresh_rate"`, `"supported_scales"`} {
		assert.Contains(t, string(data), key)
	}
}

// TestLoad_Missing verifies absent names report ErrNotFound.
func TestLoad_Missing(t *testing.T) {
	_, err := newStore(t).Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestLoad_Corrupt verifies invalid JSON and incomplete layouts report ErrCorrupt.
func TestLoad_Corrupt(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{not json"), 0o600))
	_, err := s.Load("broken")
	assert.ErrorIs(t, err, ErrCorrupt)

	incomplete := `{"serial":1,"monitors":[],"logical_monitors":[{"x":0,"y":0,"scale":1,"monitors":[{"connector":"HDMI-1"}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "partial.json"), []byte(incomplete), 0o600))
	_, err = s.Load("partial")
	assert.ErrorIs(t, err, ErrCorrupt)
}

// TestLoad_LegacyFile verifies files without optional maps still load.
func TestLoad_LegacyFile(t *testing.T) {
	s := newStore(t)
	legacy := `{"serial":3,"monitors":[{"connector":"DP-1","modes":[{"id":"m1","width":2560,"height":1440,"refresh_rate":59.95}]}],
"logical_monitors":[{"x":0,"y":0,"scale":1.0,"transform":0,"primary":true,"monitors":[{"connector":"DP-1","mode_id":"m1"}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "old.json"), []byte(legacy), 0o600))

	out, err := s.Load("old")
	require.NoError(t, err)
	assert.Equal(t, "m1", out.LogicalMonitors[0].Monitors[0].ModeID)
	assert.Nil(t, out.Properties)
}

// TestList_SortedWithErrors verifies listing is sorted and keeps broken files.
func TestList_SortedWithErrors(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"work", "home"} {
		_, err := s.Save(name, layout())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("[]x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "dir.json"), 0o755))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "bad", entries[0].Name)
	assert.ErrorIs(t, entries[0].Err, ErrCorrupt)
	assert.Equal(t, "home", entries[1].Name)
	assert.NoError(t, entries[1].Err)
	assert.Equal(t, 1, entries[1].Snapshot.MonitorCount())
	assert.Equal(t, "work", entries[2].Name)
}

// TestDelete_Missing verifies deleting an absent layout reports ErrNotFound.
func TestDelete_Missing(t *testing.T) {
	err := newStore(t).Delete("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestDelete_RemovesFromList verifies a deleted layout no longer lists.
func TestDelete_RemovesFromList(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("work", layout())
	require.NoError(t, err)
	_, err = s.Save("home", layout())
	require.NoError(t, err)

	require.NoError(t, s.Delete("work"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "home", entries[0].Name)
	_, err = s.Load("work")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestPath_InvalidNames verifies names that escape the directory are rejected.
func TestPath_InvalidNames(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "  ", "../etc", "a/b", ".hidden", "..", `a\b`} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
	_, err := s.Save("../escape", layout())
	assert.ErrorIs(t, err, ErrInvalidName)
}
