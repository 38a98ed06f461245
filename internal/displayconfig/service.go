// Package displayconfig talks to the compositor's display configuration service
// and translates its state to and from monitor snapshots.
package displayconfig

import (
	"context"
	"errors"

	"github.com/frudas24/displayctl/internal/monitor"
)

var (
	// ErrServiceUnavailable means the bus or the display service cannot be reached.
	ErrServiceUnavailable = errors.New("display service unavailable")
	// ErrServiceCallFailed means a call returned an error or a malformed payload.
	ErrServiceCallFailed = errors.New("display service call failed")
)

// Apply methods understood by ApplyMonitorsConfig.
const (
	MethodVerify     uint32 = 0
	MethodTemporary  uint32 = 1
	MethodPersistent uint32 = 2
)

// ApplyMethod is the method code every rendered request carries. The service
// checks the serial and monitor set before applying and refuses stale requests.
const ApplyMethod = MethodTemporary

// Service is the capability surface used by the rest of the tool.
type Service interface {
	QueryState(ctx context.Context) (monitor.Snapshot, error)
	ApplyConfig(ctx context.Context, req ApplyRequest) error
}

// MonitorAssignment drives one connector with one mode.
type MonitorAssignment struct {
	Connector  string
	ModeID     string
	Properties monitor.Properties
}

// LogicalMonitorConfig is one logical monitor in an apply request.
type LogicalMonitorConfig struct {
	X          int32
	Y          int32
	Scale      float64
	Transform  uint32
	Primary    bool
	Monitors   []MonitorAssignment
	Properties monitor.Properties
}

// ApplyRequest is the typed form of an ApplyMonitorsConfig call.
type ApplyRequest struct {
	Serial          uint32
	Method          uint32
	LogicalMonitors []LogicalMonitorConfig
	Properties      monitor.Properties
}
