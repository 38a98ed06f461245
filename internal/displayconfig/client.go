package displayconfig

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/frudas24/displayctl/internal/monitor"
)

// Default Mutter endpoint.
const (
	DefaultBusName    = "org.gnome.Mutter.DisplayConfig"
	DefaultObjectPath = "/org/gnome/Mutter/DisplayConfig"
	DefaultInterface  = "org.gnome.Mutter.DisplayConfig"
)

// unsignedProps are property keys the service reads as u. JSON decoding turns
// them into float64, so they are coerced back on the way out.
var unsignedProps = map[string]bool{
	"layout-mode": true,
	"color-mode":  true,
}

// unavailableErrors are bus error names meaning nobody is there to answer.
var unavailableErrors = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown": true,
	"org.freedesktop.DBus.Error.NameHasNoOwner": true,
	"org.freedesktop.DBus.Error.NoServer":       true,
	"org.freedesktop.DBus.Error.Disconnected":   true,
}

// Options selects the endpoint and per-call timeout.
type Options struct {
	BusName     string
	ObjectPath  string
	Interface   string
	CallTimeout time.Duration
}

// DefaultOptions returns the Mutter endpoint with a 10s call timeout.
func DefaultOptions() Options {
	return Options{
		BusName:     DefaultBusName,
		ObjectPath:  DefaultObjectPath,
		Interface:   DefaultInterface,
		CallTimeout: 10 * time.Second,
	}
}

// Client is a session-bus connection to the display configuration service.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	opts Options
	log  zerolog.Logger
}

var _ Service = (*Client)(nil)

// Dial connects to the session bus and checks the service is running.
func Dial(ctx context.Context, opts Options, log zerolog.Logger) (*Client, error) {
	if opts.BusName == "" || opts.ObjectPath == "" || opts.Interface == "" {
		return nil, errors.New("displayconfig: bus name, object path and interface are required")
	}
	path := dbus.ObjectPath(opts.ObjectPath)
	if !path.IsValid() {
		return nil, fmt.Errorf("displayconfig: invalid object path %q", opts.ObjectPath)
	}

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %w", ErrServiceUnavailable, err)
	}

	callCtx, cancel := withTimeout(ctx, opts.CallTimeout)
	defer cancel()
	var owned bool
	err = conn.BusObject().CallWithContext(callCtx, "org.freedesktop.DBus.NameHasOwner", 0, opts.BusName).Store(&owned)
	if err != nil {
		_ = conn.Close()
		return nil, mapCallError("NameHasOwner", err)
	}
	if !owned {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s is not running", ErrServiceUnavailable, opts.BusName)
	}

	log.Debug().Str("bus_name", opts.BusName).Str("object_path", opts.ObjectPath).Msg("displayconfig: connected")
	return &Client{
		conn: conn,
		obj:  conn.Object(opts.BusName, path),
		opts: opts,
		log:  log,
	}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// QueryState calls GetCurrentState and converts the reply.
func (c *Client) QueryState(ctx context.Context) (monitor.Snapshot, error) {
	ctx, cancel := withTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	call := c.obj.CallWithContext(ctx, c.opts.Interface+".GetCurrentState", 0)
	if call.Err != nil {
		return monitor.Snapshot{}, mapCallError("GetCurrentState", call.Err)
	}
	snap, err := ParseState(call.Body)
	if err != nil {
		return monitor.Snapshot{}, fmt.Errorf("GetCurrentState: %w", err)
	}
	c.log.Debug().
		Uint32("serial", snap.Serial).
		Int("monitors", len(snap.Monitors)).
		Int("logical_monitors", len(snap.LogicalMonitors)).
		Dur("took", time.Since(start)).
		Msg("displayconfig: state queried")
	return snap, nil
}

// ApplyConfig calls ApplyMonitorsConfig with the request.
func (c *Client) ApplyConfig(ctx context.Context, req ApplyRequest) error {
	ctx, cancel := withTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	logical := wireLogicalMonitors(req)
	c.log.Debug().
		Uint32("serial", req.Serial).
		Uint32("method", req.Method).
		Int("logical_monitors", len(logical)).
		Msg("displayconfig: applying")
	call := c.obj.CallWithContext(ctx, c.opts.Interface+".ApplyMonitorsConfig", 0,
		req.Serial, req.Method, logical, toVariants(req.Properties))
	if call.Err != nil {
		return mapCallError("ApplyMonitorsConfig", call.Err)
	}
	return nil
}

// wireMonitor marshals as (ssa{sv}).
type wireMonitor struct {
	Connector  string
	ModeID     string
	Properties map[string]dbus.Variant
}

// wireLogicalMonitor marshals as (iiduba(ssa{sv})).
type wireLogicalMonitor struct {
	X         int32
	Y         int32
	Scale     float64
	Transform uint32
	Primary   bool
	Monitors  []wireMonitor
}

// wireLogicalMonitors builds the call argument. Per-logical-monitor properties
// have no slot in the method signature and are not sent.
func wireLogicalMonitors(req ApplyRequest) []wireLogicalMonitor {
	out := make([]wireLogicalMonitor, 0, len(req.LogicalMonitors))
	for _, lm := range req.LogicalMonitors {
		w := wireLogicalMonitor{
			X:         lm.X,
			Y:         lm.Y,
			Scale:     lm.Scale,
			Transform: lm.Transform,
			Primary:   lm.Primary,
			Monitors:  make([]wireMonitor, 0, len(lm.Monitors)),
		}
		for _, m := range lm.Monitors {
			w.Monitors = append(w.Monitors, wireMonitor{
				Connector:  m.Connector,
				ModeID:     m.ModeID,
				Properties: toVariants(m.Properties),
			})
		}
		out = append(out, w)
	}
	return out
}

// toVariants converts a property map to a{sv}. Nil values and nested JSON
// containers are dropped.
func toVariants(props monitor.Properties) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case nil, []any, map[string]any:
			continue
		case float64:
			out[k] = numberVariant(k, val)
		default:
			if unsignedProps[k] {
				if n, ok := asUint32(val); ok {
					out[k] = dbus.MakeVariant(n)
					continue
				}
			}
			out[k] = dbus.MakeVariant(val)
		}
	}
	return out
}

func numberVariant(key string, f float64) dbus.Variant {
	whole := f == math.Trunc(f)
	switch {
	case unsignedProps[key] && whole && f >= 0 && f <= math.MaxUint32:
		return dbus.MakeVariant(uint32(f))
	case whole && f >= math.MinInt32 && f <= math.MaxInt32:
		return dbus.MakeVariant(int32(f))
	default:
		return dbus.MakeVariant(f)
	}
}

// mapCallError folds bus errors into the package error kinds.
func mapCallError(method string, err error) error {
	if errors.Is(err, dbus.ErrClosed) || unavailableErrors[dbusErrorName(err)] {
		return fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, method, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrServiceCallFailed, method, err)
}

func dbusErrorName(err error) string {
	var e dbus.Error
	if errors.As(err, &e) {
		return e.Name
	}
	var pe *dbus.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Name
	}
	return ""
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
