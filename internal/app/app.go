// Package app wires the display service, the reconciler and the layout store together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/frudas24/displayctl/internal/displayconfig"
	"github.com/frudas24/displayctl/internal/reconcile"
	"github.com/frudas24/displayctl/internal/store"
)

// Dialer opens the display service. The returned closer releases it.
type Dialer func(ctx context.Context) (displayconfig.Service, func() error, error)

// App runs the user-facing operations. Results go to the output writer;
// diagnostics go to the logger.
type App struct {
	store *store.Store
	dial  Dialer
	out   io.Writer
	log   zerolog.Logger

	svc    displayconfig.Service
	closer func() error

	success *color.Color
	warn    *color.Color
	heading *color.Color
}

// New creates an application with its dependencies wired. The service is
// dialled on first use so store-only operations never touch the bus.
func New(st *store.Store, dial Dialer, out io.Writer, log zerolog.Logger, colorOutput bool) (*App, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if dial == nil {
		return nil, errors.New("service dialer is required")
	}
	if out == nil {
		return nil, errors.New("output writer is required")
	}
	a := &App{
		store:   st,
		dial:    dial,
		out:     out,
		log:     log,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		heading: color.New(color.Bold),
	}
	if !colorOutput {
		for _, c := range []*color.Color{a.success, a.warn, a.heading} {
			c.DisableColor()
		}
	}
	return a, nil
}

// Close releases the service connection if one was opened.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	a.svc = nil
	return err
}

// service dials once and caches the connection.
func (a *App) service(ctx context.Context) (displayconfig.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, closer, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	a.closer = closer
	return svc, nil
}

// Save captures the live layout and stores it under name.
func (a *App) Save(ctx context.Context, name string) error {
	if _, err := a.store.Path(name); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	snap, err := svc.QueryState(ctx)
	if err != nil {
		return fmt.Errorf("capture current state: %w", err)
	}
	path, err := a.store.Save(name, snap)
	if err != nil {
		return fmt.Errorf("save configuration %q: %w", name, err)
	}
	a.log.Debug().Str("name", name).Str("path", path).Int("monitors", snap.MonitorCount()).Msg("app: layout saved")
	a.success.Fprintf(a.out, "Configuration saved as '%s' to %s\n", name, path)
	return nil
}

// Load applies the layout stored under name. The stored layout is first
// reconciled against a fresh live state; the live serial is the one sent.
// With dryRun the reconciled layout is printed and nothing is applied.
func (a *App) Load(ctx context.Context, name string, dryRun bool) error {
	saved, err := a.store.Load(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w in %s", err, a.store.Dir())
		}
		return err
	}

	svc, err := a.service(ctx)
	if err != nil {
		if dryRun && errors.Is(err, displayconfig.ErrServiceUnavailable) {
			a.log.Warn().Err(err).Msg("app: previewing without live state")
			a.warn.Fprintln(a.out, "Warning: display service unavailable; showing the stored layout unchecked")
			a.preview(name, saved.Serial, saved.LogicalMonitors)
			return nil
		}
		return err
	}
	live, err := svc.QueryState(ctx)
	if err != nil {
		return fmt.Errorf("query live state: %w", err)
	}

	adjusted, report, err := reconcile.Reconcile(saved, live)
	if err != nil {
		a.log.Debug().Err(err).Str("name", name).Msg("app: reconcile failed")
		return err
	}
	for _, sub := range report.Substitutions {
		a.warn.Fprintf(a.out, "Warning: Mode %s no longer available for %s\n", sub.From, sub.Connector)
		fmt.Fprintf(a.out, "Using alternative mode %s for %s\n", sub.To, sub.Connector)
	}
	a.log.Debug().
		Str("name", name).
		Uint32("live_serial", live.Serial).
		Int("substitutions", len(report.Substitutions)).
		Msg("app: reconciled")

	if dryRun {
		a.preview(name, saved.Serial, adjusted.LogicalMonitors)
		return nil
	}

	fmt.Fprintln(a.out, "Applying monitor configuration...")
	if err := svc.ApplyConfig(ctx, displayconfig.Render(adjusted, live.Serial)); err != nil {
		return fmt.Errorf("apply configuration %q: %w", name, err)
	}
	a.success.Fprintf(a.out, "Configuration '%s' applied successfully\n", name)
	return nil
}

// List prints every stored layout with its placements.
func (a *App) List() error {
	entries, err := a.store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(a.out, "No configurations found in %s\n", a.store.Dir())
		return nil
	}
	a.heading.Fprintln(a.out, "Saved configurations:")
	for _, e := range entries {
		if e.Err != nil {
			a.warn.Fprintf(a.out, "  %s: (error reading file: %v)\n", e.Name, e.Err)
			continue
		}
		fmt.Fprintf(a.out, "  %s: %d monitor(s)\n", e.Name, e.Snapshot.MonitorCount())
		writeLogical(a.out, "    ", e.Snapshot.LogicalMonitors)
	}
	return nil
}

// Current prints the live monitors, their modes and the active placements.
func (a *App) Current(ctx context.Context) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	snap, err := svc.QueryState(ctx)
	if err != nil {
		return fmt.Errorf("get current configuration: %w", err)
	}

	a.heading.Fprintln(a.out, "Current monitor configuration:")
	fmt.Fprintf(a.out, "Serial: %d\n", snap.Serial)

	fmt.Fprintln(a.out, "\nAvailable monitors:")
	for _, m := range snap.Monitors {
		fmt.Fprintf(a.out, "  %s:\n", m.Connector)
		fmt.Fprintf(a.out, "    Available modes: %d\n", len(m.Modes))
		for i, mode := range m.Modes {
			if i == modesShown {
				fmt.Fprintf(a.out, "      ... and %d more\n", len(m.Modes)-modesShown)
				break
			}
			fmt.Fprintf(a.out, "      %s%s\n", mode, modeFlags(mode))
		}
	}

	fmt.Fprintln(a.out, "\nActive logical monitors:")
	writeLogical(a.out, "  ", snap.LogicalMonitors)
	return nil
}

// Delete removes the layout stored under name.
func (a *App) Delete(name string) error {
	if err := a.store.Delete(name); err != nil {
		return err
	}
	a.success.Fprintf(a.out, "Configuration '%s' deleted\n", name)
	return nil
}
