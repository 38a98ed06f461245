// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"

	"github.com/frudas24/displayctl/internal/displayconfig"
	"github.com/frudas24/displayctl/internal/monitor"
)

// FakeService implements displayconfig.Service and records calls for tests.
type FakeService struct {
	State    monitor.Snapshot
	QueryErr error
	ApplyErr error

	Queries int
	Applied []displayconfig.ApplyRequest
}

// Ensure FakeService implements the interface.
var _ displayconfig.Service = (*FakeService)(nil)

// QueryState returns a copy of State, or QueryErr.
func (f *FakeService) QueryState(ctx context.Context) (monitor.Snapshot, error) {
	f.Queries++
	if err := ctx.Err(); err != nil {
		return monitor.Snapshot{}, err
	}
	if f.QueryErr != nil {
		return monitor.Snapshot{}, f.QueryErr
	}
	return f.State.Clone(), nil
}

// ApplyConfig records the request and returns ApplyErr.
func (f *FakeService) ApplyConfig(ctx context.Context, req displayconfig.ApplyRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Applied = append(f.Applied, req)
	return f.ApplyErr
}
