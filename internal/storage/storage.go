package storage

import (
	"context"

	"stablePool/internal/model"
)

// EventSink receives executed transactions.
type EventSink interface {
	PutEvents(ctx context.Context, events []model.PoolEvent) error
}

// SnapshotStore persists pool records between runs.
type SnapshotStore interface {
	LoadSnapshots(ctx context.Context) ([]model.PoolSnapshot, error)
	SaveSnapshots(ctx context.Context, snaps []model.PoolSnapshot) error
}

// StateStore persists the clock a run ended at.
type StateStore interface {
	Load(ctx context.Context) (model.RunnerState, bool, error)
	Save(ctx context.Context, st model.RunnerState) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) PutEvents(context.Context, []model.PoolEvent) error { return nil }
