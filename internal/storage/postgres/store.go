package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stablePool/internal/model"
)

// Store provides Postgres persistence for pool events, snapshots and runner state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	run_id      TEXT   NOT NULL,
	seq         BIGINT NOT NULL,
	height      BIGINT NOT NULL,
	block_time  BIGINT NOT NULL,
	pool        TEXT   NOT NULL DEFAULT '',
	action      TEXT   NOT NULL,
	sender      TEXT   NOT NULL DEFAULT '',
	success     BOOLEAN NOT NULL,
	error_kind  TEXT   NOT NULL DEFAULT '',
	error       TEXT   NOT NULL DEFAULT '',
	attributes  JSONB,
	messages    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS pool_snapshots (
	address     TEXT PRIMARY KEY,
	snapshot    JSONB  NOT NULL,
	height      BIGINT NOT NULL,
	block_time  BIGINT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS runner_state (
	name        TEXT PRIMARY KEY,
	height      BIGINT NOT NULL,
	block_time  BIGINT NOT NULL,
	ops         BIGINT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the tables used by the store.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

// EventSink writes events under one run id.
type EventSink struct {
	Store *Store
	RunID string
}

func (e *EventSink) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	return e.Store.InsertEvents(ctx, e.RunID, events)
}

// InsertEvents stores a batch of events. Replayed sequence numbers are ignored.
func (s *Store) InsertEvents(ctx context.Context, runID string, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				run_id, seq, height, block_time, pool, action, sender, success, error_kind, error, attributes, messages
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			runID,
			int64(ev.Seq),
			int64(ev.Height),
			int64(ev.Timestamp),
			ev.Pool,
			ev.Action,
			ev.Sender,
			ev.Success,
			ev.ErrorKind,
			ev.Error,
			ev.Attributes,
			ev.Messages,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, "insert pool event")
		}
	}
	return nil
}

// SaveSnapshots inserts or updates pool records.
func (s *Store) SaveSnapshots(ctx context.Context, snaps []model.PoolSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(`
			INSERT INTO pool_snapshots (address, snapshot, height, block_time, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (address)
			DO UPDATE SET
				snapshot = EXCLUDED.snapshot,
				height = EXCLUDED.height,
				block_time = EXCLUDED.block_time,
				updated_at = now()
		`,
			snap.Address,
			snap,
			int64(snap.Height),
			int64(snap.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snaps {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, "upsert pool snapshot")
		}
	}
	return nil
}

// LoadSnapshots returns every stored pool record ordered by address.
func (s *Store) LoadSnapshots(ctx context.Context) ([]model.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT snapshot FROM pool_snapshots ORDER BY address`)
	if err != nil {
		return nil, errors.Wrap(err, "query pool snapshots")
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PoolSnapshot, error) {
		var snap model.PoolSnapshot
		err := row.Scan(&snap)
		return snap, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan pool snapshots")
	}
	return snaps, nil
}

// LoadState returns the runner clock stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (model.RunnerState, bool, error) {
	if name == "" {
		return model.RunnerState{}, false, errors.New("state name required")
	}
	var (
		height, ts, ops int64
		updated         time.Time
	)
	row := s.pool.QueryRow(ctx, `SELECT height, block_time, ops, updated_at FROM runner_state WHERE name=$1`, name)
	if err := row.Scan(&height, &ts, &ops, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RunnerState{}, false, nil
		}
		return model.RunnerState{}, false, errors.Wrap(err, "load runner state")
	}
	return model.RunnerState{
		Height:    uint64(height),
		Timestamp: uint64(ts),
		Ops:       uint64(ops),
		UpdatedAt: updated.UTC().Format(time.RFC3339Nano),
	}, true, nil
}

// SaveState upserts the runner clock for name.
func (s *Store) SaveState(ctx context.Context, name string, st model.RunnerState) error {
	if name == "" {
		return errors.New("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runner_state (name, height, block_time, ops, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET height = EXCLUDED.height, block_time = EXCLUDED.block_time, ops = EXCLUDED.ops, updated_at = now()
	`, name, int64(st.Height), int64(st.Timestamp), int64(st.Ops))
	if err != nil {
		return errors.Wrap(err, "save runner state")
	}
	return nil
}

// StateStore stores the runner clock in the runner_state table.
type StateStore struct {
	Store *Store
	Name  string
}

func (s *StateStore) Load(ctx context.Context) (model.RunnerState, bool, error) {
	if s == nil || s.Store == nil {
		return model.RunnerState{}, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *StateStore) Save(ctx context.Context, st model.RunnerState) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, st)
}
