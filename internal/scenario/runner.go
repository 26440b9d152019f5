// Package scenario replays JSONL operation scripts against an execution host.
package scenario

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"stablePool/internal/apperr"
	"stablePool/internal/host"
	"stablePool/internal/model"
	"stablePool/internal/storage"
)

const defaultBatchSize = 500

// Config controls where a run's output goes. Nil stores are skipped.
type Config struct {
	BatchSize int
	Sink      storage.EventSink
	Snapshots storage.SnapshotStore
	State     storage.StateStore
	// Errors receives one JSON line per script error.
	Errors io.Writer
	// ReplyTTL expires maker dispatches older than this many seconds at the end of a run.
	ReplyTTL uint64
}

// Summary counts the lines of a run.
type Summary struct {
	Total    int `json:"total"`
	Applied  int `json:"applied"`
	Expected int `json:"expected"`
	Failed   int `json:"failed"`
}

// Runner applies script lines one transaction at a time.
type Runner struct {
	cfg     Config
	chain   *host.Chain
	logger  *zap.Logger
	aliases aliases
	errs    *json.Encoder
	ops     uint64
}

func NewRunner(cfg Config, chain *host.Chain, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Sink == nil {
		cfg.Sink = storage.Discard{}
	}
	r := &Runner{
		cfg:     cfg,
		chain:   chain,
		logger:  logger,
		aliases: make(aliases),
	}
	if cfg.Errors != nil {
		r.errs = json.NewEncoder(cfg.Errors)
	}
	return r
}

// Alias returns the address recorded for a create_token or create_pair alias.
func (r *Runner) Alias(name string) (string, bool) {
	addr, ok := r.aliases[name]
	return addr, ok
}

// Restore loads persisted pools and resumes the clock of an earlier run.
func (r *Runner) Restore(ctx context.Context) error {
	if r.cfg.Snapshots != nil {
		snaps, err := r.cfg.Snapshots.LoadSnapshots(ctx)
		if err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
		for _, snap := range snaps {
			if err := r.chain.LoadSnapshot(snap); err != nil {
				return fmt.Errorf("restore pool %s: %w", snap.Address, err)
			}
		}
		if len(snaps) > 0 {
			r.logger.Info("pools restored", zap.Int("pools", len(snaps)))
		}
	}
	if r.cfg.State != nil {
		st, ok, err := r.cfg.State.Load(ctx)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		if ok {
			// The clock never runs backwards: keep whichever of the configured
			// start and the saved state is later.
			env := r.chain.Env()
			env.Height = max(env.Height, st.Height)
			env.Time = max(env.Time, st.Timestamp)
			if err := r.chain.SetEnv(env); err != nil {
				return fmt.Errorf("resume clock: %w", err)
			}
			r.ops = st.Ops
			r.logger.Info("clock resumed", zap.Uint64("height", env.Height), zap.Uint64("time", env.Time))
		}
	}
	return nil
}

// Run applies every line of in. Script errors are counted and written to the
// error output; only storage failures and cancellation stop the run.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Summary, error) {
	var sum Summary

	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Total++

		var op Op
		if err := json.Unmarshal(line, &op); err != nil {
			sum.Failed++
			r.scriptError(model.ScriptError{Line: lineNo, Error: err.Error()})
			continue
		}

		err := r.apply(ctx, op)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sum, ctxErr
		}
		r.ops++
		switch {
		case op.ExpectError != "":
			got := "none"
			if err != nil {
				got = apperr.KindOf(err).String()
			}
			if got == op.ExpectError {
				sum.Expected++
				break
			}
			sum.Failed++
			msg := fmt.Sprintf("expected %s, got %s", op.ExpectError, got)
			if err != nil {
				msg += ": " + err.Error()
			}
			r.scriptError(model.ScriptError{Line: lineNo, Op: op.Op, Error: msg})
		case err != nil:
			sum.Failed++
			r.scriptError(model.ScriptError{Line: lineNo, Op: op.Op, Error: err.Error()})
		default:
			sum.Applied++
		}

		if sum.Total%r.cfg.BatchSize == 0 {
			if err := r.flush(ctx); err != nil {
				return sum, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("scan script: %w", err)
	}

	if r.cfg.ReplyTTL > 0 {
		if _, err := r.chain.Expire(ctx, r.cfg.ReplyTTL); err != nil {
			r.logger.Warn("expire dispatches", zap.Error(err))
		}
	}
	if err := r.flush(ctx); err != nil {
		return sum, err
	}
	if err := r.save(ctx); err != nil {
		return sum, err
	}

	r.logger.Info("scenario complete",
		zap.Int("total", sum.Total),
		zap.Int("applied", sum.Applied),
		zap.Int("expected", sum.Expected),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (r *Runner) flush(ctx context.Context) error {
	events := r.chain.DrainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := r.cfg.Sink.PutEvents(ctx, events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func (r *Runner) save(ctx context.Context) error {
	if r.cfg.Snapshots != nil {
		if err := r.cfg.Snapshots.SaveSnapshots(ctx, r.chain.Snapshots()); err != nil {
			return fmt.Errorf("save snapshots: %w", err)
		}
	}
	if r.cfg.State != nil {
		env := r.chain.Env()
		st := model.RunnerState{Height: env.Height, Timestamp: env.Time, Ops: r.ops}
		if err := r.cfg.State.Save(ctx, st); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return nil
}

func (r *Runner) scriptError(e model.ScriptError) {
	r.logger.Debug("script error", zap.Int("line", e.Line), zap.String("op", e.Op), zap.String("error", e.Error))
	if r.errs == nil {
		return
	}
	if err := r.errs.Encode(e); err != nil {
		r.logger.Warn("write script error", zap.Error(err))
	}
}
