// Package jobs runs background work over Asynq: periodic reconciliation of
// the per-user ownership index from product ownership fields.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOwnershipRebuild recomputes a user's owned-product list from the
	// product records. An empty user id rebuilds every active user.
	TaskOwnershipRebuild = "ownership:rebuild"

	rebuildSweepConcurrency = 4
)

// OwnershipRebuildPayload selects whose list to rebuild.
type OwnershipRebuildPayload struct {
	UserID string `json:"user_id,omitempty"`
}

// NewOwnershipRebuildTask constructs an Asynq task.
func NewOwnershipRebuildTask(payload OwnershipRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOwnershipRebuild, data), nil
}

// OwnershipRebuilder recomputes one user's list.
type OwnershipRebuilder interface {
	Rebuild(ctx context.Context, userID string) error
}

// UserIDLister enumerates users for the rebuild-all path.
type UserIDLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// RebuildProcessor processes TaskOwnershipRebuild tasks.
type RebuildProcessor struct {
	logger *slog.Logger
	index  OwnershipRebuilder
	users  UserIDLister
}

// NewRebuildProcessor constructs a processor.
func NewRebuildProcessor(logger *slog.Logger, index OwnershipRebuilder, users UserIDLister) *RebuildProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebuildProcessor{logger: logger, index: index, users: users}
}

// ProcessTask handles one ownership rebuild task.
func (p *RebuildProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload OwnershipRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	if payload.UserID != "" {
		return p.rebuildOne(ctx, payload.UserID)
	}

	ids, err := p.users.ListIDs(ctx)
	if err != nil {
		return err
	}

	// A failed user is logged and counted, never aborts the sweep.
	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildSweepConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := p.rebuildOne(gctx, id); err != nil {
				failures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("ownership rebuild sweep finished",
		slog.Int("users", len(ids)),
		slog.Int64("failures", failures.Load()))
	return nil
}

func (p *RebuildProcessor) rebuildOne(ctx context.Context, userID string) error {
	if err := p.index.Rebuild(ctx, userID); err != nil {
		p.logger.Warn("ownership rebuild failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return err
	}
	return nil
}
