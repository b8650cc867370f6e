package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRebuilder struct {
	mu      sync.Mutex
	rebuilt []string
	failFor map[string]error
}

func (s *stubRebuilder) Rebuild(ctx context.Context, userID string) error {
	if err, ok := s.failFor[userID]; ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuilt = append(s.rebuilt, userID)
	return nil
}

type stubLister struct {
	ids []string
	err error
}

func (s *stubLister) ListIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

func TestProcessTaskSingleUser(t *testing.T) {
	rebuilder := &stubRebuilder{}
	processor := NewRebuildProcessor(nil, rebuilder, &stubLister{})

	task, err := NewOwnershipRebuildTask(OwnershipRebuildPayload{UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, processor.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"u1"}, rebuilder.rebuilt)
}

func TestProcessTaskSingleUserFailurePropagates(t *testing.T) {
	rebuilder := &stubRebuilder{failFor: map[string]error{"u1": errors.New("db down")}}
	processor := NewRebuildProcessor(nil, rebuilder, &stubLister{})

	task, err := NewOwnershipRebuildTask(OwnershipRebuildPayload{UserID: "u1"})
	require.NoError(t, err)

	assert.Error(t, processor.ProcessTask(context.Background(), task))
}

func TestProcessTaskSweepAllUsers(t *testing.T) {
	rebuilder := &stubRebuilder{}
	lister := &stubLister{ids: []string{"u1", "u2", "u3"}}
	processor := NewRebuildProcessor(nil, rebuilder, lister)

	task, err := NewOwnershipRebuildTask(OwnershipRebuildPayload{})
	require.NoError(t, err)

	require.NoError(t, processor.ProcessTask(context.Background(), task))
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, rebuilder.rebuilt)
}

func TestProcessTaskSweepToleratesPerUserFailures(t *testing.T) {
	rebuilder := &stubRebuilder{failFor: map[string]error{"u2": errors.New("db down")}}
	lister := &stubLister{ids: []string{"u1", "u2", "u3"}}
	processor := NewRebuildProcessor(nil, rebuilder, lister)

	task, err := NewOwnershipRebuildTask(OwnershipRebuildPayload{})
	require.NoError(t, err)

	// A failed user does not abort the sweep.
	require.NoError(t, processor.ProcessTask(context.Background(), task))
	assert.ElementsMatch(t, []string{"u1", "u3"}, rebuilder.rebuilt)
}

func TestProcessTaskSweepListFailure(t *testing.T) {
	lister := &stubLister{err: errors.New("db down")}
	processor := NewRebuildProcessor(nil, &stubRebuilder{}, lister)

	task, err := NewOwnershipRebuildTask(OwnershipRebuildPayload{})
	require.NoError(t, err)

	assert.Error(t, processor.ProcessTask(context.Background(), task))
}

func TestProcessTaskMalformedPayloadSkipsRetry(t *testing.T) {
	processor := NewRebuildProcessor(nil, &stubRebuilder{}, &stubLister{})

	task := asynq.NewTask(TaskOwnershipRebuild, []byte("not json"))
	err := processor.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
