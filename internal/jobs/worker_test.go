package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soulkun/soulkun-backend/internal/data/repos/testutil"
	types "github.com/soulkun/soulkun-backend/internal/domain"
	domjobs "github.com/soulkun/soulkun-backend/internal/domain/jobs"
	"github.com/soulkun/soulkun-backend/internal/platform/dbctx"
)

// recordingRunRepo captures status updates without a database.
type recordingRunRepo struct {
	updates map[uuid.UUID]map[string]interface{}
}

func (f *recordingRunRepo) Create(dbc dbctx.Context, rows []*types.JobRun) ([]*types.JobRun, error) {
	return rows, nil
}

func (f *recordingRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	return nil, nil
}

func (f *recordingRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (f *recordingRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if f.updates == nil {
		f.updates = map[uuid.UUID]map[string]interface{}{}
	}
	f.updates[id] = updates
	return nil
}

func (f *recordingRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error { return nil }

func TestExecuteMarksPanickingHandlerFailed(t *testing.T) {
	reg := NewRegistry()
	reg.Register("panics.always", func(ctx context.Context, run *types.JobRun) (map[string]interface{}, error) {
		panic("handler blew up")
	})
	repo := &recordingRunRepo{}
	w := NewWorker(testutil.Logger(t), WorkerConfig{}, repo, reg)

	run := &types.JobRun{ID: uuid.New(), JobType: "panics.always", Attempts: 1}
	w.execute(context.Background(), run)

	got, ok := repo.updates[run.ID]
	if !ok {
		t.Fatalf("expected a status update for the run")
	}
	if got["status"] != domjobs.StatusFailed {
		t.Fatalf("expected failed status, got %v", got["status"])
	}
	msg, _ := got["error"].(string)
	if !strings.Contains(msg, "handler blew up") {
		t.Fatalf("expected panic message in the job error, got %q", msg)
	}
}

func TestExecuteFailsUnknownTypeTerminally(t *testing.T) {
	repo := &recordingRunRepo{}
	w := NewWorker(testutil.Logger(t), WorkerConfig{MaxAttempts: 3}, repo, NewRegistry())

	run := &types.JobRun{ID: uuid.New(), JobType: "nobody.registered", Attempts: 1}
	w.execute(context.Background(), run)

	got, ok := repo.updates[run.ID]
	if !ok {
		t.Fatalf("expected a status update for the run")
	}
	if got["status"] != domjobs.StatusFailed || got["attempts"] != 3 {
		t.Fatalf("expected terminal failure, got %v", got)
	}
}
