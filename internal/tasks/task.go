// Package tasks delivers background scoring work from the submission path to
// the score-applicant handler, in-process or through a broker.
package tasks

import (
	"context"
	"errors"
	"time"

	"hris-cloud/internal/common/metrics"
	"hris-cloud/internal/common/observability"
)

const KindScore = "score-applicant"

var ErrQueueClosed = errors.New("TASK_QUEUE_CLOSED")

// ScoreTask asks for one applicant's CV to be screened.
type ScoreTask struct {
	ApplicantID string `json:"applicantId"`
	ProjectID   string `json:"projectId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CVText      string `json:"cvText"`
}

// HandlerFunc processes one task. A returned error asks the backend to
// redeliver when it can.
type HandlerFunc func(ctx context.Context, task ScoreTask) error

// Dispatcher hands a task to a background executor and returns without
// waiting for it to run.
type Dispatcher interface {
	Dispatch(ctx context.Context, task ScoreTask) error
}

// run executes handler and records the outcome in both metric stacks.
func run(ctx context.Context, obs *observability.Observability, handler HandlerFunc, task ScoreTask) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(KindScore).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(KindScore).Dec()

	err := handler(ctx, task)

	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(KindScore).Observe(elapsed.Seconds())
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(KindScore, "HANDLER_ERROR").Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(KindScore).Inc()
	}
	obs.RecordTask(ctx, KindScore, status, elapsed)
	return err
}
