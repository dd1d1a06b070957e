// internal/tasks/zeebe.go
package tasks

import (
	"context"
	"fmt"

	"hris-cloud/internal/common/logger"
)

// ProcessStarter creates workflow instances; *camunda.Client satisfies it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, vars interface{}) (int64, error)
}

// Zeebe starts one workflow instance per task. The score-applicant job
// worker picks the job up from the broker.
type Zeebe struct {
	starter   ProcessStarter
	processID string
	logger    logger.Logger
}

func NewZeebe(starter ProcessStarter, processID string, log logger.Logger) *Zeebe {
	return &Zeebe{
		starter:   starter,
		processID: processID,
		logger:    logger.Component(log, "tasks.zeebe"),
	}
}

func (z *Zeebe) Dispatch(ctx context.Context, task ScoreTask) error {
	key, err := z.starter.StartProcess(ctx, z.processID, task)
	if err != nil {
		return fmt.Errorf("start %s for %s: %w", z.processID, task.ApplicantID, err)
	}
	z.logger.Debug("process instance created", map[string]interface{}{
		"applicantId":        task.ApplicantID,
		"processInstanceKey": key,
	})
	return nil
}
