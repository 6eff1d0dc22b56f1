// Package jobs contains the scheduled jobs run by the server.
package jobs

import (
	"context"

	"github.com/taskquest/taskquest/internal/application/command"
)

// DecayStreaksName is the registered name of the streak decay sweep.
const DecayStreaksName = "decay_streaks"

// DecayStreaksJob resets the streaks of users who missed a day.
type DecayStreaksJob struct {
	handler *command.DecayStreaksHandler
}

// NewDecayStreaksJob wraps handler as a scheduled job.
func NewDecayStreaksJob(handler *command.DecayStreaksHandler) *DecayStreaksJob {
	return &DecayStreaksJob{handler: handler}
}

func (j *DecayStreaksJob) Name() string { return DecayStreaksName }

func (j *DecayStreaksJob) Description() string {
	return "Reset streaks of users with no completion since yesterday"
}

func (j *DecayStreaksJob) Run(ctx context.Context) error {
	_, err := j.handler.Handle(ctx)
	return err
}
