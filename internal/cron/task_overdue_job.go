package cron

import (
	"context"
	"errors"
	"time"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// TaskOverdueJob flips past-due pending tasks to overdue every hour.
type TaskOverdueJob struct {
	tasks    overdueSweeper
	interval time.Duration
}

// NewTaskOverdueJob wires the task sweep into the cron worker.
func NewTaskOverdueJob(tasks overdueSweeper, interval time.Duration) (*TaskOverdueJob, error) {
	if tasks == nil {
		return nil, errors.New("task service required")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &TaskOverdueJob{tasks: tasks, interval: interval}, nil
}

func (j *TaskOverdueJob) Name() string { return "task-overdue" }

func (j *TaskOverdueJob) Interval() time.Duration { return j.interval }

func (j *TaskOverdueJob) Run(ctx context.Context) error {
	_, err := j.tasks.SweepOverdue(ctx)
	return err
}
