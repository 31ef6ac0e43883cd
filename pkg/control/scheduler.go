package control

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/reflow/pkg/logger"
)

// Task is one cooperative unit of work. Step must return promptly.
type Task interface {
	Name() string
	Step() error
}

// Scheduler steps its tasks round-robin in a fixed order on the calling
// goroutine.
type Scheduler struct {
	tasks []Task

	// Halt is called once when Run returns.
	Halt func()
	// Idle is slept between passes; zero spins.
	Idle time.Duration
	Log  *logger.Logger

	passes uint64
}

func NewScheduler(tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks: tasks,
		Log:   logger.Nop(),
	}
}

// Passes returns the number of completed passes.
func (s *Scheduler) Passes() uint64 { return s.passes }

// Step runs every task once. The first error (or panic) aborts the pass.
func (s *Scheduler) Step() error {
	for _, t := range s.tasks {
		if err := s.step(t); err != nil {
			return err
		}
	}
	s.passes++
	return nil
}

func (s *Scheduler) step(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %s panicked: %v", ErrInvariant, t.Name(), r)
		}
	}()
	if err := t.Step(); err != nil {
		return fmt.Errorf("task %s: %w", t.Name(), err)
	}
	return nil
}

// Run steps the tasks until ctx is cancelled or a task fails. The halt hook
// runs on every exit path. Cancellation is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	defer func() {
		if s.Halt != nil {
			s.Halt()
		}
	}()

	var idle *time.Timer
	if s.Idle > 0 {
		idle = time.NewTimer(s.Idle)
		defer idle.Stop()
	}

	for {
		if ctx.Err() != nil {
			s.Log.Infow("scheduler stopped", "passes", s.passes)
			return nil
		}

		if err := s.Step(); err != nil {
			s.Log.Errorw("scheduler halted", "error", err, "passes", s.passes)
			return err
		}

		if idle == nil {
			continue
		}
		idle.Reset(s.Idle)
		select {
		case <-ctx.Done():
		case <-idle.C:
		}
	}
}
