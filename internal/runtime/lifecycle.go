// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// StateCreated is the state before launch.
	StateCreated State = iota
	// StateRunning is entered once the unit has been launched.
	StateRunning
	// StateCompleted is entered once the exit status is known.
	StateCompleted
	// StateTornDown is entered after teardown, for units that have one.
	StateTornDown
)

type (
	// State is a lifecycle state of an execution unit.
	State int

	// Unit is one process or container driven by a Lifecycle. Stream and
	// Wait are called concurrently.
	Unit interface {
		// Launch starts the unit.
		Launch(ctx context.Context) error
		// Stream relays output until the unit closes it.
		Stream(ctx context.Context, stdout, stderr io.Writer) error
		// Wait blocks until the unit terminates.
		Wait(ctx context.Context) error
		// ExitStatus returns the status of the terminated unit.
		ExitStatus(ctx context.Context) (ExitCode, error)
	}

	// TearDowner is implemented by units that must be released explicitly.
	TearDowner interface {
		Teardown(ctx context.Context) error
	}

	// Lifecycle drives units through launch, stream, wait, status and teardown.
	Lifecycle struct {
		logger  *log.Logger
		observe func(State)
	}

	// LifecycleOption configures a Lifecycle.
	LifecycleOption func(*Lifecycle)
)

// String returns the name of the State.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WithTransitionObserver registers fn to be called on every state change.
func WithTransitionObserver(fn func(State)) LifecycleOption {
	return func(l *Lifecycle) { l.observe = fn }
}

// NewLifecycle creates a Lifecycle. A nil logger discards output.
func NewLifecycle(logger *log.Logger, opts ...LifecycleOption) *Lifecycle {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := &Lifecycle{logger: logger, observe: func(State) {}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Drive runs unit to completion and returns its exit status. Any failure is
// an *OrchestrationError. A unit implementing TearDowner is torn down exactly
// once after a successful launch, whatever happens next; a teardown failure
// is logged and never returned.
func (l *Lifecycle) Drive(ctx context.Context, unit Unit, stdout, stderr io.Writer) (code ExitCode, err error) {
	l.transition(StateCreated)
	if err := unit.Launch(ctx); err != nil {
		return 0, orchestration(StageLaunch, err)
	}
	l.transition(StateRunning)

	if td, ok := unit.(TearDowner); ok {
		defer func() {
			// Teardown must run even when ctx was canceled mid-run.
			if tdErr := td.Teardown(context.WithoutCancel(ctx)); tdErr != nil {
				l.logger.Warn("failed to tear down execution unit", "err", tdErr)
			}
			l.transition(StateTornDown)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := unit.Stream(gctx, stdout, stderr); err != nil {
			return orchestration(StageStream, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := unit.Wait(gctx); err != nil {
			return orchestration(StageWait, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	code, err = unit.ExitStatus(ctx)
	if err != nil {
		return 0, orchestration(StageInspect, err)
	}
	l.logger.Debug("execution unit completed", "exit_code", code)
	l.transition(StateCompleted)
	return code, nil
}

func (l *Lifecycle) transition(s State) {
	l.logger.Debug("lifecycle transition", "state", s)
	l.observe(s)
}
