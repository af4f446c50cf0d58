// Package supervisor runs the daemon's long-lived loops under one suture
// tree. Any loop that stops on its own, by returning or panicking, takes the
// whole process down with it.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"github.com/thejerf/suture/v4"
)

const DefaultShutdownTimeout = 5 * time.Second

// Service is a named long-lived loop that runs until its context is done.
type Service interface {
	suture.Service
	fmt.Stringer
}

type Config struct {
	ShutdownTimeout time.Duration
}

type Tree struct {
	root *suture.Supervisor
	log  logger.Logger

	mu     sync.Mutex
	failed error
}

func New(cfg Config) *Tree {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	t := &Tree{log: logger.Component("supervisor")}
	t.root = suture.New("backlightd", suture.Spec{
		EventHook:         t.event,
		Timeout:           cfg.ShutdownTimeout,
		PassThroughPanics: true,
	})

	return t
}

// Add registers svc. It starts with the tree, or right away when the tree is
// already running.
func (t *Tree) Add(svc Service) {
	t.root.Add(&failFast{svc: svc, tree: t})
}

// Serve runs every service until ctx is done. It returns ErrServiceExited,
// wrapping the cause, when a service stopped by itself.
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)

	t.mu.Lock()
	failed := t.failed
	t.mu.Unlock()

	if failed != nil {
		return errors.New().Wrap(ErrServiceExited, failed)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

func (t *Tree) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed == nil {
		t.failed = err
	}
}

func (t *Tree) event(e suture.Event) {
	t.log.Warn().Fields(e.Map()).Msg(e.String())
}

// failFast turns every unexpected return of svc into a tree termination
// instead of a restart.
type failFast struct {
	svc  Service
	tree *Tree
}

func (f *failFast) Serve(ctx context.Context) error {
	err := f.svc.Serve(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = errors.New().WithMessage(ErrServiceExited, "returned without error")
	}

	f.tree.log.Error().
		Str("service", f.svc.String()).
		Err(err).
		Msg("Service stopped unexpectedly, shutting down")
	f.tree.fail(fmt.Errorf("%s: %w", f.svc.String(), err))

	return suture.ErrTerminateSupervisorTree
}

func (f *failFast) String() string {
	return f.svc.String()
}
