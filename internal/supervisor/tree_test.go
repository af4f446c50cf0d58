package supervisor_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loop struct {
	name string
	exit chan error
}

func newLoop(name string) *loop {
	return &loop{name: name, exit: make(chan error, 1)}
}

func (l *loop) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-l.exit:
		return err
	}
}

func (l *loop) String() string { return l.name }

func serve(ctx context.Context, tree *supervisor.Tree) <-chan error {
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Tree did not stop")
		return nil
	}
}

func TestCancelStopsTree(t *testing.T) {
	tree := supervisor.New(supervisor.Config{})
	tree.Add(newLoop("first"))
	tree.Add(newLoop("second"))

	ctx, cancel := context.WithCancel(context.Background())
	done := serve(ctx, tree)

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := wait(t, done)
	assert.False(t, errors.HasCode(err, supervisor.ErrServiceExited))
}

func TestFailingServiceStopsTree(t *testing.T) {
	tree := supervisor.New(supervisor.Config{})
	healthy := newLoop("healthy")
	broken := newLoop("broken")
	tree.Add(healthy)
	tree.Add(broken)

	done := serve(context.Background(), tree)

	cause := stderrors.New("socket gone")
	broken.exit <- cause

	err := wait(t, done)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, supervisor.ErrServiceExited))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broken")
}

func TestCleanReturnIsAFailure(t *testing.T) {
	tree := supervisor.New(supervisor.Config{})
	quitter := newLoop("quitter")
	tree.Add(quitter)

	done := serve(context.Background(), tree)
	quitter.exit <- nil

	err := wait(t, done)
	assert.True(t, errors.HasCode(err, supervisor.ErrServiceExited))
}
