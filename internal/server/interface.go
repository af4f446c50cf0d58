package server

import (
	"context"

	"codeberg.org/mutker/backlightd/internal/history"
	"codeberg.org/mutker/backlightd/internal/ipc"
)

// Brightness is the set of monitor operations a client can trigger.
type Brightness interface {
	Set(ctx context.Context, percent uint8) error
	Increase(ctx context.Context, delta uint8) error
	Decrease(ctx context.Context, delta uint8) error
	TurnOff(ctx context.Context) error
	TurnOn(ctx context.Context) error
	history.State
}

// Refresher re-enumerates the monitors.
type Refresher interface {
	Refresh(ctx context.Context)
}

// ModeNotifier receives mode changes caused by client commands.
type ModeNotifier interface {
	Notify(mode ipc.Mode)
}
