package history

import (
	"context"
	"time"
)

// Recorder stores brightness changes applied by the daemon.
type Recorder interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository is the storage behind a Recorder.
type Repository interface {
	Record(snapshot *Snapshot) error
	Flush() error
	Close() error
}

// Source tells what triggered a brightness change.
type Source string

const (
	SourceAuto    Source = "auto"
	SourceCommand Source = "command"
)

// Snapshot describes one applied brightness change.
type Snapshot struct {
	Timestamp time.Time
	Source    Source
	Mode      string
	Target    uint8
	Average   uint8
	Monitors  int
	Failed    bool
}
