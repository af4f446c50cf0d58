// Package server accepts client sessions on the control socket and routes
// their commands to the brightness controller and the mode scheduler.
package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/history"
	"codeberg.org/mutker/backlightd/internal/ipc"
	"codeberg.org/mutker/backlightd/internal/logger"
	"codeberg.org/mutker/backlightd/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultRefreshEvery is the minimum spacing of client triggered refreshes.
const DefaultRefreshEvery = time.Second

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

type Config struct {
	RefreshEvery time.Duration
	Now          func() time.Time
}

type Server struct {
	listener   net.Listener
	brightness Brightness
	refresher  Refresher
	modes      ModeNotifier
	recorder   history.Recorder
	limiter    *rate.Limiter
	now        func() time.Time
	log        logger.Logger

	mu       sync.Mutex
	sessions map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func New(
	cfg Config,
	listener net.Listener,
	brightness Brightness,
	refresher Refresher,
	modes ModeNotifier,
	recorder history.Recorder,
) *Server {
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = DefaultRefreshEvery
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Server{
		listener:   listener,
		brightness: brightness,
		refresher:  refresher,
		modes:      modes,
		recorder:   recorder,
		limiter:    rate.NewLimiter(rate.Every(cfg.RefreshEvery), 1),
		now:        cfg.Now,
		log:        logger.Component("server"),
		sessions:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections until ctx is done, handling each one in its own
// goroutine. On return the listener and all open sessions are closed.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()
	defer s.closeSessions()

	s.log.Info().Str("addr", s.listener.Addr().String()).Msg("Listening for clients")

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return errors.New().Wrap(ErrLoopExited, err)
			}

			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("A client tried to connect but accepting failed")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.Handle(ctx, conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, conn)
	conn.Close()
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	for conn := range s.sessions {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Handle runs one client session: commands are processed in order until the
// client ends the session, closes the connection or sends a malformed
// message. Failing commands are logged and the session goes on.
func (s *Server) Handle(ctx context.Context, conn net.Conn) {
	sessionID := uuid.NewString()

	reader := bufio.NewReader(conn)
	for {
		cmd, err := ipc.Decode(reader)
		switch {
		case errors.Is(err, io.EOF):
			s.log.Debug().Str("session", sessionID).Msg("Client closed the connection")
			return
		case err != nil:
			s.log.Warn().Str("session", sessionID).Err(err).Msg("Unable to decode command, ending session")
			return
		case cmd.Kind == ipc.KindNotifyShutdown:
			s.log.Debug().Str("session", sessionID).Msg("Client ended the session")
			return
		}

		metrics.RecordCommand(cmd.Kind.String())
		s.log.Debug().Str("session", sessionID).Str("command", cmd.String()).Msg("Command received")

		if err := s.dispatch(ctx, conn, cmd); err != nil {
			s.log.Error().
				Str("session", sessionID).
				Str("command", cmd.String()).
				Str("error_code", string(errors.CodeOf(err))).
				Err(err).
				Msg("Command handling failed")
			if errors.HasCode(err, ErrUnexpected) {
				return
			}
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, cmd ipc.Command) error {
	switch cmd.Kind {
	case ipc.KindSetBrightness:
		s.modes.Notify(ipc.ModeManual)
		err := s.brightness.Set(ctx, cmd.Percent)
		s.record(ctx, cmd.Percent, err)
		return err
	case ipc.KindIncreaseBrightness:
		s.modes.Notify(ipc.ModeManual)
		err := s.brightness.Increase(ctx, cmd.Percent)
		s.recordAverage(ctx, err)
		return err
	case ipc.KindDecreaseBrightness:
		s.modes.Notify(ipc.ModeManual)
		err := s.brightness.Decrease(ctx, cmd.Percent)
		s.recordAverage(ctx, err)
		return err
	case ipc.KindTurnOffMonitors:
		return s.brightness.TurnOff(ctx)
	case ipc.KindTurnOnMonitors:
		return s.brightness.TurnOn(ctx)
	case ipc.KindRefresh:
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		s.refresher.Refresh(ctx)
		return nil
	case ipc.KindSetMode:
		s.modes.Notify(cmd.Mode)
		return nil
	case ipc.KindGetInfo:
		return s.reply(conn)
	default:
		return errors.New().WithData(ErrUnexpected, cmd.Kind.String())
	}
}

// reply answers GetInfo. With no monitor known the answer is 0.
func (s *Server) reply(conn net.Conn) error {
	average, err := s.brightness.Average()
	if err != nil {
		s.log.Debug().Err(err).Msg("No brightness to report, answering 0")
		average = 0
	}

	return ipc.Encode(conn, ipc.GetInfoResponse(ipc.Info{BrightnessPercent: average}))
}

func (s *Server) recordAverage(ctx context.Context, err error) {
	average, _ := s.brightness.Average()
	s.record(ctx, average, err)
}

// record stores a client change. Target is the requested percent for Set and
// the resulting average for relative changes.
func (s *Server) record(ctx context.Context, target uint8, applyErr error) {
	snapshot := history.Capture(s.now(), history.SourceCommand, ipc.ModeManual.String(), target, applyErr != nil, s.brightness)
	if err := s.recorder.Record(ctx, snapshot); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record brightness history")
	}
}

func (*Server) String() string {
	return "command-server"
}
