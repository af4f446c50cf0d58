package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/backlightd/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers GetInfo with percent, or with reply when set, and
// collects every command of one session.
func fakeDaemon(t *testing.T, percent uint8, reply *ipc.Command) (string, <-chan []ipc.Command) {
	t.Helper()

	dir, err := os.MkdirTemp("", "blctl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	received := make(chan []ipc.Command, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var commands []ipc.Command
		defer func() { received <- commands }()
		for {
			cmd, err := ipc.Decode(conn)
			if err != nil {
				return
			}
			commands = append(commands, cmd)

			switch {
			case cmd.Kind == ipc.KindNotifyShutdown:
				return
			case cmd.Kind == ipc.KindGetInfo && reply != nil:
				_ = ipc.Encode(conn, *reply)
			case cmd.Kind == ipc.KindGetInfo:
				_ = ipc.Encode(conn, ipc.GetInfoResponse(ipc.Info{BrightnessPercent: percent}))
			}
		}
	}()

	return path, received
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	return out.String(), err
}

func TestCommandOrder(t *testing.T) {
	path, received := fakeDaemon(t, 42, nil)

	out, err := execute(t, "-u", path, "--refresh", "--on", "-b", "-10%")
	require.NoError(t, err)
	assert.Equal(t, "Current brightness: 42%\n", out)

	assert.Equal(t, []ipc.Command{
		ipc.Refresh(),
		ipc.TurnOnMonitors(),
		ipc.DecreaseBrightness(10),
		ipc.GetInfo(),
		ipc.NotifyShutdown(),
	}, <-received)
}

func TestAutoAndJSON(t *testing.T) {
	path, received := fakeDaemon(t, 7, nil)

	out, err := execute(t, "--unix-socket-path", path, "--auto", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"brightness_percent":7}`, out)

	assert.Equal(t, []ipc.Command{
		ipc.SetMode(ipc.ModeAuto),
		ipc.GetInfo(),
		ipc.NotifyShutdown(),
	}, <-received)
}

func TestUnexpectedResponse(t *testing.T) {
	reply := ipc.Refresh()
	path, _ := fakeDaemon(t, 0, &reply)

	_, err := execute(t, "-u", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected response")
}

func TestConflictingFlags(t *testing.T) {
	_, err := execute(t, "--auto", "-b", "50%")
	require.Error(t, err)

	_, err = execute(t, "--off", "--on")
	require.Error(t, err)
}

func TestInvalidBrightnessIsRejectedBeforeConnecting(t *testing.T) {
	_, err := execute(t, "-u", filepath.Join(t.TempDir(), "missing.sock"), "-b", "150%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between -100% and 100%")
}

func TestDaemonNotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")

	_, err := execute(t, "-u", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
