// Package bridge owns the external sensor-reading process and exposes its
// output as a line stream. The provider is any line-buffered subprocess
// that writes one JSON snapshot per line to stdout; stderr is folded into
// the same stream so provider errors surface in the feed log.
package bridge

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"codeberg.org/mutker/hwmond/internal/errors"
	"codeberg.org/mutker/hwmond/internal/logger"
)

const (
	// How long a terminated provider gets to exit before being killed.
	gracefulExitTimeout = time.Second

	// Pause after exit so the OS can release file locks still held by
	// the provider's loaded libraries.
	lockReleasePause = 500 * time.Millisecond
)

// Bridge runs the provider process. A bridge that failed to launch stays
// unavailable; callers continue on an empty snapshot instead of crashing.
type Bridge struct {
	command string
	args    []string

	cmd       *exec.Cmd
	out       *bufio.Reader
	pipe      *os.File
	available atomic.Bool

	closeMu sync.Mutex
	closed  bool
}

func New(command string, args ...string) *Bridge {
	return &Bridge{command: command, args: args}
}

// Start launches the provider. Failure is reported but leaves the bridge
// usable as an unavailable channel.
func (b *Bridge) Start() error {
	pr, pw, err := os.Pipe()
	if err != nil {
		return errors.Wrap(errors.ErrBridgeStart, err)
	}

	cmd := exec.Command(b.command, b.args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()

		return errors.Wrap(errors.ErrBridgeStart, err)
	}

	// The child holds its own copy of the write end. Closing ours makes
	// reads return EOF as soon as the provider exits.
	pw.Close()

	b.cmd = cmd
	b.pipe = pr
	b.out = bufio.NewReader(pr)
	b.available.Store(true)

	logger.Info().Msgf("Sensor bridge started: %s (pid %d)", b.command, cmd.Process.Pid)

	return nil
}

// Available reports whether the provider was launched and not yet closed.
func (b *Bridge) Available() bool {
	return b.available.Load()
}

// ReadLine blocks until the next feed line. It returns io.EOF once the
// provider's output ends; a trailing line without a newline is still
// delivered before that.
func (b *Bridge) ReadLine() (string, error) {
	if !b.available.Load() {
		return "", errors.New(errors.ErrBridgeUnavailable)
	}

	line, err := b.out.ReadString('\n')
	if err != nil {
		if len(line) > 0 && err == io.EOF {
			return line, nil
		}
		if err == io.EOF {
			return "", io.EOF
		}

		return "", errors.Wrap(errors.ErrBridgeRead, err)
	}

	return line, nil
}

// Close terminates the provider: ask nicely, wait up to a bounded timeout,
// kill if it lingers, wait for the exit, then pause before returning. After
// Close returns the process is confirmed gone. Safe to call more than once.
func (b *Bridge) Close() error {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.available.Store(false)

	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()

	if err := b.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Terminate is not supported everywhere; fall through to kill.
		_ = b.cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(gracefulExitTimeout):
		logger.Warn().Msgf("Sensor bridge did not exit within %s, killing", gracefulExitTimeout)
		_ = b.cmd.Process.Kill()
		<-done
	}

	time.Sleep(lockReleasePause)
	b.pipe.Close()

	logger.Info().Msg("Sensor bridge closed")

	return nil
}
