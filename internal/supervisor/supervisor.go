// Package supervisor spawns and watches monitor child processes. Children
// speak the typed JSONL message protocol on stdout; everything else they print
// belongs on stderr.
package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/monitor"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Supervisor launches monitor children and multiplexes their messages.
type Supervisor struct {
	logger *logger.Logger
}

// New creates a supervisor.
func New(log *logger.Logger) *Supervisor {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Supervisor{logger: log}
}

// Child is one running monitor process.
type Child struct {
	Ticker string

	cmd      *exec.Cmd
	messages chan monitor.Message
	done     chan struct{}
	waitErr  error

	sawFinal bool
}

// Start launches `binary args...` as a monitor child for ticker and begins
// consuming its stdout.
func (s *Supervisor) Start(ctx context.Context, ticker, binary string, args ...string) (*Child, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, "failed to open child stdout", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeUnknown, err, "failed to start monitor for %s", ticker)
	}

	child := &Child{
		Ticker:   ticker,
		cmd:      cmd,
		messages: make(chan monitor.Message, 64),
		done:     make(chan struct{}),
	}

	s.logger.Info("monitor child started",
		zap.String("ticker", ticker),
		zap.Int("pid", cmd.Process.Pid))

	go func() {
		s.consume(stdout, child)
		close(child.messages)

		child.waitErr = cmd.Wait()

		if !child.sawFinal {
			s.logger.Error("monitor child died without a final message",
				zap.String("ticker", ticker),
				zap.Error(child.waitErr))
		}

		close(child.done)
	}()

	return child, nil
}

// consume parses stdout lines into messages, dropping garbled lines. A child
// mixing diagnostics into stdout must not take the supervisor down.
func (s *Supervisor) consume(r io.Reader, child *Child) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg monitor.Message
		if err := json.Unmarshal(line, &msg); err != nil || msg.Type == "" {
			s.logger.Warn("dropping garbled child output",
				zap.String("ticker", child.Ticker),
				zap.ByteString("line", line))

			continue
		}

		if msg.Type == monitor.MessageTypeFatal {
			child.sawFinal = true
		}

		child.messages <- msg
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("child stdout read failed",
			zap.String("ticker", child.Ticker),
			zap.Error(err))
	}
}

// Messages returns the child's message stream. The channel closes when the
// child's stdout ends.
func (c *Child) Messages() <-chan monitor.Message {
	return c.messages
}

// Alive reports whether the child process is still running.
func (c *Child) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the child exits and returns its exit error.
func (c *Child) Wait() error {
	<-c.done

	return c.waitErr
}

// Stop asks the child to exit with SIGTERM and kills it after the grace
// period.
func (c *Child) Stop(grace time.Duration) error {
	if !c.Alive() {
		return nil
	}

	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return c.kill()
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(grace):
		return c.kill()
	}
}

func (c *Child) kill() error {
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to kill monitor child", err)
	}

	<-c.done

	return nil
}
