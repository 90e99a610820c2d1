// Package notify delivers best-effort desktop notifications for executed
// trades. Delivery failures are logged and never interrupt the monitor.
package notify

import (
	"context"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/logger"
)

// Notifier sends a user-facing notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string) error { return nil }

// Desktop shells out to the platform notification tool: osascript on macOS,
// notify-send elsewhere. Missing tools downgrade to a log line.
type Desktop struct {
	logger *logger.Logger
}

// NewDesktop creates a desktop notifier.
func NewDesktop(log *logger.Logger) *Desktop {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Desktop{logger: log}
}

// Notify implements Notifier.
func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	var cmd *exec.Cmd

	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("osascript"); err == nil {
			script := "display notification " + appleScriptQuote(body) + " with title " + appleScriptQuote(title)
			cmd = exec.CommandContext(ctx, "osascript", "-e", script)
		}
	} else if _, err := exec.LookPath("notify-send"); err == nil {
		cmd = exec.CommandContext(ctx, "notify-send", title, body)
	}

	if cmd == nil {
		d.logger.Info("notification (no desktop tool available)",
			zap.String("title", title),
			zap.String("body", body))

		return nil
	}

	if err := cmd.Run(); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("title", title),
			zap.Error(err))
	}

	return nil
}

func appleScriptQuote(s string) string {
	quoted := make([]rune, 0, len(s)+2)
	quoted = append(quoted, '"')

	for _, r := range s {
		if r == '"' || r == '\\' {
			quoted = append(quoted, '\\')
		}

		quoted = append(quoted, r)
	}

	return string(append(quoted, '"'))
}
