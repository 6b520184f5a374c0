package scheduler

import (
	"context"
	"errors"
	"strings"

	"OdysseyFarmer/internal/notifier"
)

// HandleCommand processes a chat command and returns a reply.
func (c *Controller) HandleCommand(ctx context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	// "/status@SomeBot" in group chats
	cmd, _, _ = strings.Cut(strings.ToLower(cmd), "@")

	switch cmd {
	case "/status", "status":
		return notifier.FormatStatus(c.Status(ctx))
	case "/start", "start":
		err := c.Start(ctx, *c.opts.Defaults)
		switch {
		case err == nil:
			return "▶️ worker started"
		case errors.Is(err, ErrAlreadyRunning):
			return "worker is already running"
		default:
			return "❌ start failed: " + notifier.Escape(err.Error())
		}
	case "/stop", "stop":
		if !c.Running() {
			return "worker is not running"
		}
		c.Stop()
		return "⏹ stop requested, the loop halts after the current action"
	case "/logs", "logs":
		return notifier.FormatLogs(c.journal.Recent(10))
	default:
		return notifier.HelpText
	}
}
