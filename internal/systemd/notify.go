// Package systemd reports service readiness and liveness to systemd when
// camseq runs as a notify unit. Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
	notify func(unsetEnv bool, state string) (bool, error)
}

// NewNotifier creates a notifier logging to logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger, notify: daemon.SdNotify}
}

// Ready tells systemd the capture service is up.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// RunWatchdog pings the systemd watchdog at half the configured interval
// while healthy returns true. It returns when ctx is done or immediately
// when the unit has no watchdog.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() bool) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Failed to read systemd watchdog settings", "error", err)
		return
	}
	if interval == 0 {
		return
	}
	n.watchdogLoop(ctx, interval/2, healthy)
}

func (n *Notifier) watchdogLoop(ctx context.Context, every time.Duration, healthy func() bool) {
	n.logger.Debug("Systemd watchdog enabled", "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy == nil || healthy() {
				n.send(daemon.SdNotifyWatchdog)
			}
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}
