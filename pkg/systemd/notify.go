// Package systemd reports daemon state to systemd when alarmd runs under it.
// Outside systemd the notifications are silently skipped.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells systemd the daemon finished startup.
// Returns false when no notification socket is available.
func NotifyReady() bool {
	sent, _ := daemon.SdNotify(false, daemon.SdNotifyReady)
	return sent
}

// NotifyStopping tells systemd the daemon began shutting down.
func NotifyStopping() bool {
	sent, _ := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return sent
}
