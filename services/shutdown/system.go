package shutdown

import (
	"bytes"
	"fmt"
	"log/slog"
	"log/syslog"
	"os/exec"

	"github.com/godbus/dbus"

	"pipower-go/types"
)

const (
	logindDest   = "org.freedesktop.login1"
	logindPath   = dbus.ObjectPath("/org/freedesktop/login1")
	logindMethod = "org.freedesktop.login1.Manager.PowerOff"
)

// System is the Linux SystemController: wall(1) for broadcasts, the local
// syslog daemon for the audit entry and logind for power-off.
type System struct {
	log    *slog.Logger
	dryRun bool
}

var _ SystemController = (*System)(nil)

func NewSystem(cfg types.SystemConfig, log *slog.Logger) *System {
	return &System{log: log, dryRun: cfg.DryRun}
}

func (s *System) Broadcast(msg string) error {
	if s.dryRun {
		s.log.Info("dry run", "call", "wall", "msg", msg)
		return nil
	}
	var out bytes.Buffer
	cmd := exec.Command("wall", msg)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wall: %w: %s", err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}

func (s *System) AuditLog(tag, msg string) error {
	if s.dryRun {
		s.log.Info("dry run", "call", "syslog", "tag", tag, "msg", msg)
		return nil
	}
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_USER, tag)
	if err != nil {
		return fmt.Errorf("syslog: %w", err)
	}
	defer w.Close()
	return w.Notice(msg)
}

// ShutdownNow asks logind to power the machine off. interactive=false: no
// polkit prompt.
func (s *System) ShutdownNow() error {
	if s.dryRun {
		s.log.Info("dry run", "call", logindMethod)
		return nil
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("system bus: %w", err)
	}
	obj := conn.Object(logindDest, logindPath)
	if call := obj.Call(logindMethod, 0, false); call.Err != nil {
		return fmt.Errorf("%s: %w", logindMethod, call.Err)
	}
	return nil
}
