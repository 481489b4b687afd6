// Package session owns the launcher core's shared state surface: the log
// registry, the busy-key tracker, the progress tracker, the catalog
// orchestrator and the telemetry poller, all constructed once per running
// application and passed to consumers by reference. It also runs the event
// subscription manager that keeps those containers in sync with the
// daemon's event feed.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/bus"
	"github.com/bastionmc/bastion/internal/busykey"
	"github.com/bastionmc/bastion/internal/catalog"
	"github.com/bastionmc/bastion/internal/progress"
	"github.com/bastionmc/bastion/internal/ringlog"
	"github.com/bastionmc/bastion/internal/telemetry"
)

// StatusKind classifies a user-facing status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusError
)

// Notifier receives transient user-facing status lines, e.g. for a toast.
// Every status line is also appended to the launcher log.
type Notifier func(kind StatusKind, text string)

const commandTimeout = 60 * time.Second

// Session is the process-wide state context, one per running application.
type Session struct {
	cmd bridge.Commander
	log zerolog.Logger

	Logs     *ringlog.Registry
	Busy     *busykey.Tracker
	Progress *progress.Tracker
	Catalog  *catalog.Orchestrator
	Metrics  *telemetry.Poller

	mu       sync.Mutex
	notify   Notifier
	config   *bridge.AppConfig
	unsubs   []bus.Unsubscribe
	loginGen uint64
}

// New constructs a session with empty state containers. notify may be nil.
func New(cmd bridge.Commander, log zerolog.Logger, notify Notifier) *Session {
	s := &Session{
		cmd:      cmd,
		log:      log,
		notify:   notify,
		Logs:     ringlog.NewRegistry(),
		Busy:     &busykey.Tracker{},
		Progress: progress.NewTracker(),
		Metrics:  telemetry.New(cmd, log, 0),
	}
	s.Catalog = catalog.New(cmd, s.Busy, func(ok bool, text string) {
		if ok {
			s.Status(StatusSuccess, text)
		} else {
			s.Status(StatusError, text)
		}
	}, log)
	return s
}

// SetNotifier replaces the status notifier. A nil notifier keeps status
// lines flowing to the launcher log only.
func (s *Session) SetNotifier(notify Notifier) {
	s.mu.Lock()
	s.notify = notify
	s.mu.Unlock()
}

// Status appends one line to the launcher log and forwards it to the
// notifier. Every failure in the core produces exactly one such line.
func (s *Session) Status(kind StatusKind, text string) {
	s.Logs.AppendLauncher(text)
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify(kind, text)
	}
}

// RefreshConfig re-reads the shared configuration snapshot from the daemon.
func (s *Session) RefreshConfig(ctx context.Context) error {
	cfg, err := s.cmd.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	return nil
}

// Config returns the last loaded configuration snapshot, nil before the
// first successful refresh.
func (s *Session) Config() *bridge.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil
	}
	dup := *s.config
	dup.Instances = append([]bridge.Instance(nil), s.config.Instances...)
	dup.Accounts = append([]bridge.Account(nil), s.config.Accounts...)
	return &dup
}

// WatchInstance makes instanceID the active live view: catalog state is
// reset to the instance's context and telemetry polling moves to it.
func (s *Session) WatchInstance(ctx context.Context, inst bridge.Instance) {
	s.Catalog.SetInstance(inst.ID, inst.GameVersion, inst.Loader)
	s.Metrics.Watch(ctx, inst.ID)
}

// Unwatch leaves the live view: telemetry stops and its history is cleared.
func (s *Session) Unwatch() {
	s.Metrics.Stop()
}
