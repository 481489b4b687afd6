package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/bus"
	"github.com/bastionmc/bastion/internal/progress"
)

// Attach subscribes the session's handlers to the fixed topic set. Handles
// are collected so Detach can release every one exactly once.
func (s *Session) Attach(b *bus.Bus) {
	routes := []struct {
		topic   string
		handler bus.Handler
	}{
		{bridge.TopicInstanceLog, s.onInstanceLog},
		{bridge.TopicInstallProgress, s.onInstallProgress},
		{bridge.TopicInstallDone, s.onInstallDone},
		{bridge.TopicInstallError, s.onInstallError},
		{bridge.TopicLaunchStarted, s.onLaunchStarted},
		{bridge.TopicLaunchError, s.onLaunchError},
		{bridge.TopicLaunchEnded, s.onLaunchEnded},
		{bridge.TopicLoginCode, s.onLoginCode},
		{bridge.TopicLoginError, s.onLoginError},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range routes {
		s.unsubs = append(s.unsubs, b.Subscribe(r.topic, r.handler))
	}
}

// Detach releases every held unsubscribe handle exactly once. Entries whose
// subscription never completed are skipped; calling Detach again is a
// no-op.
func (s *Session) Detach() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

// Malformed payloads are dropped without logging a user-visible line; they
// must neither panic nor corrupt state.

func (s *Session) onInstanceLog(payload []byte) {
	var ev bridge.InstanceLogEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.Debug().Err(err).Msg("dropping malformed instance log event")
		return
	}
	if ev.InstanceID == "" || ev.Line == "" {
		return
	}
	line := ev.Line
	if ev.Stream == "stderr" {
		line = "[stderr] " + line
	}
	s.Logs.AppendInstance(ev.InstanceID, line)
	// Every instance line is mirrored into the aggregated game log.
	s.Logs.AppendGame(line)
}

func (s *Session) onInstallProgress(payload []byte) {
	var ev bridge.ProgressEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.Debug().Err(err).Msg("dropping malformed progress event")
		return
	}
	if ev.Stage == "" {
		return
	}
	s.Progress.Apply(progress.Snapshot{
		Stage:   ev.Stage,
		Message: ev.Message,
		Current: ev.Current,
		Total:   ev.Total,
		Detail:  ev.Detail,
	})
}

func (s *Session) onInstallDone([]byte) {
	s.Progress.Finish()
	s.Status(StatusSuccess, "Installation finished")
}

func (s *Session) onInstallError(payload []byte) {
	s.Progress.Finish()
	var ev bridge.InstallErrorEvent
	_ = json.Unmarshal(payload, &ev)
	if ev.Message == "" {
		ev.Message = "Installation failed"
	}
	s.Status(StatusError, ev.Message)
}

func (s *Session) onLaunchStarted([]byte) {
	s.Progress.Finish()
	s.Status(StatusSuccess, "Instance started")
}

func (s *Session) onLaunchError([]byte) {
	s.Progress.Finish()
	s.Status(StatusError, "Launch failed")
}

func (s *Session) onLaunchEnded(payload []byte) {
	var ev bridge.LaunchEndedEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.InstanceID == "" {
		return
	}
	s.Logs.AppendLauncher(fmt.Sprintf("Instance %s stopped", ev.InstanceID))
}

func (s *Session) onLoginCode(payload []byte) {
	var ev bridge.LoginCodeEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Code == "" {
		return
	}

	s.mu.Lock()
	s.loginGen++
	gen := s.loginGen
	s.mu.Unlock()

	// The exchange is a blocking command call; run it off the event pump.
	go s.exchangeLoginCode(gen, ev.Code)
}

func (s *Session) onLoginError(payload []byte) {
	var ev bridge.LoginErrorEvent
	_ = json.Unmarshal(payload, &ev)
	if ev.Message == "" {
		ev.Message = "Sign-in failed"
	}
	s.Status(StatusError, ev.Message)
}

// exchangeLoginCode trades the callback code for a session. When several
// code events race, the last one to start wins; a stale completion is
// discarded rather than applied.
func (s *Session) exchangeLoginCode(gen uint64, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	account, err := s.cmd.ExchangeLoginCode(ctx, code)

	s.mu.Lock()
	stale := gen != s.loginGen
	s.mu.Unlock()
	if stale {
		return
	}

	if err != nil {
		s.Status(StatusError, fmt.Sprintf("Sign-in failed: %v", err))
		return
	}
	if err := s.RefreshConfig(ctx); err != nil {
		s.log.Warn().Err(err).Msg("config refresh after sign-in failed")
	}
	s.Status(StatusSuccess, fmt.Sprintf("Signed in as %s", account.Name))
}
