// Package telemetry samples resource metrics for the instance whose live
// view is currently active.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bastionmc/bastion/internal/bridge"
	"github.com/bastionmc/bastion/internal/ringlog"
)

const defaultInterval = time.Second

// MetricsFetcher is the single command-channel call the poller needs. A nil
// reading with nil error means the instance has no running process.
type MetricsFetcher interface {
	InstanceMetrics(ctx context.Context, instanceID string) (*bridge.Metrics, error)
}

// Poller runs at most one sampling loop at a time, scoped to one target
// instance. Watch stops any previous loop before starting the next, and a
// response that arrives after its target changed is discarded instead of
// applied.
type Poller struct {
	fetch    MetricsFetcher
	log      zerolog.Logger
	interval time.Duration

	mu      sync.RWMutex
	target  string
	gen     uint64
	cancel  context.CancelFunc
	history *ringlog.Ring[float64]
	running bool
}

// New builds a poller. interval <= 0 uses the one second default.
func New(fetch MetricsFetcher, log zerolog.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		fetch:    fetch,
		log:      log,
		interval: interval,
		history:  ringlog.NewRing[float64](ringlog.DetailCapacity),
	}
}

// Watch starts sampling instanceID, replacing any previous target. The loop
// stops when ctx is cancelled, Stop is called, or a later Watch supersedes
// it.
func (p *Poller) Watch(ctx context.Context, instanceID string) {
	if instanceID == "" {
		p.Stop()
		return
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.gen++
	gen := p.gen
	p.target = instanceID
	p.history = ringlog.NewRing[float64](ringlog.DetailCapacity)
	p.running = false
	p.mu.Unlock()

	go p.loop(loopCtx, gen, instanceID)
}

// Stop ends sampling and clears the history and the inferred run state.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.target = ""
	p.history = ringlog.NewRing[float64](ringlog.DetailCapacity)
	p.running = false
}

// Target reports the instance currently being sampled, empty when stopped.
func (p *Poller) Target() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.target
}

// Running reports whether the last sample saw a live process.
func (p *Poller) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// History returns a copy of the sampled memory readings in MB, oldest
// first.
func (p *Poller) History() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.history.Items()
}

func (p *Poller) loop(ctx context.Context, gen uint64, instanceID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.sample(ctx, gen, instanceID)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) sample(ctx context.Context, gen uint64, instanceID string) {
	metrics, err := p.fetch.InstanceMetrics(ctx, instanceID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return // stale response, target changed while the request was out
	}
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Str("instance", instanceID).Msg("metrics poll failed")
		}
		p.running = false
		return
	}
	if metrics == nil {
		// No reading means no process; a transient miss keeps prior history.
		p.running = false
		return
	}
	p.running = true
	p.history.Append(metrics.RSSMB)
}
