// Package conn probes server reachability on an interval and reports
// connectivity transitions to the sync engine.
package conn

import (
	"context"
	"time"
)

// Pinger is the reachability probe, typically the remote client's Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober polls the pinger and emits a value on every transition between
// connected and disconnected. The first probe result is always emitted so
// the consumer learns the initial state.
type Prober struct {
	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
}

// NewProber returns a Prober polling at the given interval.
func NewProber(p Pinger, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Prober{pinger: p, interval: interval, probeTimeout: 3 * time.Second}
}

// Watch starts probing and returns the transition stream. The stream closes
// when ctx is done.
func (p *Prober) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last, known bool
		probe := func() {
			pctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
			err := p.pinger.Ping(pctx)
			cancel()

			online := err == nil
			if known && online == last {
				return
			}
			last, known = online, true
			select {
			case out <- online:
			case <-ctx.Done():
			}
		}

		probe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()

	return out
}
