package sync

import (
	"context"
	"errors"
	"time"

	"github.com/calderapos/register-edge/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type onlineSink interface {
	SetOnline(online bool)
}

// Prober watches central reachability and feeds transitions into the engine.
// It is the only component that actively generates traffic while the queue
// is empty, so the probe is a cheap health check, never a sale submit.
type Prober struct {
	central  pinger
	sink     onlineSink
	interval time.Duration
	logg     *logger.Logger
}

// NewProber builds a connectivity prober.
func NewProber(central pinger, sink onlineSink, interval time.Duration, logg *logger.Logger) (*Prober, error) {
	if central == nil {
		return nil, errors.New("central client is required")
	}
	if sink == nil {
		return nil, errors.New("online sink is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Prober{
		central:  central,
		sink:     sink,
		interval: interval,
		logg:     logg,
	}, nil
}

// Run probes until the context is canceled. The first probe fires
// immediately so startup state is known quickly.
func (p *Prober) Run(ctx context.Context) error {
	known := false
	online := false

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, p.interval)
		err := p.central.Ping(probeCtx)
		cancel()

		nowOnline := err == nil
		if !known || nowOnline != online {
			if nowOnline {
				p.logg.Info(ctx, "central reachable")
			} else {
				p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "central unreachable")
			}
			known = true
			online = nowOnline
			p.sink.SetOnline(nowOnline)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
