package chathub

import (
	"context"
	"log/slog"
	"time"
)

// Pruner is implemented by ledgers that can drop records past retention.
type Pruner interface {
	Prune() int
}

// Sweeper evicts expired rooms on a fixed interval. One pass over the
// store per tick; there are no per-room timers.
type Sweeper struct {
	hub      *ManagerService
	interval time.Duration
	pruner   Pruner
	log      *slog.Logger
}

func NewSweeper(hub *ManagerService, interval time.Duration, pruner Pruner, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{hub: hub, interval: interval, pruner: pruner, log: log}
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("sweeper.started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one pass.
func (s *Sweeper) Sweep() {
	if n := s.hub.SweepExpired(); n > 0 {
		s.log.Info("sweeper.expired", "rooms", n)
	}
	if s.pruner != nil {
		if n := s.pruner.Prune(); n > 0 {
			s.log.Debug("sweeper.ledger_pruned", "records", n)
		}
	}
}
