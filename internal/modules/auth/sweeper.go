package auth

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically deletes revoked and long-expired refresh-token rows.
// Pure storage hygiene; token validity never depends on it.
type Sweeper struct {
	service  *Service
	interval time.Duration
	grace    time.Duration
}

func NewSweeper(service *Service, interval, grace time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval, grace: grace}
}

// Run blocks until ctx is cancelled. An in-flight delete finishes; only the
// sleep between sweeps is abandoned.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.service.SweepStale(ctx, s.grace)
			if err != nil {
				log.Printf("auth: refresh token sweep failed: %v", err)
				continue
			}
			log.Printf("auth: refresh token sweep removed %d rows", removed)
		}
	}
}
