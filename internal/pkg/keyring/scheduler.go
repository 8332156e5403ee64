package keyring

import (
	"context"
	"log"
	"time"
)

// Scheduler periodically asks the manager to check key age and rotate when
// due. One loop goroutine owns the check, so runs never overlap.
type Scheduler struct {
	manager  *Manager
	interval time.Duration
}

func NewScheduler(manager *Manager, interval time.Duration) *Scheduler {
	return &Scheduler{manager: manager, interval: interval}
}

// Run blocks until ctx is cancelled. An in-flight check finishes its storage
// writes; only the sleep between checks is abandoned.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.manager.InitializeOrRotate(); err != nil {
				log.Printf("keyring: scheduled rotation check failed: %v", err)
			}
		}
	}
}
