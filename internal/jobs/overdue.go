package jobs

import (
	"context"
	"log"
	"time"

	"propertydesk/internal/config"
	"propertydesk/internal/repository"
)

// StartOverdueSweep periodically flips pending payments past their due
// date to OVERDUE.
func StartOverdueSweep(ctx context.Context, cfg config.Config, store *repository.Store) {
	if !cfg.OverdueSweepEnabled {
		return
	}
	interval := cfg.OverdueSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				marked, err := store.MarkOverduePayments(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("overdue sweep error: %v", err)
					continue
				}
				if marked > 0 {
					log.Printf("overdue sweep marked %d payments", marked)
				}
			}
		}
	}()
}
