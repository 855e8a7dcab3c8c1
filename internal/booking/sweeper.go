package booking

import (
	"context"
	"log"
	"time"
)

// StartSweeper runs ExpireStale on a fixed interval until ctx is cancelled.
// Intended to run in its own goroutine from main.
func StartSweeper(ctx context.Context, svc *Service, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("booking-sweeper: running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("booking-sweeper: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			n, err := svc.ExpireStale(ctx)
			if err != nil {
				log.Printf("booking-sweeper: sweep failed after %d expiries: %v", n, err)
				continue
			}
			if n > 0 {
				log.Printf("booking-sweeper: cancelled %d expired bookings", n)
			}
		}
	}
}
