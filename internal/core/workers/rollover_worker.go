package workers

import (
	"context"
	"log"
	"time"
)

const DefaultRolloverInterval = 15 * time.Minute

type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// RolloverWorker keeps the persisted snapshot in step with the calendar, so a
// streak that broke overnight is stored as broken even if nobody calls the API.
type RolloverWorker struct {
	tracker  Refresher
	interval time.Duration
	jobs     chan struct{}
}

func NewRolloverWorker(tracker Refresher, interval time.Duration) *RolloverWorker {
	if interval <= 0 {
		interval = DefaultRolloverInterval
	}
	return &RolloverWorker{
		tracker:  tracker,
		interval: interval,
		jobs:     make(chan struct{}, 1),
	}
}

func (w *RolloverWorker) Start(ctx context.Context) {
	go func() {
		log.Printf("Rollover Worker started in background (every %s)...", w.interval)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.process(ctx)
			case <-w.jobs:
				w.process(ctx)
			case <-ctx.Done():
				log.Println("Rollover Worker shutting down...")
				return
			}
		}
	}()
}

// Trigger asks for an immediate refresh. Requests made while one is already
// pending are coalesced.
func (w *RolloverWorker) Trigger() {
	select {
	case w.jobs <- struct{}{}:
	default:
	}
}

func (w *RolloverWorker) process(ctx context.Context) {
	changed, err := w.tracker.Refresh(ctx)
	if err != nil {
		log.Printf("Rollover Worker failed to persist snapshot: %v", err)
		return
	}
	if changed {
		log.Println("Rollover Worker updated the stored progress snapshot")
	}
}
