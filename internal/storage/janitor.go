package storage

import (
	"context"
	"time"

	"reclist/internal/log"
)

// Janitor periodically trims the scan history and reclaims value log space
type Janitor struct {
	store    *HistoryStore
	keep     int
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewJanitor starts a janitor keeping the newest keep records. keep == 0 keeps everything.
func NewJanitor(store *HistoryStore, keep int, interval time.Duration) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Janitor{
		store:    store,
		keep:     keep,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go j.run()

	return j
}

// Close stops the janitor and waits for the cleanup goroutine to exit
func (j *Janitor) Close() {
	j.cancel()
	<-j.done
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one pruning and garbage collection pass
func (j *Janitor) Sweep() {
	logger := log.WithComponent("storage")

	if j.keep > 0 {
		removed, err := j.store.Prune(j.keep)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to prune scan history")
		} else if removed > 0 {
			logger.Debug().Int("removed", removed).Msg("pruned scan history")
		}
	}

	if err := j.store.RunGarbageCollection(); err != nil {
		logger.Warn().Err(err).Msg("value log garbage collection failed")
	}
}
