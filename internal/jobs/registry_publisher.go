package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sympep-tracker/internal/metrics"
	"sympep-tracker/internal/registry"
	"sympep-tracker/internal/repository"
)

// RegistryPublisher regenerates the index document whenever numbers have been
// assigned since the last successful write. Notifications stay pending until
// a write succeeds, so every assignment is published at least once.
type RegistryPublisher struct {
	repo      *repository.Repository
	writer    registry.Writer
	interval  time.Duration
	batchSize int
	stopChan  chan struct{}
	done      chan struct{}

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewRegistryPublisher creates a new registry publisher job
func NewRegistryPublisher(
	repo *repository.Repository,
	writer registry.Writer,
	interval time.Duration,
	batchSize int,
) *RegistryPublisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RegistryPublisher{
		repo:      repo,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the publish loop until Stop is called. It returns at once if
// the publisher is already running or was stopped.
func (rp *RegistryPublisher) Start() {
	rp.mu.Lock()
	if rp.running || rp.stopped {
		rp.mu.Unlock()
		return
	}
	rp.running = true
	rp.mu.Unlock()
	defer close(rp.done)

	log.Printf("[RegistryPublisher] Starting registry publisher (interval: %v)", rp.interval)

	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := rp.PublishOnce(context.Background()); err != nil {
				log.Printf("[RegistryPublisher] Publish failed: %v", err)
			}
		case <-rp.stopChan:
			log.Println("[RegistryPublisher] Stopping registry publisher")
			return
		}
	}
}

// Stop ends the publish loop and waits for Start to return, including any
// publish already in flight. Calling it more than once is safe.
func (rp *RegistryPublisher) Stop() {
	rp.mu.Lock()
	if !rp.stopped {
		rp.stopped = true
		close(rp.stopChan)
	}
	running := rp.running
	rp.mu.Unlock()

	if running {
		<-rp.done
	}
}

// PublishOnce writes the index if any notification is pending and returns
// how many notifications it acknowledged.
func (rp *RegistryPublisher) PublishOnce(ctx context.Context) (int, error) {
	pending, err := rp.repo.PendingRegistryNotifications(ctx, rp.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}

	proposals, err := rp.repo.ListNumberedProposals(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load numbered proposals: %w", err)
	}

	if err := rp.writer.Write(registry.Render(proposals, time.Now())); err != nil {
		metrics.RegistryPublishes.WithLabelValues("failure").Inc()
		if markErr := rp.repo.MarkNotificationsFailed(ctx, ids, err.Error()); markErr != nil {
			log.Printf("[RegistryPublisher] Error recording failed attempt: %v", markErr)
		}
		return 0, fmt.Errorf("failed to write registry: %w", err)
	}

	if err := rp.repo.MarkNotificationsPublished(ctx, ids, time.Now()); err != nil {
		// The document is out; the rows will be published again next tick
		return 0, fmt.Errorf("failed to acknowledge notifications: %w", err)
	}

	metrics.RegistryPublishes.WithLabelValues("success").Inc()
	log.Printf("[RegistryPublisher] Published registry with %d proposals (%d updates)", len(proposals), len(pending))

	return len(pending), nil
}
