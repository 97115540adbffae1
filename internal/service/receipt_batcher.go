package service

import (
	"log"
	"sync"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
)

// DefaultReceiptDelay is the silence window before queued read marks are
// flushed as one batch.
const DefaultReceiptDelay = 2 * time.Second

// ReceiptBatcher collects read marks and flushes them as a single
// batched upsert once marks stop arriving for the configured delay.
// Without it a busy chat produces one write per message per viewer.
type ReceiptBatcher struct {
	repo  repository.ReadReceiptRepositoryInterface
	delay time.Duration

	mu    sync.Mutex
	queue map[models.ReadReceipt]struct{}
	timer *time.Timer
}

func NewReceiptBatcher(repo repository.ReadReceiptRepositoryInterface, delay time.Duration) *ReceiptBatcher {
	if delay <= 0 {
		delay = DefaultReceiptDelay
	}
	return &ReceiptBatcher{
		repo:  repo,
		delay: delay,
		queue: make(map[models.ReadReceipt]struct{}),
	}
}

// Mark queues a (message, profile) read pair. Each call restarts the
// debounce window, so a burst of marks produces exactly one flush.
func (b *ReceiptBatcher) Mark(messageID, profileID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue[models.ReadReceipt{MessageID: messageID, ProfileID: profileID}] = struct{}{}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.Flush)
	} else {
		b.timer.Reset(b.delay)
	}
}

// Flush writes everything queued in one repository call. Safe to call
// directly on shutdown.
func (b *ReceiptBatcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	batch := make([]models.ReadReceipt, 0, len(b.queue))
	for rec := range b.queue {
		batch = append(batch, rec)
	}
	b.queue = make(map[models.ReadReceipt]struct{})
	b.mu.Unlock()

	if err := b.repo.UpsertBatch(batch); err != nil {
		// Receipts are advisory; a failed flush drops the batch rather
		// than retrying.
		log.Printf("read receipt flush failed count=%d: %v", len(batch), err)
	}
}

// Pending returns the number of queued, unflushed marks.
func (b *ReceiptBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
