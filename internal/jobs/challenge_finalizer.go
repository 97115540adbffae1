package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/service"
)

// Notifier fans out a push frame to a squad's connected members. The
// websocket hub satisfies this; tests can plug in a recorder.
type Notifier interface {
	BroadcastToSquad(squadID uint, data interface{})
}

const (
	defaultInterval  = 10 * time.Second
	defaultBatchSize = 50
)

// StartChallengeFinalizer runs the sweep that finalizes challenges whose
// grace deadline has passed. Handlers also finalize opportunistically on
// read paths; the conditional update in the store makes the race benign,
// so a sweep losing to a concurrent finalize is logged at most as a skip.
func StartChallengeFinalizer(ctx context.Context, challenges *service.ChallengeService, notifier Notifier, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(challenges, notifier)
			}
		}
	}()
}

func sweep(challenges *service.ChallengeService, notifier Notifier) {
	overdue, err := challenges.FindOverdue(defaultBatchSize)
	if err != nil {
		log.Printf("challenge finalizer: overdue scan failed: %v", err)
		return
	}

	finalized := 0
	for i := range overdue {
		challenge, err := challenges.FinalizeOverdue(overdue[i].ID)
		if err != nil {
			if errors.Is(err, service.ErrAlreadyFinalized) || errors.Is(err, service.ErrTooEarly) {
				continue
			}
			log.Printf("challenge finalizer: finalize %d failed: %v", overdue[i].ID, err)
			continue
		}
		finalized++

		if notifier != nil {
			notifier.BroadcastToSquad(challenge.SquadID, map[string]interface{}{
				"type": "challenge_finalized",
				"payload": map[string]interface{}{
					"challenge_id":   challenge.ID,
					"squad_id":       challenge.SquadID,
					"status":         challenge.Status,
					"awarded_points": challenge.AwardedPoints,
				},
			})
		}
	}

	if finalized > 0 {
		log.Printf("challenge finalizer: finalized %d challenges", finalized)
	}
}
