package tasks

import (
	"context"
	"fmt"
	"time"
)

// newPruneOrphansTask removes words and media metadata left behind by edited
// messages and chats the bot has left.
func newPruneOrphansTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", PruneOrphans)

	return func(ctx context.Context) error {
		startTime := time.Now()

		removed, err := deps.Store.PruneOrphans(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Prune task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("prune orphans failed: %w", err)
		}

		log.InfoContext(ctx, "Prune task completed", "removed", removed, "duration", time.Since(startTime))
		return nil
	}
}
