// Package scheduler runs the periodic storage report.
package scheduler

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"filehost/logger"
	"filehost/storage"
)

const reportInterval = 1 * time.Hour

// StartScheduler reports storage statistics once immediately and then on a
// fixed interval until ctx is cancelled. Log-only; it never touches the
// stored data.
func StartScheduler(ctx context.Context, store *storage.Storage) {
	logger.Info("Scheduler started")

	reportStorageStats(ctx, store)

	ticker := time.NewTicker(reportInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				logger.Debug("Scheduler tick: running storage report")
				reportStorageStats(ctx, store)
			}
		}
	}()
}

func reportStorageStats(ctx context.Context, store *storage.Storage) {
	stats, err := store.CollectStats(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to collect storage stats")
		return
	}

	logger.WithFields(map[string]interface{}{
		"records": stats.Records,
		"cached":  stats.Cached,
		"disk":    humanize.Bytes(stats.DiskBytes),
	}).Info("Storage report")
}
