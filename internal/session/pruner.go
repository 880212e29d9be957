// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"time"
)

// Pruner is implemented by stores without native expiry.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// RunPruner prunes store every interval until ctx is cancelled. It returns
// immediately for stores that expire entries themselves.
func RunPruner(ctx context.Context, store Store, interval time.Duration, logger *slog.Logger) {
	pruner, ok := store.(Pruner)
	if !ok {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pruner.Prune(ctx)
			if err != nil {
				logger.Warn("session_prune_failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Debug("session_pruned", slog.Int("removed", removed))
			}
		}
	}
}
