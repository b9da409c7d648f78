package service

import (
	"context"
	"time"
)

// RunPruneSweeper periodically drops expired messages until ctx is done.
func (s *Service) RunPruneSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpiredMessages(ctx)
		}
	}
}

func (s *Service) sweepExpiredMessages(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sessions := s.store.PruneExpired(sweepCtx)
	messages := 0
	for _, sess := range sessions {
		messages += len(sess.Messages)
	}
	s.logger.Debug("prune sweep complete", "sessions", len(sessions), "messages", messages)
}
