package attachments

import (
	"context"
	"time"

	"github.com/getevo/evo/v2/lib/log"
)

const (
	cleanupAttempts = 3
	cleanupBackoff  = 2 * time.Second
	cleanupTimeout  = 30 * time.Second
)

// removeObjectDetached deletes a storage object without blocking the caller.
// Removal is a compensation step; a persistent failure leaves an orphaned
// object behind and is only logged.
func (s *Service) removeObjectDetached(key string) {
	if s.store == nil {
		log.Warning("Storage is disabled; leaving object %s behind", key)
		return
	}
	go s.removeObject(key)
}

func (s *Service) removeObject(key string) {
	for attempt := 1; attempt <= cleanupAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		err := s.store.Remove(ctx, key)
		cancel()

		if err == nil {
			return
		}

		log.Warning("Failed to remove storage object %s (attempt %d/%d): %v", key, attempt, cleanupAttempts, err)
		if attempt < cleanupAttempts {
			time.Sleep(time.Duration(attempt) * cleanupBackoff)
		}
	}

	log.Error("Giving up on storage object %s; it is orphaned", key)
}
