package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"picstream-api/models"
	"picstream-api/services"
)

// OrphanImageCleanupJob periodically removes stored images that no post
// references anymore, e.g. uploads whose post creation failed halfway.
type OrphanImageCleanupJob struct {
	db      *gorm.DB
	storage services.Storage
	logger  *zap.Logger
	ticker  *time.Ticker
	done    chan bool

	// Keys seen orphaned on the previous pass. A key is only deleted once it
	// shows up orphaned twice, so an upload racing its post insert survives.
	candidates map[string]bool
}

func NewOrphanImageCleanupJob(db *gorm.DB, storage services.Storage, logger *zap.Logger, interval time.Duration) *OrphanImageCleanupJob {
	return &OrphanImageCleanupJob{
		db:         db,
		storage:    storage,
		logger:     logger,
		ticker:     time.NewTicker(interval),
		done:       make(chan bool),
		candidates: make(map[string]bool),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (j *OrphanImageCleanupJob) Start() {
	j.logger.Info("orphan image cleanup job started")

	go func() {
		j.cleanup()

		for {
			select {
			case <-j.ticker.C:
				j.cleanup()
			case <-j.done:
				j.logger.Info("orphan image cleanup job stopped")
				return
			}
		}
	}()
}

// Stop stops the cleanup loop.
func (j *OrphanImageCleanupJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

func (j *OrphanImageCleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	keys, err := j.storage.ListKeys(ctx)
	if err != nil {
		j.logger.Warn("orphan cleanup: listing storage failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}

	var referenced []string
	if err := j.db.Model(&models.Post{}).Pluck("storage_key", &referenced).Error; err != nil {
		j.logger.Warn("orphan cleanup: loading referenced keys failed", zap.Error(err))
		return
	}
	inUse := make(map[string]bool, len(referenced))
	for _, k := range referenced {
		inUse[k] = true
	}

	removed := 0
	next := make(map[string]bool)
	for _, key := range keys {
		if inUse[key] {
			continue
		}
		if !j.candidates[key] {
			next[key] = true
			continue
		}
		if err := j.storage.Delete(ctx, key); err != nil {
			j.logger.Warn("orphan cleanup: delete failed", zap.String("key", key), zap.Error(err))
			next[key] = true
			continue
		}
		removed++
	}
	j.candidates = next

	if removed > 0 {
		j.logger.Info("orphan cleanup completed", zap.Int("removed", removed))
	}
}
