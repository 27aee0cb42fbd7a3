package scheduler

import (
	"context"
	"time"

	"miniplm/logger"
	"miniplm/services"
	"miniplm/utils"
)

// OrphanCleaner 제품 트리에서 참조하지 않는 오래된 업로드 정리
type OrphanCleaner struct {
	Products  services.ProductService
	Files     services.FileService
	Retention time.Duration
}

// RunOnce deletes uploads older than the retention window that no stored revision names.
func (c *OrphanCleaner) RunOnce(ctx context.Context) (int, error) {
	logger.Debug("Running scheduled task: DeleteOrphanedFiles")

	referenced, err := c.Products.ReferencedNames(ctx)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to collect referenced file names")
		return 0, err
	}

	cutoff := utils.Now().Add(-c.Retention)
	deleted, err := c.Files.DeleteOrphans(ctx, referenced, cutoff)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error":   err.Error(),
			"deleted": deleted,
		}).Error("Failed to delete orphaned files")
		return deleted, err
	}

	if deleted > 0 {
		logger.WithFields(map[string]interface{}{
			"count":  deleted,
			"cutoff": utils.FormatDateTimeForDB(cutoff),
		}).Info("Orphaned files deleted")
	}
	return deleted, nil
}

// StartScheduler 스케줄러 시작. ctx가 끝나면 멈춘다.
func StartScheduler(ctx context.Context, interval time.Duration, c *OrphanCleaner) {
	if interval <= 0 {
		interval = time.Hour
	}
	logger.Info("Scheduler started (interval %s, retention %s)", interval, c.Retention)

	// 서버 시작 시 즉시 한 번 실행
	c.RunOnce(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				c.RunOnce(ctx)
			}
		}
	}()
}
