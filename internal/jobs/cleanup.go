package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"trackway/internal/config"
	"trackway/internal/tracks"
)

// CleanupJob removes tracks past the retention horizon.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes tracks older than the retention period. The query core never
// deletes records; retention is the one sanctioned path for data to leave.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.TracksRetentionDays
	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of expired tracks",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&tracks.Track{}).
		Where("tracked_at < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count expired tracks", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No expired tracks to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("tracked_at < ?", cutoffDate).
			Limit(batchSize).
			Delete(&tracks.Track{})

		if result.Error != nil {
			j.logger.Error("Failed to delete expired tracks",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up expired tracks",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
