package database

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aidin1998/foodhub/pkg/metrics"
)

// ReportPoolStats publishes connection pool gauges every interval until ctx
// is cancelled.
func ReportPoolStats(ctx context.Context, db *gorm.DB, interval time.Duration, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("Pool stats unavailable", zap.Error(err))
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			metrics.DBOpenConns.Set(float64(stats.OpenConnections))
			metrics.DBInUseConns.Set(float64(stats.InUse))
		}
	}
}
