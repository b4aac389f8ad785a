package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OpenArchive connects to dsn and prepares the report table.
func OpenArchive(ctx context.Context, dsn string) (*ReportRepo, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	repo := NewReportRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare archive: %w", err)
	}
	return repo, nil
}

// Ping checks the database connection.
func (r *ReportRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func (r *ReportRepo) Close() error {
	return r.DB.Close()
}

// RunPurger deletes reports older than retention now and then every
// interval until ctx is done. A zero retention keeps reports forever.
func (r *ReportRepo) RunPurger(ctx context.Context, interval, retention time.Duration, log *zap.Logger) {
	if retention <= 0 {
		return
	}
	purge := func() {
		n, err := r.PurgeOlderThan(ctx, retention)
		if err != nil {
			log.Warn("purge reports", zap.Error(err))
			return
		}
		if n > 0 {
			log.Info("purged reports", zap.Int64("count", n), zap.Duration("retention", retention))
		}
	}

	purge()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
