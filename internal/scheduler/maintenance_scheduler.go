package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sentinelshop/storefront-api/pkg/logger"
)

// OrderSweeper abandons pending orders that were never paid.
type OrderSweeper interface {
	AbandonStale(ctx context.Context) (int64, error)
}

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

// MaintenanceScheduler runs the periodic checkout housekeeping jobs.
type MaintenanceScheduler struct {
	cron        *cron.Cron
	orders      OrderSweeper
	sessions    SessionPurger
	abandonSpec string
	purgeSpec   string
}

func NewMaintenanceScheduler(orders OrderSweeper, sessions SessionPurger, abandonSpec, purgeSpec string) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		orders:      orders,
		sessions:    sessions,
		abandonSpec: abandonSpec,
		purgeSpec:   purgeSpec,
	}
}

// Start registers both jobs and starts the cron runner.
func (s *MaintenanceScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.abandonSpec, s.AbandonStaleOrders); err != nil {
		logger.Error("Failed to add cron job for stale orders", err, map[string]interface{}{
			"spec": s.abandonSpec,
		})
		return err
	}
	if _, err := s.cron.AddFunc(s.purgeSpec, s.PurgeExpiredSessions); err != nil {
		logger.Error("Failed to add cron job for session purge", err, map[string]interface{}{
			"spec": s.purgeSpec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Maintenance scheduler started", map[string]interface{}{
		"abandon_spec": s.abandonSpec,
		"purge_spec":   s.purgeSpec,
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *MaintenanceScheduler) Stop() {
	logger.Info("Stopping maintenance scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Maintenance scheduler stopped")
}

func (s *MaintenanceScheduler) AbandonStaleOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.orders.AbandonStale(ctx)
	if err != nil {
		logger.Error("Scheduled stale order sweep failed", err)
		return
	}
	if n > 0 {
		logger.Info("Scheduled stale order sweep finished", map[string]interface{}{
			"abandoned": n,
		})
	}
}

func (s *MaintenanceScheduler) PurgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		logger.Error("Scheduled session purge failed", err)
		return
	}
	logger.Info("Scheduled session purge finished", map[string]interface{}{
		"deleted": n,
	})
}
