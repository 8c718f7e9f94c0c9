// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRolloverScheduler checks hourly whether any tenant's previous season is
// still unarchived and rolls it over. The check is cheap and the rollover is
// idempotent, so re-running every hour (or on several instances) is safe.
func (s *RolloverService) StartRolloverScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			ctx := context.Background()

			tenants, err := s.TenantIDs(ctx)
			if err != nil {
				log.Printf("[SCHEDULER] Failed to list tenants: %v", err)
				return
			}

			// The season just ended is last calendar month. Step back from the
			// first of the current month so month-length differences can't
			// land us in the wrong month.
			now := time.Now().UTC()
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			previousMonth := monthStart.AddDate(0, 0, -1)
			for _, tenantID := range tenants {
				if err := s.RunSeasonRollover(ctx, tenantID, previousMonth); err != nil {
					log.Printf("[SCHEDULER] Rollover failed for tenant %s: %v", tenantID, err)
				}
			}
		}),
	)
}
