package dashboard

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

const CRON_SCHEDULE_REFRESH = "*/15 * * * *" // Every 15 minutes

// REFRESH_TIMEOUT bounds one scheduled refresh so that a hung request cannot
// pile up behind the next tick.
const REFRESH_TIMEOUT = 5 * time.Minute

// StartCron re-runs the price refresh on schedule. An empty schedule uses
// CRON_SCHEDULE_REFRESH. The caller stops the returned scheduler.
func StartCron(controller *Controller, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = CRON_SCHEDULE_REFRESH
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	log.Infof("starting CRON job to refresh fuel prices (%s)", schedule)

	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), REFRESH_TIMEOUT)
		defer cancel()

		controller.Refresh(ctx)
		view := controller.View(time.Now())
		log.Infow("scheduled refresh finished", "cycle", view.CycleId, "stations", len(view.Stations), "failed", len(view.Failed))
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
