package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NBMedia786/chabot/internal/logging"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// from now until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string, now time.Time) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RunStatsReporter logs pool stats at every fire time of expr until ctx is
// done. An empty or invalid expression disables the reporter.
func RunStatsReporter(ctx context.Context, expr string, pool *Pool) {
	log := logging.From(ctx)
	if expr == "" {
		return
	}
	if _, err := cronParser.Parse(expr); err != nil {
		log.Warn("invalid notifier stats schedule; reporter disabled", "schedule", expr, "error", err)
		return
	}

	for {
		wait := nextCronDuration(expr, time.Now())
		if wait <= 0 {
			wait = time.Minute
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s := pool.Stats()
		log.Info("notifier stats",
			"pending", s.Pending,
			"sent", s.Sent,
			"failed", s.Failed,
			"dropped", s.Dropped,
		)
	}
}
