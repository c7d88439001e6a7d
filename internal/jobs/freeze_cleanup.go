// README: Background jobs; cron schedule for expired-freeze cleanup.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/J-SURYA/cruizo-backend-sub000/internal/modules/freeze"
)

// StartFreezeCleanup schedules the expired-freeze purge. Liveness checks
// never depend on this job; it only keeps the freeze table small.
func StartFreezeCleanup(spec string, svc *freeze.Service) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := svc.CleanupExpired(ctx)
		if err != nil {
			log.Printf("freeze cleanup: %v", err)
			return
		}
		if n > 0 {
			log.Printf("freeze cleanup: removed %d expired freezes", n)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
