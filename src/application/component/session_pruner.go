package component

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/application/service"
)

// Deletes expired login sessions that the session store never cleans up on its own.
type SessionPruner struct {
	Logger         zerolog.Logger
	SessionService service.SessionService
	Interval       time.Duration
}

func (self *SessionPruner) Start(ctx context.Context) error {
	self.Logger.Info().Dur("interval", self.Interval).Msg("Starting")

	ticker := time.NewTicker(self.Interval)
	defer ticker.Stop()

	for {
		self.prune()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (self *SessionPruner) prune() {
	deleted, err := self.SessionService.DeleteExpiredBy(time.Now().UTC())
	if err != nil {
		self.Logger.Err(err).Msg("Could not delete expired sessions")
		return
	}
	if deleted > 0 {
		self.Logger.Debug().Int64("deleted", deleted).Msg("Deleted expired sessions")
	}
}
