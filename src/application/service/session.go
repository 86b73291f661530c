package service

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

type SessionService interface {
	WithQuerier(config.PgxIface) SessionService

	DeleteExpiredBy(time.Time) (int64, error)
}

type sessionService struct {
	logger            zerolog.Logger
	sessionRepository repository.SessionRepository
}

func NewSessionService(db config.PgxIface, logger *zerolog.Logger) SessionService {
	return &sessionService{
		logger:            logger.With().Str("component", "SessionService").Logger(),
		sessionRepository: persistence.NewSessionRepository(db),
	}
}

func (self *sessionService) WithQuerier(querier config.PgxIface) SessionService {
	return &sessionService{
		self.logger,
		self.sessionRepository.WithQuerier(querier),
	}
}

func (self sessionService) DeleteExpiredBy(expiry time.Time) (deleted int64, err error) {
	logger := self.logger.With().Stringer("expiry", expiry).Logger()
	logger.Trace().Msg("Deleting sessions that have expired")
	deleted, err = self.sessionRepository.DeleteExpiredBy(expiry)
	if err != nil {
		err = errors.WithMessagef(err, "While deleting sessions that have expired by %s", expiry)
		return
	}
	logger.Trace().Int64("count", deleted).Msg("Deleted sessions that have expired")
	return
}
