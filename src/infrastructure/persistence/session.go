package persistence

import (
	"context"
	"time"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type sessionRepository struct {
	Db config.PgxIface
}

func NewSessionRepository(db config.PgxIface) repository.SessionRepository {
	return &sessionRepository{db}
}

func (self *sessionRepository) WithQuerier(querier config.PgxIface) repository.SessionRepository {
	return &sessionRepository{querier}
}

func (self *sessionRepository) DeleteExpiredBy(expiry time.Time) (int64, error) {
	tag, err := self.Db.Exec(context.Background(), `DELETE FROM http_sessions WHERE expires_on <= $1`, expiry)
	return tag.RowsAffected(), err
}
