package repository

import (
	"time"

	"github.com/input-output-hk/boxoffice/src/config"
)

type SessionRepository interface {
	WithQuerier(config.PgxIface) SessionRepository

	DeleteExpiredBy(time.Time) (int64, error)
}
