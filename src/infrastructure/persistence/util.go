package persistence

import (
	"context"
	"errors"
	"strconv"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return domain.ErrNotFound
	}
	return err
}

func fetchPage(
	db config.PgxIface,
	page *repository.Page,
	items any,
	selects, from, orderBy string,
	queryArgs ...any,
) error {
	// Two statements instead of a batch so the pages can be tested with pgxmock.
	if err := db.QueryRow(context.Background(), `SELECT count(*) FROM `+from, queryArgs...).Scan(&page.Total); err != nil {
		return err
	}

	return pgxscan.Select(
		context.Background(), db, items,
		`SELECT `+selects+
			` FROM `+from+
			` ORDER BY `+orderBy+
			` LIMIT $`+strconv.Itoa(len(queryArgs)+1)+
			` OFFSET $`+strconv.Itoa(len(queryArgs)+2),
		append(queryArgs, page.Limit, page.Offset)...,
	)
}
