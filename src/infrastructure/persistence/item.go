package persistence

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type itemRepository struct {
	DB config.PgxIface
}

func NewItemRepository(db config.PgxIface) repository.ItemRepository {
	return &itemRepository{db}
}

func (a itemRepository) WithQuerier(querier config.PgxIface) repository.ItemRepository {
	return &itemRepository{querier}
}

func (a itemRepository) GetById(id uuid.UUID) (*domain.Item, error) {
	item := domain.Item{}
	return &item, notFound(pgxscan.Get(
		context.Background(), a.DB, &item,
		`SELECT * FROM item WHERE id = $1`,
		id,
	))
}

func (a itemRepository) GetByIds(ids []uuid.UUID) ([]domain.Item, error) {
	items := []domain.Item{}
	return items, pgxscan.Select(
		context.Background(), a.DB, &items,
		`SELECT * FROM item WHERE id = ANY($1) ORDER BY created_at`,
		ids,
	)
}

func (a itemRepository) GetByItemCollectionId(id uuid.UUID) ([]domain.Item, error) {
	items := []domain.Item{}
	return items, pgxscan.Select(
		context.Background(), a.DB, &items,
		`SELECT item.*
		FROM item
		JOIN category ON category.id = item.category_id
		WHERE item.item_collection_id = $1
		ORDER BY category.seq, item.created_at`,
		id,
	)
}

func (a itemRepository) Save(item *domain.Item) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO item (organization_id, item_collection_id, category_id, name, title, description, quantity_total, quantity_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, quantity_available, created_at`,
		item.OrganizationID, item.ItemCollectionID, item.CategoryID, item.Name, item.Title, item.Description, item.QuantityTotal,
	).Scan(&item.ID, &item.QuantityAvailable, &item.CreatedAt)
}

// Changing the total shifts the available quantity by the same amount.
func (a itemRepository) Update(item *domain.Item) error {
	return a.DB.QueryRow(
		context.Background(),
		`UPDATE item SET
			title = $2,
			description = $3,
			category_id = $4,
			quantity_available = quantity_available + ($5 - quantity_total),
			quantity_total = $5
		WHERE id = $1
		RETURNING quantity_available`,
		item.ID, item.Title, item.Description, item.CategoryID, item.QuantityTotal,
	).Scan(&item.QuantityAvailable)
}

func (a itemRepository) Reserve(id uuid.UUID, quantity int) error {
	tag, err := a.DB.Exec(
		context.Background(),
		`UPDATE item SET quantity_available = quantity_available - $2 WHERE id = $1 AND quantity_available >= $2`,
		id, quantity,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutOfStock
	}
	return nil
}

func (a itemRepository) Release(id uuid.UUID, quantity int) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE item SET quantity_available = least(quantity_total, quantity_available + $2) WHERE id = $1`,
		id, quantity,
	)
	return err
}

type priceRepository struct {
	DB config.PgxIface
}

func NewPriceRepository(db config.PgxIface) repository.PriceRepository {
	return &priceRepository{db}
}

func (a priceRepository) WithQuerier(querier config.PgxIface) repository.PriceRepository {
	return &priceRepository{querier}
}

func (a priceRepository) GetCurrentByItemId(id uuid.UUID, at time.Time) (*domain.Price, error) {
	price := domain.Price{}
	return &price, notFound(pgxscan.Get(
		context.Background(), a.DB, &price,
		`SELECT * FROM price
		WHERE item_id = $1 AND discount_policy_id IS NULL AND start_at <= $2 AND end_at > $2
		ORDER BY start_at DESC
		LIMIT 1`,
		id, at,
	))
}

func (a priceRepository) GetCurrentByItemIdAndPolicyId(itemId, policyId uuid.UUID, at time.Time) (*domain.Price, error) {
	price := domain.Price{}
	return &price, notFound(pgxscan.Get(
		context.Background(), a.DB, &price,
		`SELECT * FROM price
		WHERE item_id = $1 AND discount_policy_id = $2 AND start_at <= $3 AND end_at > $3
		ORDER BY start_at DESC
		LIMIT 1`,
		itemId, policyId, at,
	))
}

func (a priceRepository) GetByPolicyId(id uuid.UUID) (*domain.Price, error) {
	price := domain.Price{}
	return &price, notFound(pgxscan.Get(
		context.Background(), a.DB, &price,
		`SELECT * FROM price WHERE discount_policy_id = $1 ORDER BY start_at LIMIT 1`,
		id,
	))
}

func (a priceRepository) Save(price *domain.Price) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO price (item_id, discount_policy_id, name, title, start_at, end_at, amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		price.ItemID, price.DiscountPolicyID, price.Name, price.Title, price.StartAt, price.EndAt, price.Amount, price.Currency,
	).Scan(&price.ID)
}
