package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type ItemRepository interface {
	WithQuerier(config.PgxIface) ItemRepository

	GetById(uuid.UUID) (*domain.Item, error)
	GetByIds([]uuid.UUID) ([]domain.Item, error)
	GetByItemCollectionId(uuid.UUID) ([]domain.Item, error)
	Save(*domain.Item) error
	Update(*domain.Item) error
	// Fails with domain.ErrOutOfStock if fewer than the given quantity are available.
	Reserve(uuid.UUID, int) error
	Release(uuid.UUID, int) error
}

type PriceRepository interface {
	WithQuerier(config.PgxIface) PriceRepository

	// The base price of the item, one without a discount policy, at the given time.
	GetCurrentByItemId(uuid.UUID, time.Time) (*domain.Price, error)
	GetCurrentByItemIdAndPolicyId(uuid.UUID, uuid.UUID, time.Time) (*domain.Price, error)
	GetByPolicyId(uuid.UUID) (*domain.Price, error)
	Save(*domain.Price) error
}
