package repository

import (
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type OrganizationRepository interface {
	WithQuerier(config.PgxIface) OrganizationRepository

	GetById(uuid.UUID) (*domain.Organization, error)
	GetByName(string) (*domain.Organization, error)
	GetByAdmin(string) ([]domain.Organization, error)
	IsAdmin(uuid.UUID, string) (bool, error)
	AddAdmin(uuid.UUID, string) error
	Save(*domain.Organization) error
}

type ItemCollectionRepository interface {
	WithQuerier(config.PgxIface) ItemCollectionRepository

	GetById(uuid.UUID) (*domain.ItemCollection, error)
	GetByOrganizationId(uuid.UUID) ([]domain.ItemCollection, error)
	Save(*domain.ItemCollection) error
}

type CategoryRepository interface {
	WithQuerier(config.PgxIface) CategoryRepository

	GetById(uuid.UUID) (*domain.Category, error)
	GetByItemCollectionId(uuid.UUID) ([]domain.Category, error)
	Save(*domain.Category) error
}
