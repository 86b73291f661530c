package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

var ErrInvalidPricePeriod = errors.New("Price must start before it ends")

// An item collection with its categories, each with its items on sale.
type Catalog struct {
	ItemCollection domain.ItemCollection `json:"item_collection"`
	Categories     []CatalogCategory     `json:"categories"`
}

type CatalogCategory struct {
	domain.Category
	Items []CatalogItem `json:"items"`
}

type CatalogItem struct {
	domain.Item
	Price            *domain.Price           `json:"price"`
	DiscountPolicies []domain.DiscountPolicy `json:"discount_policies"`
}

// Manages item collections, categories, items and their prices.
type CatalogService interface {
	WithQuerier(config.PgxIface) CatalogService

	GetItemCollection(uuid.UUID) (*domain.ItemCollection, error)
	GetItemCollectionsByOrganizationId(uuid.UUID) ([]domain.ItemCollection, error)
	SaveItemCollection(*domain.ItemCollection) error
	GetCategories(uuid.UUID) ([]domain.Category, error)
	SaveCategory(*domain.Category) error
	GetItem(uuid.UUID) (*domain.Item, error)
	GetItems(uuid.UUID) ([]domain.Item, error)
	SaveItem(*domain.Item) error
	UpdateItem(*domain.Item) error
	GetCurrentPrice(uuid.UUID, time.Time) (*domain.Price, error)
	SavePrice(*domain.Price) error
	GetCatalog(uuid.UUID, time.Time) (*Catalog, error)
}

type catalogService struct {
	logger                   zerolog.Logger
	itemCollectionRepository repository.ItemCollectionRepository
	categoryRepository       repository.CategoryRepository
	itemRepository           repository.ItemRepository
	priceRepository          repository.PriceRepository
	discountPolicyRepository repository.DiscountPolicyRepository
	db                       config.PgxIface
}

func NewCatalogService(db config.PgxIface, logger *zerolog.Logger) CatalogService {
	return &catalogService{
		logger:                   logger.With().Str("component", "CatalogService").Logger(),
		itemCollectionRepository: persistence.NewItemCollectionRepository(db),
		categoryRepository:       persistence.NewCategoryRepository(db),
		itemRepository:           persistence.NewItemRepository(db),
		priceRepository:          persistence.NewPriceRepository(db),
		discountPolicyRepository: persistence.NewDiscountPolicyRepository(db),
		db:                       db,
	}
}

func (self catalogService) WithQuerier(querier config.PgxIface) CatalogService {
	return &catalogService{
		logger:                   self.logger,
		itemCollectionRepository: self.itemCollectionRepository.WithQuerier(querier),
		categoryRepository:       self.categoryRepository.WithQuerier(querier),
		itemRepository:           self.itemRepository.WithQuerier(querier),
		priceRepository:          self.priceRepository.WithQuerier(querier),
		discountPolicyRepository: self.discountPolicyRepository.WithQuerier(querier),
		db:                       querier,
	}
}

func (self catalogService) GetItemCollection(id uuid.UUID) (ic *domain.ItemCollection, err error) {
	self.logger.Trace().Stringer("id", id).Msg("Getting ItemCollection by ID")
	ic, err = self.itemCollectionRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing ItemCollection with ID %q", id)
	self.logger.Trace().Stringer("id", id).Err(err).Msg("Got ItemCollection by ID")
	return
}

func (self catalogService) GetItemCollectionsByOrganizationId(id uuid.UUID) (ics []domain.ItemCollection, err error) {
	ics, err = self.itemCollectionRepository.GetByOrganizationId(id)
	err = errors.WithMessagef(err, "Could not select ItemCollections of Organization %q", id)
	return
}

func (self catalogService) SaveItemCollection(ic *domain.ItemCollection) error {
	if ic.Name == "" {
		ic.Name = domain.MakeName(ic.Title)
	}
	self.logger.Trace().Str("name", ic.Name).Msg("Saving new ItemCollection")
	if err := self.itemCollectionRepository.Save(ic); err != nil {
		return errors.WithMessagef(err, "Could not insert ItemCollection %q", ic.Name)
	}
	self.logger.Trace().Str("name", ic.Name).Stringer("id", ic.ID).Msg("Created ItemCollection")
	return nil
}

func (self catalogService) GetCategories(id uuid.UUID) (categories []domain.Category, err error) {
	categories, err = self.categoryRepository.GetByItemCollectionId(id)
	err = errors.WithMessagef(err, "Could not select Categories of ItemCollection %q", id)
	return
}

func (self catalogService) SaveCategory(category *domain.Category) error {
	if category.Name == "" {
		category.Name = domain.MakeName(category.Title)
	}
	return errors.WithMessagef(
		self.categoryRepository.Save(category),
		"Could not insert Category %q", category.Name,
	)
}

func (self catalogService) GetItem(id uuid.UUID) (item *domain.Item, err error) {
	self.logger.Trace().Stringer("id", id).Msg("Getting Item by ID")
	item, err = self.itemRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing Item with ID %q", id)
	self.logger.Trace().Stringer("id", id).Err(err).Msg("Got Item by ID")
	return
}

func (self catalogService) GetItems(id uuid.UUID) (items []domain.Item, err error) {
	items, err = self.itemRepository.GetByItemCollectionId(id)
	err = errors.WithMessagef(err, "Could not select Items of ItemCollection %q", id)
	return
}

// The item is placed in the organization of its collection.
// Its category must belong to the same collection.
func (self catalogService) SaveItem(item *domain.Item) error {
	if item.Name == "" {
		item.Name = domain.MakeName(item.Title)
	}
	if item.QuantityTotal < 0 {
		return errors.Errorf("Quantity of Item %q must not be negative", item.Name)
	}

	return pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*catalogService)

		ic, err := txSelf.itemCollectionRepository.GetById(item.ItemCollectionID)
		if err != nil {
			return errors.WithMessagef(err, "Could not select ItemCollection %q", item.ItemCollectionID)
		}
		category, err := txSelf.categoryRepository.GetById(item.CategoryID)
		if err != nil {
			return errors.WithMessagef(err, "Could not select Category %q", item.CategoryID)
		}
		if category.ItemCollectionID != ic.ID {
			return errors.Errorf("Category %q does not belong to ItemCollection %q", category.ID, ic.ID)
		}

		item.OrganizationID = ic.OrganizationID
		if err := txSelf.itemRepository.Save(item); err != nil {
			return errors.WithMessagef(err, "Could not insert Item %q", item.Name)
		}
		self.logger.Debug().Str("name", item.Name).Stringer("id", item.ID).Msg("Created Item")
		return nil
	})
}

func (self catalogService) UpdateItem(item *domain.Item) error {
	self.logger.Trace().Stringer("id", item.ID).Msg("Updating Item")
	if err := self.itemRepository.Update(item); err != nil {
		return errors.WithMessagef(err, "Could not update Item %q", item.ID)
	}
	return nil
}

func (self catalogService) GetCurrentPrice(id uuid.UUID, at time.Time) (price *domain.Price, err error) {
	price, err = self.priceRepository.GetCurrentByItemId(id, at)
	if errors.Is(err, domain.ErrNotFound) {
		err = domain.ErrNoCurrentPrice
	}
	err = errors.WithMessagef(err, "Could not select current Price of Item %q", id)
	return
}

func (self catalogService) SavePrice(price *domain.Price) error {
	if !price.StartAt.Before(price.EndAt) {
		return ErrInvalidPricePeriod
	}
	if price.Name == "" {
		price.Name = domain.MakeName(price.Title)
	}
	self.logger.Trace().Stringer("item", price.ItemID).Str("name", price.Name).Msg("Saving new Price")
	return errors.WithMessagef(
		self.priceRepository.Save(price),
		"Could not insert Price %q for Item %q", price.Name, price.ItemID,
	)
}

func (self catalogService) GetCatalog(id uuid.UUID, at time.Time) (*Catalog, error) {
	ic, err := self.GetItemCollection(id)
	if err != nil {
		return nil, err
	}

	categories, err := self.GetCategories(id)
	if err != nil {
		return nil, err
	}

	items, err := self.GetItems(id)
	if err != nil {
		return nil, err
	}

	catalog := Catalog{ItemCollection: *ic, Categories: make([]CatalogCategory, len(categories))}
	for i, category := range categories {
		catalog.Categories[i] = CatalogCategory{Category: category, Items: []CatalogItem{}}
		for _, item := range items {
			if item.CategoryID != category.ID {
				continue
			}

			catalogItem := CatalogItem{Item: item}

			if price, err := self.priceRepository.GetCurrentByItemId(item.ID, at); err == nil {
				catalogItem.Price = price
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, errors.WithMessagef(err, "Could not select current Price of Item %q", item.ID)
			}

			if policies, err := self.discountPolicyRepository.GetByItemId(item.ID); err != nil {
				return nil, errors.WithMessagef(err, "Could not select DiscountPolicies of Item %q", item.ID)
			} else {
				// secrets stay on the server
				for j := range policies {
					policies[j].Secret = nil
				}
				catalogItem.DiscountPolicies = policies
			}

			catalog.Categories[i].Items = append(catalog.Categories[i].Items, catalogItem)
		}
	}

	return &catalog, nil
}
