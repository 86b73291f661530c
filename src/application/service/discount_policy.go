package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

type DiscountPolicyService interface {
	WithQuerier(config.PgxIface) DiscountPolicyService

	GetById(uuid.UUID) (*domain.DiscountPolicy, error)
	GetByOrganizationId(uuid.UUID, repository.DiscountPolicyFilter, *repository.Page) ([]domain.DiscountPolicy, error)
	GetPrice(uuid.UUID) (*domain.Price, error)
	// Saves the policy for the given items together with its discounted price, if any.
	Create(*domain.DiscountPolicy, []uuid.UUID, *domain.Price) error
	// Replaces the items of the policy unless they are nil.
	Update(*domain.DiscountPolicy, []uuid.UUID) error
	GenerateSignedCodes(*domain.DiscountPolicy, int) ([]string, error)
	CreateCoupon(*domain.DiscountPolicy, string, int) (*domain.DiscountCoupon, error)
	GetCoupons(uuid.UUID) ([]domain.DiscountCoupon, error)
}

type discountPolicyService struct {
	logger                   zerolog.Logger
	discountPolicyRepository repository.DiscountPolicyRepository
	discountCouponRepository repository.DiscountCouponRepository
	priceRepository          repository.PriceRepository
	itemRepository           repository.ItemRepository
	db                       config.PgxIface
}

func NewDiscountPolicyService(db config.PgxIface, logger *zerolog.Logger) DiscountPolicyService {
	return &discountPolicyService{
		logger:                   logger.With().Str("component", "DiscountPolicyService").Logger(),
		discountPolicyRepository: persistence.NewDiscountPolicyRepository(db),
		discountCouponRepository: persistence.NewDiscountCouponRepository(db),
		priceRepository:          persistence.NewPriceRepository(db),
		itemRepository:           persistence.NewItemRepository(db),
		db:                       db,
	}
}

func (self discountPolicyService) WithQuerier(querier config.PgxIface) DiscountPolicyService {
	return &discountPolicyService{
		logger:                   self.logger,
		discountPolicyRepository: self.discountPolicyRepository.WithQuerier(querier),
		discountCouponRepository: self.discountCouponRepository.WithQuerier(querier),
		priceRepository:          self.priceRepository.WithQuerier(querier),
		itemRepository:           self.itemRepository.WithQuerier(querier),
		db:                       querier,
	}
}

func (self discountPolicyService) GetById(id uuid.UUID) (policy *domain.DiscountPolicy, err error) {
	self.logger.Trace().Stringer("id", id).Msg("Getting DiscountPolicy by ID")
	policy, err = self.discountPolicyRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing DiscountPolicy with ID %q", id)
	self.logger.Trace().Stringer("id", id).Err(err).Msg("Got DiscountPolicy by ID")
	return
}

func (self discountPolicyService) GetByOrganizationId(id uuid.UUID, filter repository.DiscountPolicyFilter, page *repository.Page) (policies []domain.DiscountPolicy, err error) {
	self.logger.Trace().Stringer("organization", id).Str("search", filter.Search).Int("offset", page.Offset).Msg("Getting DiscountPolicies of Organization")
	policies, err = self.discountPolicyRepository.GetByOrganizationId(id, filter, page)
	err = errors.WithMessagef(err, "Could not select DiscountPolicies of Organization %q", id)
	self.logger.Trace().Stringer("organization", id).Int("count", len(policies)).Err(err).Msg("Got DiscountPolicies of Organization")
	return
}

func (self discountPolicyService) GetPrice(id uuid.UUID) (price *domain.Price, err error) {
	price, err = self.priceRepository.GetByPolicyId(id)
	err = errors.WithMessagef(err, "Could not select Price of DiscountPolicy %q", id)
	return
}

// Items must belong to the organization of the policy.
func (self discountPolicyService) checkItems(policy *domain.DiscountPolicy, itemIds []uuid.UUID) error {
	items, err := self.itemRepository.GetByIds(itemIds)
	if err != nil {
		return errors.WithMessage(err, "Could not select discounted Items")
	}
	if len(items) != len(itemIds) {
		return errors.WithMessage(domain.ErrNotFound, "Some discounted Items do not exist")
	}
	for _, item := range items {
		if item.OrganizationID != policy.OrganizationID {
			return errors.Errorf("Item %q does not belong to Organization %q", item.ID, policy.OrganizationID)
		}
	}
	return nil
}

func (self discountPolicyService) Create(policy *domain.DiscountPolicy, itemIds []uuid.UUID, price *domain.Price) error {
	if policy.Name == "" {
		policy.Name = domain.MakeName(policy.Title) + "-" + domain.NewCouponCode(4)
	}
	if policy.ItemQuantityMin < 1 {
		policy.ItemQuantityMin = 1
	}

	return pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*discountPolicyService)

		if err := txSelf.checkItems(policy, itemIds); err != nil {
			return err
		}

		self.logger.Trace().Str("name", policy.Name).Msg("Saving new DiscountPolicy")
		if err := txSelf.discountPolicyRepository.Save(policy); err != nil {
			return errors.WithMessagef(err, "Could not insert DiscountPolicy %q", policy.Name)
		}
		if err := txSelf.discountPolicyRepository.SetItems(policy.ID, itemIds); err != nil {
			return errors.WithMessagef(err, "Could not set Items of DiscountPolicy %q", policy.ID)
		}

		if price != nil {
			if !price.StartAt.Before(price.EndAt) {
				return ErrInvalidPricePeriod
			}
			price.DiscountPolicyID = &policy.ID
			if price.Name == "" {
				price.Name = "discount-price-" + domain.NewCouponCode(6)
			}
			if err := txSelf.priceRepository.Save(price); err != nil {
				return errors.WithMessagef(err, "Could not insert Price of DiscountPolicy %q", policy.ID)
			}
		}

		self.logger.Debug().Str("name", policy.Name).Stringer("id", policy.ID).Msg("Created DiscountPolicy")
		return nil
	})
}

func (self discountPolicyService) Update(policy *domain.DiscountPolicy, itemIds []uuid.UUID) error {
	return pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*discountPolicyService)

		self.logger.Trace().Stringer("id", policy.ID).Msg("Updating DiscountPolicy")
		if err := txSelf.discountPolicyRepository.Update(policy); err != nil {
			return errors.WithMessagef(err, "Could not update DiscountPolicy %q", policy.ID)
		}

		if itemIds != nil {
			if err := txSelf.checkItems(policy, itemIds); err != nil {
				return err
			}
			if err := txSelf.discountPolicyRepository.SetItems(policy.ID, itemIds); err != nil {
				return errors.WithMessagef(err, "Could not set Items of DiscountPolicy %q", policy.ID)
			}
		}

		return nil
	})
}

// Signed codes are not stored; a coupon is created for each when it is first used.
func (self discountPolicyService) GenerateSignedCodes(policy *domain.DiscountPolicy, count int) ([]string, error) {
	if policy.EnsureSigningKeys() {
		self.logger.Debug().Stringer("id", policy.ID).Msg("Setting signing keys of DiscountPolicy")
		if err := self.discountPolicyRepository.Update(policy); err != nil {
			return nil, errors.WithMessagef(err, "Could not update DiscountPolicy %q", policy.ID)
		}
	}

	codes := make([]string, count)
	for i := range codes {
		code, err := policy.GenSignedCode("")
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func (self discountPolicyService) CreateCoupon(policy *domain.DiscountPolicy, code string, usageLimit int) (*domain.DiscountCoupon, error) {
	coupon := domain.NewDiscountCoupon(policy.ID, code, usageLimit)
	self.logger.Trace().Stringer("policy", policy.ID).Str("code", coupon.Code).Msg("Saving new DiscountCoupon")
	if err := self.discountCouponRepository.Save(&coupon); err != nil {
		return nil, errors.WithMessagef(err, "Could not insert DiscountCoupon %q", coupon.Code)
	}
	return &coupon, nil
}

func (self discountPolicyService) GetCoupons(id uuid.UUID) (coupons []domain.DiscountCoupon, err error) {
	coupons, err = self.discountCouponRepository.GetByPolicyId(id)
	err = errors.WithMessagef(err, "Could not select DiscountCoupons of DiscountPolicy %q", id)
	return
}
