package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

type ItemQuantity struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// The discounted line items for some quantity of one item.
type ItemQuote struct {
	Item      domain.Item
	BasePrice domain.Price
	LineItems []domain.LineItemTuple
}

func (self ItemQuote) Quantity() int {
	return len(self.LineItems)
}

func (self ItemQuote) FinalAmount() decimal.Decimal {
	return domain.TotalFinal(self.LineItems)
}

func (self ItemQuote) DiscountedAmount() decimal.Decimal {
	return domain.TotalDiscount(self.LineItems)
}

func (self ItemQuote) DiscountPolicyIds() []uuid.UUID {
	ids := []uuid.UUID{}
	for _, li := range self.LineItems {
		if li.DiscountPolicyID != nil {
			ids = append(ids, *li.DiscountPolicyID)
		}
	}
	return lo.Uniq(ids)
}

func OrderTotal(quotes []ItemQuote) decimal.Decimal {
	return lo.Reduce(quotes, func(total decimal.Decimal, quote ItemQuote, _ int) decimal.Decimal {
		return total.Add(quote.FinalAmount())
	}, decimal.Zero)
}

// Merges repeated items and drops those with no quantity.
func MergeItemQuantities(items []ItemQuantity) []ItemQuantity {
	merged := []ItemQuantity{}
	index := map[uuid.UUID]int{}
	for _, iq := range items {
		if iq.Quantity <= 0 {
			continue
		}
		if i, ok := index[iq.ItemID]; ok {
			merged[i].Quantity += iq.Quantity
		} else {
			index[iq.ItemID] = len(merged)
			merged = append(merged, iq)
		}
	}
	return merged
}

type LineItemService interface {
	WithQuerier(config.PgxIface) LineItemService

	// Prices the given quantities of items of the item collection with the best discounts available.
	Calculate(uuid.UUID, []ItemQuantity, []string, time.Time) ([]ItemQuote, error)
}

type lineItemService struct {
	logger                   zerolog.Logger
	itemRepository           repository.ItemRepository
	priceRepository          repository.PriceRepository
	discountPolicyRepository repository.DiscountPolicyRepository
	discountCouponRepository repository.DiscountCouponRepository
	discounter               domain.LineItemDiscounter
}

func NewLineItemService(db config.PgxIface, logger *zerolog.Logger) LineItemService {
	return &lineItemService{
		logger:                   logger.With().Str("component", "LineItemService").Logger(),
		itemRepository:           persistence.NewItemRepository(db),
		priceRepository:          persistence.NewPriceRepository(db),
		discountPolicyRepository: persistence.NewDiscountPolicyRepository(db),
		discountCouponRepository: persistence.NewDiscountCouponRepository(db),
	}
}

func (self lineItemService) WithQuerier(querier config.PgxIface) LineItemService {
	return &lineItemService{
		logger:                   self.logger,
		itemRepository:           self.itemRepository.WithQuerier(querier),
		priceRepository:          self.priceRepository.WithQuerier(querier),
		discountPolicyRepository: self.discountPolicyRepository.WithQuerier(querier),
		discountCouponRepository: self.discountCouponRepository.WithQuerier(querier),
	}
}

func (self lineItemService) Calculate(itemCollectionId uuid.UUID, items []ItemQuantity, codes []string, at time.Time) ([]ItemQuote, error) {
	quotes := []ItemQuote{}

	for _, iq := range MergeItemQuantities(items) {
		item, err := self.itemRepository.GetById(iq.ItemID)
		if err != nil {
			return nil, errors.WithMessagef(err, "Could not select Item %q", iq.ItemID)
		}
		if item.ItemCollectionID != itemCollectionId {
			return nil, errors.WithMessagef(domain.ErrNotFound, "Item %q is not part of ItemCollection %q", item.ID, itemCollectionId)
		}
		if iq.Quantity > item.QuantityAvailable {
			return nil, errors.WithMessagef(domain.ErrOutOfStock, "%s: %d requested, %d available", item.Title, iq.Quantity, item.QuantityAvailable)
		}

		price, err := self.priceRepository.GetCurrentByItemId(item.ID, at)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.WithMessagef(domain.ErrNoCurrentPrice, "Item %q", item.Title)
		} else if err != nil {
			return nil, errors.WithMessagef(err, "Could not select current Price of Item %q", item.ID)
		}

		lineItems := make([]domain.LineItemTuple, iq.Quantity)
		for i := range lineItems {
			lineItems[i] = domain.NewLineItemTuple(item.ID, price.Amount)
		}

		discounts, err := self.validDiscounts(item, iq.Quantity, codes, at)
		if err != nil {
			return nil, err
		}

		if lineItems, err = self.discounter.GetDiscountedLineItems(lineItems, discounts); err != nil {
			return nil, err
		}

		self.logger.Trace().
			Stringer("item", item.ID).
			Int("quantity", iq.Quantity).
			Int("discounts", len(discounts)).
			Stringer("final_amount", domain.TotalFinal(lineItems)).
			Msg("Calculated line items")

		quotes = append(quotes, ItemQuote{Item: *item, BasePrice: *price, LineItems: lineItems})
	}

	return quotes, nil
}

func (self lineItemService) discountedPrice(policy *domain.DiscountPolicy, itemId uuid.UUID, at time.Time) (*domain.Price, error) {
	if !policy.IsPriceBased {
		return nil, nil
	}
	price, err := self.priceRepository.GetCurrentByItemIdAndPolicyId(itemId, policy.ID, at)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return price, errors.WithMessagef(err, "Could not select Price of DiscountPolicy %q", policy.ID)
}

// Finds the automatic policies that apply to the quantity
// and the usable coupons among the codes that discount the item.
func (self lineItemService) validDiscounts(item *domain.Item, quantity int, codes []string, at time.Time) ([]domain.PolicyCoupon, error) {
	discounts := []domain.PolicyCoupon{}

	automatic, err := self.discountPolicyRepository.GetAutomaticByItemId(item.ID, quantity)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select automatic DiscountPolicies of Item %q", item.ID)
	}
	for i := range automatic {
		policy := &automatic[i]
		price, err := self.discountedPrice(policy, item.ID, at)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, domain.PolicyCoupon{Policy: policy, DiscountedPrice: price})
	}

	for _, code := range lo.Uniq(codes) {
		if code == "" {
			continue
		}

		var policy *domain.DiscountPolicy
		var coupon *domain.DiscountCoupon

		if domain.IsSignedCodeFormat(code) {
			policy, err = self.discountPolicyRepository.GetByDiscountCodeBase(domain.SignedCodeBase(code))
			if errors.Is(err, domain.ErrNotFound) {
				continue
			} else if err != nil {
				return nil, errors.WithMessagef(err, "Could not select DiscountPolicy for code %q", code)
			}
			if !policy.AppliesTo(item.ID) {
				continue
			}
			if !policy.VerifySignedCode(code) {
				self.logger.Debug().Str("code", code).Stringer("policy", policy.ID).Err(domain.ErrBadSignature).Msg("Ignoring coupon code")
				continue
			}

			coupon, err = self.discountCouponRepository.GetByPolicyIdAndCode(policy.ID, code)
			if errors.Is(err, domain.ErrNotFound) {
				newCoupon := domain.NewDiscountCoupon(policy.ID, code, 1)
				if err := self.discountCouponRepository.Save(&newCoupon); err != nil {
					return nil, errors.WithMessagef(err, "Could not insert DiscountCoupon for signed code %q", code)
				}
				coupon = &newCoupon
			} else if err != nil {
				return nil, errors.WithMessagef(err, "Could not select DiscountCoupon %q", code)
			}
		} else {
			coupon, err = self.discountCouponRepository.GetByCodeForItemId(code, item.ID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			} else if err != nil {
				return nil, errors.WithMessagef(err, "Could not select DiscountCoupon %q", code)
			}
			policy, err = self.discountPolicyRepository.GetById(coupon.DiscountPolicyID)
			if err != nil {
				return nil, errors.WithMessagef(err, "Could not select DiscountPolicy of DiscountCoupon %q", code)
			}
		}

		if coupon.Available() <= 0 {
			self.logger.Debug().Str("code", code).Err(domain.ErrCouponExhausted).Msg("Ignoring coupon code")
			continue
		}

		price, err := self.discountedPrice(policy, item.ID, at)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, domain.PolicyCoupon{Policy: policy, Coupon: coupon, DiscountedPrice: price})
	}

	return discounts, nil
}
