package service

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/boxoffice/src/domain"
)

type lineItemFixture struct {
	items    *itemRepositoryMock
	prices   *priceRepositoryMock
	policies *discountPolicyRepositoryMock
	coupons  *discountCouponRepositoryMock
	service  *lineItemService

	icId uuid.UUID
	item *domain.Item
	at   time.Time
}

func newLineItemFixture() *lineItemFixture {
	icId := uuid.New()
	f := &lineItemFixture{
		items:    new(itemRepositoryMock),
		prices:   new(priceRepositoryMock),
		policies: new(discountPolicyRepositoryMock),
		coupons:  new(discountCouponRepositoryMock),
		icId:     icId,
		item: &domain.Item{
			ID:                uuid.New(),
			ItemCollectionID:  icId,
			Title:             "Conference ticket",
			QuantityAvailable: 10,
		},
		at: time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC),
	}
	f.service = &lineItemService{
		logger:                   zerolog.New(io.Discard),
		itemRepository:           f.items,
		priceRepository:          f.prices,
		discountPolicyRepository: f.policies,
		discountCouponRepository: f.coupons,
	}
	return f
}

func (f *lineItemFixture) assertExpectations(t *testing.T) {
	f.items.AssertExpectations(t)
	f.prices.AssertExpectations(t)
	f.policies.AssertExpectations(t)
	f.coupons.AssertExpectations(t)
}

// Stubs the item at a base price of 500 and the automatic policies for the quantity.
func (f *lineItemFixture) priced(quantity int, automatic ...domain.DiscountPolicy) *lineItemFixture {
	f.items.On("GetById", f.item.ID).Return(f.item, nil)
	f.prices.On("GetCurrentByItemId", f.item.ID, f.at).
		Return(&domain.Price{ID: uuid.New(), ItemID: f.item.ID, Amount: decimal.NewFromInt(500), Currency: "INR"}, nil)
	f.policies.On("GetAutomaticByItemId", f.item.ID, quantity).Return(automatic, nil)
	return f
}

func (f *lineItemFixture) calculate(quantity int, codes ...string) ([]ItemQuote, error) {
	return f.service.Calculate(f.icId, []ItemQuantity{{ItemID: f.item.ID, Quantity: quantity}}, codes, f.at)
}

func (f *lineItemFixture) couponPolicy(percentage int) *domain.DiscountPolicy {
	base := "earlygeek"
	secret := domain.NewPolicySecret()
	return &domain.DiscountPolicy{
		ID:               uuid.New(),
		Title:            "Early Geek",
		DiscountType:     domain.DiscountTypeCoupon,
		Percentage:       &percentage,
		DiscountCodeBase: &base,
		Secret:           &secret,
		Items:            []domain.ItemRef{{ID: f.item.ID, Title: f.item.Title}},
	}
}

func finalAmounts(quote ItemQuote) []string {
	amounts := make([]string, len(quote.LineItems))
	for i, li := range quote.LineItems {
		amounts[i] = li.FinalAmount.String()
	}
	return amounts
}

func TestCalculateWithoutDiscounts(t *testing.T) {
	t.Parallel()

	// given
	f := newLineItemFixture().priced(2)

	// when
	quotes, err := f.calculate(2)

	// then
	require.NoError(t, err)
	f.assertExpectations(t)
	if assert.Len(t, quotes, 1) {
		assert.Equal(t, []string{"500", "500"}, finalAmounts(quotes[0]))
		assert.True(t, quotes[0].DiscountedAmount().IsZero())
		assert.Empty(t, quotes[0].DiscountPolicyIds())
	}
}

func TestCalculateAutomaticDiscount(t *testing.T) {
	t.Parallel()

	// given
	percentage := 10
	bulk := domain.DiscountPolicy{
		ID:              uuid.New(),
		Title:           "Bulk",
		DiscountType:    domain.DiscountTypeAutomatic,
		ItemQuantityMin: 3,
		Percentage:      &percentage,
	}
	f := newLineItemFixture().priced(3, bulk)

	// when
	quotes, err := f.calculate(3)

	// then
	require.NoError(t, err)
	f.assertExpectations(t)
	if assert.Len(t, quotes, 1) {
		assert.Equal(t, []string{"450", "450", "450"}, finalAmounts(quotes[0]))
		assert.Equal(t, []uuid.UUID{bulk.ID}, quotes[0].DiscountPolicyIds())
		assert.Nil(t, quotes[0].LineItems[0].DiscountCouponID)
	}
}

func TestCalculateFirstSeenSignedCode(t *testing.T) {
	t.Parallel()

	// given
	f := newLineItemFixture().priced(2)
	policy := f.couponPolicy(20)
	code, err := policy.GenSignedCode("")
	require.NoError(t, err)
	couponId := uuid.New()

	f.policies.On("GetByDiscountCodeBase", "earlygeek").Return(policy, nil)
	f.coupons.On("GetByPolicyIdAndCode", policy.ID, code).Return(nil, domain.ErrNotFound)
	f.coupons.On("Save", mock.MatchedBy(func(c *domain.DiscountCoupon) bool {
		return c.DiscountPolicyID == policy.ID && c.Code == code && c.UsageLimit == 1 && c.UsedCount == 0
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*domain.DiscountCoupon).ID = couponId
	})

	// when
	quotes, err := f.calculate(2, code, code)

	// then
	require.NoError(t, err)
	f.assertExpectations(t)
	if assert.Len(t, quotes, 1) {
		// a signed code is good for one ticket
		assert.Equal(t, []string{"400", "500"}, finalAmounts(quotes[0]))
		assert.Equal(t, &couponId, quotes[0].LineItems[0].DiscountCouponID)
		assert.Nil(t, quotes[0].LineItems[1].DiscountPolicyID)
	}
}

func TestCalculateKnownSignedCode(t *testing.T) {
	t.Parallel()

	// given
	f := newLineItemFixture().priced(1)
	policy := f.couponPolicy(20)
	code, err := policy.GenSignedCode("attendee42")
	require.NoError(t, err)
	coupon := &domain.DiscountCoupon{ID: uuid.New(), DiscountPolicyID: policy.ID, Code: code, UsageLimit: 1}

	f.policies.On("GetByDiscountCodeBase", "earlygeek").Return(policy, nil)
	f.coupons.On("GetByPolicyIdAndCode", policy.ID, code).Return(coupon, nil)

	// when
	quotes, err := f.calculate(1, code)

	// then
	require.NoError(t, err)
	f.assertExpectations(t)
	f.coupons.AssertNotCalled(t, "Save", mock.Anything)
	assert.Equal(t, []string{"400"}, finalAmounts(quotes[0]))
}

func TestCalculateIgnoresUnusableSignedCodes(t *testing.T) {
	t.Parallel()

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(1)
		policy := f.couponPolicy(20)
		code, err := policy.GenSignedCode("")
		require.NoError(t, err)
		parts := strings.Split(code, ".")
		forged := parts[0] + ".forged." + parts[2]

		f.policies.On("GetByDiscountCodeBase", "earlygeek").Return(policy, nil)

		quotes, err := f.calculate(1, forged)

		require.NoError(t, err)
		f.assertExpectations(t)
		f.coupons.AssertNotCalled(t, "GetByPolicyIdAndCode", mock.Anything, mock.Anything)
		f.coupons.AssertNotCalled(t, "Save", mock.Anything)
		assert.Equal(t, []string{"500"}, finalAmounts(quotes[0]))
	})

	t.Run("policy of another item", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(1)
		policy := f.couponPolicy(20)
		policy.Items = []domain.ItemRef{{ID: uuid.New(), Title: "Workshop"}}
		code, err := policy.GenSignedCode("")
		require.NoError(t, err)

		f.policies.On("GetByDiscountCodeBase", "earlygeek").Return(policy, nil)

		quotes, err := f.calculate(1, code)

		require.NoError(t, err)
		f.assertExpectations(t)
		f.coupons.AssertNotCalled(t, "Save", mock.Anything)
		assert.Equal(t, []string{"500"}, finalAmounts(quotes[0]))
	})

	t.Run("unknown code base", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(1)
		f.policies.On("GetByDiscountCodeBase", "nobody").Return(nil, domain.ErrNotFound)

		quotes, err := f.calculate(1, "nobody.x.y")

		require.NoError(t, err)
		f.assertExpectations(t)
		assert.Equal(t, []string{"500"}, finalAmounts(quotes[0]))
	})
}

func TestCalculatePlainCode(t *testing.T) {
	t.Parallel()

	t.Run("covering the item", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(2)
		policy := f.couponPolicy(10)
		coupon := &domain.DiscountCoupon{ID: uuid.New(), DiscountPolicyID: policy.ID, Code: "GEEK", UsageLimit: 5, UsedCount: 1}

		f.coupons.On("GetByCodeForItemId", "GEEK", f.item.ID).Return(coupon, nil)
		f.policies.On("GetById", policy.ID).Return(policy, nil)

		quotes, err := f.calculate(2, "GEEK", "")

		require.NoError(t, err)
		f.assertExpectations(t)
		assert.Equal(t, []string{"450", "450"}, finalAmounts(quotes[0]))
		assert.Equal(t, &coupon.ID, quotes[0].LineItems[1].DiscountCouponID)
	})

	t.Run("not covering the item", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(1)
		f.coupons.On("GetByCodeForItemId", "GEEK", f.item.ID).Return(nil, domain.ErrNotFound)

		quotes, err := f.calculate(1, "GEEK")

		require.NoError(t, err)
		f.assertExpectations(t)
		f.policies.AssertNotCalled(t, "GetById", mock.Anything)
		assert.Equal(t, []string{"500"}, finalAmounts(quotes[0]))
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture().priced(1)
		policy := f.couponPolicy(10)
		coupon := &domain.DiscountCoupon{ID: uuid.New(), DiscountPolicyID: policy.ID, Code: "GEEK", UsageLimit: 2, UsedCount: 2}

		f.coupons.On("GetByCodeForItemId", "GEEK", f.item.ID).Return(coupon, nil)
		f.policies.On("GetById", policy.ID).Return(policy, nil)

		quotes, err := f.calculate(1, "GEEK")

		require.NoError(t, err)
		f.assertExpectations(t)
		assert.Equal(t, []string{"500"}, finalAmounts(quotes[0]))
		assert.Nil(t, quotes[0].LineItems[0].DiscountPolicyID)
	})
}

func TestCalculatePriceBasedCode(t *testing.T) {
	t.Parallel()

	// given
	f := newLineItemFixture().priced(1)
	policy := f.couponPolicy(0)
	policy.Percentage = nil
	policy.IsPriceBased = true
	coupon := &domain.DiscountCoupon{ID: uuid.New(), DiscountPolicyID: policy.ID, Code: "EARLY", UsageLimit: 3}

	f.coupons.On("GetByCodeForItemId", "EARLY", f.item.ID).Return(coupon, nil)
	f.policies.On("GetById", policy.ID).Return(policy, nil)
	f.prices.On("GetCurrentByItemIdAndPolicyId", f.item.ID, policy.ID, f.at).
		Return(&domain.Price{ID: uuid.New(), ItemID: f.item.ID, DiscountPolicyID: &policy.ID, Amount: decimal.NewFromInt(350)}, nil)

	// when
	quotes, err := f.calculate(1, "EARLY")

	// then
	require.NoError(t, err)
	f.assertExpectations(t)
	assert.Equal(t, []string{"350"}, finalAmounts(quotes[0]))
	assert.Equal(t, "150", quotes[0].DiscountedAmount().String())
}

func TestCalculateRejectsItems(t *testing.T) {
	t.Parallel()

	t.Run("more than available", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture()
		f.items.On("GetById", f.item.ID).Return(f.item, nil)

		_, err := f.calculate(3000000)

		assert.ErrorIs(t, err, domain.ErrOutOfStock)
		f.assertExpectations(t)
		f.prices.AssertNotCalled(t, "GetCurrentByItemId", mock.Anything, mock.Anything)
		f.policies.AssertNotCalled(t, "GetAutomaticByItemId", mock.Anything, mock.Anything)
	})

	t.Run("item of another collection", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture()
		f.item.ItemCollectionID = uuid.New()
		f.items.On("GetById", f.item.ID).Return(f.item, nil)

		_, err := f.calculate(1)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("no current price", func(t *testing.T) {
		t.Parallel()

		f := newLineItemFixture()
		f.items.On("GetById", f.item.ID).Return(f.item, nil)
		f.prices.On("GetCurrentByItemId", f.item.ID, f.at).Return(nil, domain.ErrNotFound)

		_, err := f.calculate(1)

		assert.ErrorIs(t, err, domain.ErrNoCurrentPrice)
	})
}
