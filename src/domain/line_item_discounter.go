package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// A line item whose amounts are being worked out before it is persisted.
type LineItemTuple struct {
	ItemID           uuid.UUID       `json:"item_id"`
	LineItemID       *uuid.UUID      `json:"line_item_id,omitempty"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	DiscountPolicyID *uuid.UUID      `json:"discount_policy_id"`
	DiscountCouponID *uuid.UUID      `json:"discount_coupon_id"`
	DiscountedAmount decimal.Decimal `json:"discounted_amount"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
}

func NewLineItemTuple(itemId uuid.UUID, baseAmount decimal.Decimal) LineItemTuple {
	return LineItemTuple{
		ItemID:      itemId,
		BaseAmount:  baseAmount,
		FinalAmount: baseAmount,
	}
}

// A discount that may be applied to line items.
// Coupon is nil for automatic policies.
// DiscountedPrice is the item's price under a price based policy, if one is current.
type PolicyCoupon struct {
	Policy          *DiscountPolicy
	Coupon          *DiscountCoupon
	DiscountedPrice *Price
}

func TotalDiscount(lineItems []LineItemTuple) decimal.Decimal {
	total := decimal.Zero
	for _, li := range lineItems {
		total = total.Add(li.DiscountedAmount)
	}
	return total
}

func TotalFinal(lineItems []LineItemTuple) decimal.Decimal {
	total := decimal.Zero
	for _, li := range lineItems {
		total = total.Add(li.FinalAmount)
	}
	return total
}

type LineItemDiscounter struct{}

// Returns the line items with the maximum possible discount applied.
// All line items must be of the same item.
func (self LineItemDiscounter) GetDiscountedLineItems(lineItems []LineItemTuple, discounts []PolicyCoupon) ([]LineItemTuple, error) {
	if len(lineItems) == 0 {
		return nil, nil
	}
	for _, li := range lineItems[1:] {
		if li.ItemID != lineItems[0].ItemID {
			return nil, ErrMixedItems
		}
	}

	switch len(discounts) {
	case 0:
		return lineItems, nil
	case 1:
		return self.ApplyDiscount(discounts[0], lineItems, false), nil
	default:
		return self.ApplyMaxDiscount(discounts, lineItems), nil
	}
}

func (self LineItemDiscounter) CalculateDiscountedAmount(discount PolicyCoupon, lineItem LineItemTuple) decimal.Decimal {
	if lineItem.BaseAmount.IsZero() {
		return decimal.Zero
	}

	if discount.Policy.IsPriceBased {
		if discount.DiscountedPrice == nil {
			return decimal.Zero
		}
		if discount.DiscountedPrice.Amount.GreaterThanOrEqual(lineItem.BaseAmount) {
			// the base amount is already cheaper
			return decimal.Zero
		}
		return lineItem.BaseAmount.Sub(discount.DiscountedPrice.Amount)
	}

	if discount.Policy.Percentage == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(*discount.Policy.Percentage)).Mul(lineItem.BaseAmount).Div(hundred)
}

func (self LineItemDiscounter) IsCouponUsable(coupon *DiscountCoupon, appliedToCount int) bool {
	return coupon.UsageLimit-coupon.UsedCount > appliedToCount
}

// Assigns the discount to every line item it can serve.
// A line item that already carries a discount is only reassigned in combo mode
// and only when this discount is larger.
func (self LineItemDiscounter) ApplyDiscount(discount PolicyCoupon, lineItems []LineItemTuple, combo bool) []LineItemTuple {
	discounted := make([]LineItemTuple, 0, len(lineItems))
	appliedToCount := 0

	for _, li := range lineItems {
		amount := self.CalculateDiscountedAmount(discount, li)

		eligible := discount.Policy.IsAutomatic() ||
			(discount.Coupon != nil && self.IsCouponUsable(discount.Coupon, appliedToCount))
		replaceable := li.DiscountPolicyID == nil ||
			(combo && li.DiscountedAmount.LessThan(amount))

		if eligible && amount.IsPositive() && replaceable {
			policyId := discount.Policy.ID
			var couponId *uuid.UUID
			if discount.Coupon != nil {
				id := discount.Coupon.ID
				couponId = &id
			}
			discounted = append(discounted, LineItemTuple{
				ItemID:           li.ItemID,
				LineItemID:       li.LineItemID,
				BaseAmount:       li.BaseAmount,
				DiscountPolicyID: &policyId,
				DiscountCouponID: couponId,
				DiscountedAmount: amount,
				FinalAmount:      li.BaseAmount.Sub(amount),
			})
			appliedToCount++
		} else {
			discounted = append(discounted, li)
		}
	}

	return discounted
}

// Applies the discounts from last to first.
func (self LineItemDiscounter) ApplyComboDiscount(discounts []PolicyCoupon, lineItems []LineItemTuple) []LineItemTuple {
	switch len(discounts) {
	case 0:
		return lineItems
	case 1:
		return self.ApplyDiscount(discounts[0], lineItems, true)
	default:
		return self.ApplyComboDiscount(discounts[:1], self.ApplyComboDiscount(discounts[1:], lineItems))
	}
}

// Tries every combination of the discounts and keeps the one with the largest total discount.
// On a tie the first combination found wins.
func (self LineItemDiscounter) ApplyMaxDiscount(discounts []PolicyCoupon, lineItems []LineItemTuple) []LineItemTuple {
	var best []LineItemTuple
	bestTotal := decimal.Zero

	for n := 1; n <= len(discounts); n++ {
		for _, combo := range combinations(discounts, n) {
			candidate := self.ApplyComboDiscount(combo, lineItems)
			if total := TotalDiscount(candidate); best == nil || total.GreaterThan(bestTotal) {
				best, bestTotal = candidate, total
			}
		}
	}

	return best
}

// Returns the n-length combinations of the given discounts in lexicographic order of their indices.
func combinations(discounts []PolicyCoupon, n int) [][]PolicyCoupon {
	var result [][]PolicyCoupon
	var walk func(start int, picked []PolicyCoupon)
	walk = func(start int, picked []PolicyCoupon) {
		if len(picked) == n {
			combo := make([]PolicyCoupon, n)
			copy(combo, picked)
			result = append(result, combo)
			return
		}
		for i := start; i <= len(discounts)-(n-len(picked)); i++ {
			walk(i+1, append(picked, discounts[i]))
		}
	}
	walk(0, make([]PolicyCoupon, 0, n))
	return result
}
