package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrOutOfStock       = errors.New("item is out of stock")
	ErrNoCurrentPrice   = errors.New("item has no current price")
	ErrBadSignature     = errors.New("coupon code signature does not match")
	ErrDottedCodePart   = errors.New("signed code parts must not contain a dot")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrMixedItems       = errors.New("line items must be of the same item")
	ErrOrderNotPayable  = errors.New("order is not awaiting payment")
	ErrLineItemNotFound = errors.New("line item does not belong to this order")
)
