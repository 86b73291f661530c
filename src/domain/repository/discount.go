package repository

import (
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type DiscountPolicyFilter struct {
	Search string
	// Only automatic policies if true, only coupon based ones if false.
	Automatic *bool
}

type DiscountPolicyRepository interface {
	WithQuerier(config.PgxIface) DiscountPolicyRepository

	GetById(uuid.UUID) (*domain.DiscountPolicy, error)
	GetByOrganizationId(uuid.UUID, DiscountPolicyFilter, *Page) ([]domain.DiscountPolicy, error)
	GetByItemId(uuid.UUID) ([]domain.DiscountPolicy, error)
	GetAutomaticByItemId(uuid.UUID, int) ([]domain.DiscountPolicy, error)
	GetByDiscountCodeBase(string) (*domain.DiscountPolicy, error)
	Save(*domain.DiscountPolicy) error
	Update(*domain.DiscountPolicy) error
	SetItems(uuid.UUID, []uuid.UUID) error
}

type DiscountCouponRepository interface {
	WithQuerier(config.PgxIface) DiscountCouponRepository

	GetById(uuid.UUID) (*domain.DiscountCoupon, error)
	GetByPolicyId(uuid.UUID) ([]domain.DiscountCoupon, error)
	GetByPolicyIdAndCode(uuid.UUID, string) (*domain.DiscountCoupon, error)
	// Finds a coupon with the given code whose policy discounts the given item.
	GetByCodeForItemId(string, uuid.UUID) (*domain.DiscountCoupon, error)
	Save(*domain.DiscountCoupon) error
	// Recounts the confirmed line items that used each coupon.
	UpdateUsedCount([]uuid.UUID) error
}
