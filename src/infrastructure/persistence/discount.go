package persistence

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type discountPolicyRepository struct {
	DB config.PgxIface
}

func NewDiscountPolicyRepository(db config.PgxIface) repository.DiscountPolicyRepository {
	return &discountPolicyRepository{db}
}

func (a discountPolicyRepository) WithQuerier(querier config.PgxIface) repository.DiscountPolicyRepository {
	return &discountPolicyRepository{querier}
}

type policyItem struct {
	DiscountPolicyID uuid.UUID
	ID               uuid.UUID
	Title            string
}

// Fills in the items of each policy.
func (a discountPolicyRepository) withItems(policies []domain.DiscountPolicy) error {
	if len(policies) == 0 {
		return nil
	}

	rows := []policyItem{}
	if err := pgxscan.Select(
		context.Background(), a.DB, &rows,
		`SELECT item_discount_policy.discount_policy_id, item.id, item.title
		FROM item_discount_policy
		JOIN item ON item.id = item_discount_policy.item_id
		WHERE item_discount_policy.discount_policy_id = ANY($1)
		ORDER BY item.created_at`,
		lo.Map(policies, func(p domain.DiscountPolicy, _ int) uuid.UUID { return p.ID }),
	); err != nil {
		return err
	}

	byPolicy := lo.GroupBy(rows, func(row policyItem) uuid.UUID { return row.DiscountPolicyID })
	for i := range policies {
		policies[i].Items = lo.Map(byPolicy[policies[i].ID], func(row policyItem, _ int) domain.ItemRef {
			return domain.ItemRef{ID: row.ID, Title: row.Title}
		})
	}
	return nil
}

func (a discountPolicyRepository) getOne(sql string, args ...any) (*domain.DiscountPolicy, error) {
	policies := []domain.DiscountPolicy{}
	if err := pgxscan.Select(context.Background(), a.DB, &policies, sql, args...); err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := a.withItems(policies[:1]); err != nil {
		return nil, err
	}
	return &policies[0], nil
}

func (a discountPolicyRepository) GetById(id uuid.UUID) (*domain.DiscountPolicy, error) {
	return a.getOne(`SELECT * FROM discount_policy WHERE id = $1`, id)
}

func (a discountPolicyRepository) GetByDiscountCodeBase(base string) (*domain.DiscountPolicy, error) {
	return a.getOne(`SELECT * FROM discount_policy WHERE discount_code_base = $1`, base)
}

func (a discountPolicyRepository) GetByOrganizationId(id uuid.UUID, filter repository.DiscountPolicyFilter, page *repository.Page) ([]domain.DiscountPolicy, error) {
	policies := []domain.DiscountPolicy{}
	if err := fetchPage(
		a.DB, page, &policies,
		`*`,
		`discount_policy
		WHERE organization_id = $1
		AND ($2 = '' OR title ILIKE '%' || $2 || '%')
		AND ($3::boolean IS NULL OR (discount_type = 0) = $3)`,
		`created_at DESC`,
		id, filter.Search, filter.Automatic,
	); err != nil {
		return nil, err
	}
	return policies, a.withItems(policies)
}

func (a discountPolicyRepository) GetByItemId(id uuid.UUID) ([]domain.DiscountPolicy, error) {
	policies := []domain.DiscountPolicy{}
	if err := pgxscan.Select(
		context.Background(), a.DB, &policies,
		`SELECT discount_policy.*
		FROM discount_policy
		JOIN item_discount_policy ON item_discount_policy.discount_policy_id = discount_policy.id
		WHERE item_discount_policy.item_id = $1
		ORDER BY discount_policy.created_at`,
		id,
	); err != nil {
		return nil, err
	}
	return policies, a.withItems(policies)
}

func (a discountPolicyRepository) GetAutomaticByItemId(id uuid.UUID, quantity int) ([]domain.DiscountPolicy, error) {
	policies := []domain.DiscountPolicy{}
	return policies, pgxscan.Select(
		context.Background(), a.DB, &policies,
		`SELECT discount_policy.*
		FROM discount_policy
		JOIN item_discount_policy ON item_discount_policy.discount_policy_id = discount_policy.id
		WHERE item_discount_policy.item_id = $1
		AND discount_policy.discount_type = $2
		AND discount_policy.item_quantity_min <= $3
		ORDER BY discount_policy.created_at`,
		id, domain.DiscountTypeAutomatic, quantity,
	)
}

func (a discountPolicyRepository) Save(policy *domain.DiscountPolicy) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO discount_policy (organization_id, title, name, discount_type, item_quantity_min, percentage, is_price_based, discount_code_base, secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		policy.OrganizationID, policy.Title, policy.Name, policy.DiscountType, policy.ItemQuantityMin,
		policy.Percentage, policy.IsPriceBased, policy.DiscountCodeBase, policy.Secret,
	).Scan(&policy.ID, &policy.CreatedAt)
}

func (a discountPolicyRepository) Update(policy *domain.DiscountPolicy) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE discount_policy SET
			title = $2,
			item_quantity_min = $3,
			percentage = $4,
			discount_code_base = $5,
			secret = $6
		WHERE id = $1`,
		policy.ID, policy.Title, policy.ItemQuantityMin, policy.Percentage, policy.DiscountCodeBase, policy.Secret,
	)
	return err
}

func (a discountPolicyRepository) SetItems(id uuid.UUID, itemIds []uuid.UUID) error {
	if _, err := a.DB.Exec(
		context.Background(),
		`DELETE FROM item_discount_policy WHERE discount_policy_id = $1`,
		id,
	); err != nil {
		return err
	}
	_, err := a.DB.Exec(
		context.Background(),
		`INSERT INTO item_discount_policy (discount_policy_id, item_id) SELECT $1, unnest($2::uuid[])`,
		id, itemIds,
	)
	return err
}

type discountCouponRepository struct {
	DB config.PgxIface
}

func NewDiscountCouponRepository(db config.PgxIface) repository.DiscountCouponRepository {
	return &discountCouponRepository{db}
}

func (a discountCouponRepository) WithQuerier(querier config.PgxIface) repository.DiscountCouponRepository {
	return &discountCouponRepository{querier}
}

func (a discountCouponRepository) GetById(id uuid.UUID) (*domain.DiscountCoupon, error) {
	coupon := domain.DiscountCoupon{}
	return &coupon, notFound(pgxscan.Get(
		context.Background(), a.DB, &coupon,
		`SELECT * FROM discount_coupon WHERE id = $1`,
		id,
	))
}

func (a discountCouponRepository) GetByPolicyId(id uuid.UUID) ([]domain.DiscountCoupon, error) {
	coupons := []domain.DiscountCoupon{}
	return coupons, pgxscan.Select(
		context.Background(), a.DB, &coupons,
		`SELECT * FROM discount_coupon WHERE discount_policy_id = $1 ORDER BY code`,
		id,
	)
}

func (a discountCouponRepository) GetByPolicyIdAndCode(id uuid.UUID, code string) (*domain.DiscountCoupon, error) {
	coupon := domain.DiscountCoupon{}
	return &coupon, notFound(pgxscan.Get(
		context.Background(), a.DB, &coupon,
		`SELECT * FROM discount_coupon WHERE discount_policy_id = $1 AND code = $2`,
		id, code,
	))
}

func (a discountCouponRepository) GetByCodeForItemId(code string, itemId uuid.UUID) (*domain.DiscountCoupon, error) {
	coupon := domain.DiscountCoupon{}
	return &coupon, notFound(pgxscan.Get(
		context.Background(), a.DB, &coupon,
		`SELECT discount_coupon.*
		FROM discount_coupon
		JOIN item_discount_policy ON item_discount_policy.discount_policy_id = discount_coupon.discount_policy_id
		WHERE discount_coupon.code = $1 AND item_discount_policy.item_id = $2
		LIMIT 1`,
		code, itemId,
	))
}

func (a discountCouponRepository) Save(coupon *domain.DiscountCoupon) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO discount_coupon (discount_policy_id, code, usage_limit, used_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		coupon.DiscountPolicyID, coupon.Code, coupon.UsageLimit, coupon.UsedCount,
	).Scan(&coupon.ID)
}

func (a discountCouponRepository) UpdateUsedCount(ids []uuid.UUID) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE discount_coupon SET used_count = (
			SELECT count(*) FROM line_item
			WHERE line_item.discount_coupon_id = discount_coupon.id AND line_item.status = $2
		)
		WHERE id = ANY($1)`,
		ids, domain.LineItemStatusConfirmed,
	)
	return err
}
