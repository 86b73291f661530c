package web

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

const discountPoliciesPerPage = 6

type priceDetails struct {
	PriceTitle string `json:"price_title"`
	Amount     string `json:"amount"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
}

type discountPolicyResponse struct {
	ID               uuid.UUID           `json:"id"`
	Title            string              `json:"title"`
	DiscountType     domain.DiscountType `json:"discount_type"`
	ItemQuantityMin  int                 `json:"item_quantity_min"`
	Percentage       *int                `json:"percentage"`
	IsPriceBased     bool                `json:"is_price_based"`
	DiscountCodeBase *string             `json:"discount_code_base"`
	Secret           *string             `json:"secret"`
	Discount         any                 `json:"discount"`
	PriceDetails     any                 `json:"price_details"`
	Currency         string              `json:"currency"`
	DpItems          []domain.ItemRef    `json:"dp_items"`
}

// Price based policies show their price instead of a percentage.
func (self *Web) discountPolicyJson(policy domain.DiscountPolicy) (discountPolicyResponse, error) {
	res := discountPolicyResponse{
		ID:               policy.ID,
		Title:            policy.Title,
		DiscountType:     policy.DiscountType,
		ItemQuantityMin:  policy.ItemQuantityMin,
		Percentage:       policy.Percentage,
		IsPriceBased:     policy.IsPriceBased,
		DiscountCodeBase: policy.DiscountCodeBase,
		Secret:           policy.Secret,
		Discount:         "",
		PriceDetails:     "",
		Currency:         application.CurrencySymbol(self.Settings.CurrencyUnit()),
		DpItems:          policy.Items,
	}
	if res.DpItems == nil {
		res.DpItems = []domain.ItemRef{}
	}

	if !policy.IsPriceBased {
		res.Discount = policy.Percentage
		return res, nil
	}

	if price, err := self.DiscountPolicyService.GetPrice(policy.ID); errors.Is(err, domain.ErrNotFound) {
		res.PriceDetails = nil
	} else if err != nil {
		return res, err
	} else {
		res.PriceDetails = priceDetails{
			PriceTitle: price.Title,
			Amount:     price.Amount.String(),
			StartAt:    self.formatFormDate(price.StartAt),
			EndAt:      self.formatFormDate(price.EndAt),
		}
	}

	return res, nil
}

func (self *Web) AdminOrgDiscountPoliciesGet(w http.ResponseWriter, req *http.Request) {
	org, ok := self.adminOrganization(w, req)
	if !ok {
		return
	}

	if !isXhr(req) {
		self.renderAdmin(w, req, "discount_policies", org.Title, map[string]any{
			"org_name": org.Name,
			"title":    org.Title,
		})
		return
	}

	pageNumber := queryInt(req, "page", 1)
	if pageNumber < 1 {
		pageNumber = 1
	}
	page := repository.NewPage(pageNumber, discountPoliciesPerPage)

	filter := repository.DiscountPolicyFilter{Search: strings.TrimSpace(req.URL.Query().Get("search"))}
	switch req.URL.Query().Get("type") {
	case "automatic":
		filter.Automatic = lo.ToPtr(true)
	case "coupon":
		filter.Automatic = lo.ToPtr(false)
	}

	policies, err := self.DiscountPolicyService.GetByOrganizationId(org.ID, filter, page)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	policiesJson := make([]discountPolicyResponse, len(policies))
	for i, policy := range policies {
		if policiesJson[i], err = self.discountPolicyJson(policy); err != nil {
			self.JsonError(w, err)
			return
		}
	}

	self.json(w, map[string]any{
		"org_name":          org.Name,
		"title":             org.Title,
		"discount_policies": policiesJson,
		"total_pages":       page.Pages(),
		"paginated":         page.Pages() > 1,
		"current_page":      pageNumber,
	}, http.StatusOK)
}

func parseItemIds(ids []string) ([]uuid.UUID, error) {
	parsed := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		var err error
		if parsed[i], err = uuid.Parse(id); err != nil {
			return nil, errors.WithMessagef(err, "Invalid item %q", id)
		}
	}
	return lo.Uniq(parsed), nil
}

func (self *Web) AdminOrgDiscountPolicyNewPost(w http.ResponseWriter, req *http.Request) {
	org, ok := self.adminOrganization(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	body := discountPolicyNewBody{}
	if !self.decode(w, req, discountPolicyNewSchema, &body) {
		return
	}

	if body.IsPriceBased == nil {
		self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discount type missing")
		return
	}
	if len(body.Items) == 0 {
		self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discounted ticket missing")
		return
	}
	itemIds, err := parseItemIds(body.Items)
	if err != nil {
		self.JsonError(w, HandlerError{err, http.StatusBadRequest})
		return
	}

	policy := domain.DiscountPolicy{
		OrganizationID:  org.ID,
		Title:           body.Title,
		ItemQuantityMin: 1,
	}
	if body.DiscountCodeBase != nil && *body.DiscountCodeBase != "" {
		policy.DiscountCodeBase = body.DiscountCodeBase
		secret := domain.NewPolicySecret()
		policy.Secret = &secret
	}

	var price *domain.Price
	if *body.IsPriceBased {
		policy.DiscountType = domain.DiscountTypeCoupon
		policy.IsPriceBased = true
		// a price belongs to one item
		itemIds = itemIds[:1]

		if body.StartAt == nil || body.EndAt == nil || body.Amount == nil {
			self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discounted price missing")
			return
		}

		price = &domain.Price{
			ItemID:   itemIds[0],
			Title:    lo.FromPtr(body.PriceTitle),
			Amount:   *body.Amount,
			Currency: self.Settings.CurrencyUnit().String(),
		}
		if price.StartAt, err = self.parseFormDate(*body.StartAt); err != nil {
			self.JsonError(w, HandlerError{err, http.StatusBadRequest})
			return
		}
		if price.EndAt, err = self.parseFormDate(*body.EndAt); err != nil {
			self.JsonError(w, HandlerError{err, http.StatusBadRequest})
			return
		}
	} else {
		if body.DiscountType == nil {
			self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discount type missing")
			return
		}
		if body.Percentage == nil {
			self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discount percentage missing")
			return
		}
		policy.Percentage = body.Percentage

		if domain.DiscountType(*body.DiscountType) == domain.DiscountTypeCoupon {
			policy.DiscountType = domain.DiscountTypeCoupon
		} else {
			if body.ItemQuantityMin == nil || *body.ItemQuantityMin < 1 {
				self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Minimum number of tickets missing")
				return
			}
			policy.DiscountType = domain.DiscountTypeAutomatic
			policy.ItemQuantityMin = *body.ItemQuantityMin
		}
	}

	if err := self.DiscountPolicyService.Create(&policy, itemIds, price); err != nil {
		self.JsonError(w, err)
		return
	}

	self.respondDiscountPolicy(w, policy.ID, "New discount policy created")
}

// Reloads the policy so the response shows its items.
func (self *Web) respondDiscountPolicy(w http.ResponseWriter, id uuid.UUID, message string) {
	policy, err := self.DiscountPolicyService.GetById(id)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	policyJson, err := self.discountPolicyJson(*policy)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{
		"message":         message,
		"discount_policy": policyJson,
	}), http.StatusCreated)
}

func (self *Web) AdminDiscountPolicyIdEditPost(w http.ResponseWriter, req *http.Request) {
	policy, ok := self.adminDiscountPolicy(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	raw, ok := self.readBody(w, req)
	if !ok {
		return
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		self.jsonFailure(w, http.StatusBadRequest, "missing_details", "Discount policy details missing")
		return
	}

	body := discountPolicyEditBody{}
	if !self.decodeBody(w, raw, discountPolicyEditSchema, &body) {
		return
	}

	if body.Title != nil && *body.Title != "" {
		policy.Title = *body.Title
	}
	if !policy.IsPriceBased {
		if body.Percentage != nil {
			policy.Percentage = body.Percentage
		}
		if body.DiscountCodeBase != nil && *body.DiscountCodeBase != "" {
			policy.DiscountCodeBase = body.DiscountCodeBase
			secret := domain.NewPolicySecret()
			policy.Secret = &secret
		}
	}
	if policy.IsAutomatic() && body.ItemQuantityMin != nil {
		if *body.ItemQuantityMin < 1 {
			self.jsonFailure(w, http.StatusBadRequest, "item_quantity_min_error", "Minimum item quantity cannot be less than one")
			return
		}
		policy.ItemQuantityMin = *body.ItemQuantityMin
	}

	var itemIds []uuid.UUID
	if len(body.Items) > 0 {
		var err error
		if itemIds, err = parseItemIds(body.Items); err != nil {
			self.JsonError(w, HandlerError{err, http.StatusBadRequest})
			return
		}
	}

	if err := self.DiscountPolicyService.Update(policy, itemIds); err != nil {
		self.JsonError(w, err)
		return
	}

	self.respondDiscountPolicy(w, policy.ID, "Discount policy updated")
}

type couponResponse struct {
	Code       string `json:"code"`
	UsageLimit *int   `json:"usage_limit,omitempty"`
	Available  *int   `json:"available,omitempty"`
}

func (self *Web) AdminDiscountPolicyIdGenerateCouponPost(w http.ResponseWriter, req *http.Request) {
	policy, ok := self.adminDiscountPolicy(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	body := generateCouponBody{}
	if !self.decode(w, req, generateCouponSchema, &body) {
		return
	}

	coupons := []couponResponse{}
	if body.Count > 1 {
		codes, err := self.DiscountPolicyService.GenerateSignedCodes(policy, body.Count)
		if err != nil {
			self.JsonError(w, err)
			return
		}
		for _, code := range codes {
			coupons = append(coupons, couponResponse{Code: code})
		}
	} else {
		if body.UsageLimit < 1 {
			self.jsonFailure(w, http.StatusBadRequest, "error_usage_limit", "Discount coupon usage limit cannot be less than 1")
			return
		}

		coupon, err := self.DiscountPolicyService.CreateCoupon(policy, lo.FromPtr(body.CouponCode), body.UsageLimit)
		if err != nil {
			self.JsonError(w, err)
			return
		}
		coupons = append(coupons, couponResponse{Code: coupon.Code, UsageLimit: &coupon.UsageLimit})
	}

	self.json(w, success(map[string]any{
		"message": "Discount coupon created",
		"coupons": coupons,
	}), http.StatusCreated)
}

func (self *Web) AdminDiscountPolicyIdCouponsGet(w http.ResponseWriter, req *http.Request) {
	policy, ok := self.adminDiscountPolicy(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	coupons, err := self.DiscountPolicyService.GetCoupons(policy.ID)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{
		"message": "Discount coupons",
		"coupons": lo.Map(coupons, func(coupon domain.DiscountCoupon, _ int) couponResponse {
			usageLimit, available := coupon.UsageLimit, coupon.Available()
			return couponResponse{Code: coupon.Code, UsageLimit: &usageLimit, Available: &available}
		}),
	}), http.StatusCreated)
}
