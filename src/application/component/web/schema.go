package web

import (
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/util"
)

// Dates in admin forms look like "31 12 2023 18:30:00".
const formDateLayout = "02 01 2006 15:04:05"

const discountPolicyNewSchema util.CUEString = `
title:               string & != ""
is_price_based?:     bool | null
discount_type?:      (0 | 1) | null
percentage?:         (int & >=1 & <=100) | null
item_quantity_min?:  int | null
items:               [...string] | *[]
discount_code_base?: (string & =~"^[^.]+$") | null
price_title?:        string | null
start_at?:           string | null
end_at?:             string | null
amount?:             (number & >=0) | null
`

type discountPolicyNewBody struct {
	Title            string           `json:"title"`
	IsPriceBased     *bool            `json:"is_price_based"`
	DiscountType     *int             `json:"discount_type"`
	Percentage       *int             `json:"percentage"`
	ItemQuantityMin  *int             `json:"item_quantity_min"`
	Items            []string         `json:"items"`
	DiscountCodeBase *string          `json:"discount_code_base"`
	PriceTitle       *string          `json:"price_title"`
	StartAt          *string          `json:"start_at"`
	EndAt            *string          `json:"end_at"`
	Amount           *decimal.Decimal `json:"amount"`
}

const discountPolicyEditSchema util.CUEString = `
title?:              string | null
percentage?:         (int & >=1 & <=100) | null
item_quantity_min?:  int | null
discount_code_base?: (string & =~"^[^.]+$") | null
items?:              [...string] | null
`

type discountPolicyEditBody struct {
	Title            *string  `json:"title"`
	Percentage       *int     `json:"percentage"`
	ItemQuantityMin  *int     `json:"item_quantity_min"`
	DiscountCodeBase *string  `json:"discount_code_base"`
	Items            []string `json:"items"`
}

const generateCouponSchema util.CUEString = `
count:        int | *1
usage_limit:  int | *1
coupon_code?: string | null
`

type generateCouponBody struct {
	Count      int     `json:"count"`
	UsageLimit int     `json:"usage_limit"`
	CouponCode *string `json:"coupon_code"`
}

const itemQuantitiesSchema = `
import "list"

line_items: [...{
	item_id:  string
	quantity: int & >=0 & <=1000
}] & list.MaxItems(50)
discount_coupons: *[] | [...string] & list.MaxItems(10)
`

const kharchaSchema util.CUEString = itemQuantitiesSchema

const orderSchema util.CUEString = itemQuantitiesSchema + `
buyer: {
	email:    string & != ""
	fullname: string & != ""
	phone:    string | *""
}
`

const paymentSchema util.CUEString = `
pg_paymentid: string & != ""
`

const assignSchema util.CUEString = `
line_item_id: string
attendee: {
	fullname: string & != ""
	email:    string & != ""
	phone:    string | *""
	...
}
`

const itemSchema util.CUEString = `
title:          string & != ""
name?:          string
description:    string | *""
category_id:    string
quantity_total: int & >=0
`

const itemEditSchema util.CUEString = `
title?:          string & != ""
description?:    string
quantity_total?: int & >=0
`

const priceSchema util.CUEString = `
title:    string & != ""
name?:    string
start_at: string
end_at:   string
amount:   number & >=0
`

const organizationSchema util.CUEString = `
title:         string & != ""
name?:         string
contact_email: string & != ""
details:       {...} | *{}
`

const itemCollectionSchema util.CUEString = `
title:       string & != ""
name?:       string
description: string | *""
`

const categorySchema util.CUEString = `
title: string & != ""
name?: string
seq:   int | *0
`

const adminSchema util.CUEString = `
subject: string & != ""
`

// Decodes the request body after validating it against the schema.
// Responds and returns false if that fails.
func (self *Web) decode(w http.ResponseWriter, req *http.Request, schema util.CUEString, dst any) bool {
	body, ok := self.readBody(w, req)
	return ok && self.decodeBody(w, body, schema, dst)
}

func (self *Web) readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		self.ClientError(w, errors.WithMessage(err, "Could not read body"))
		return nil, false
	}
	return body, true
}

func (self *Web) decodeBody(w http.ResponseWriter, body []byte, schema util.CUEString, dst any) bool {
	if err := schema.Decode(body, dst); err != nil {
		self.Logger.Debug().Err(err).Msg("Invalid request body")
		self.json(w, map[string]string{"message": "Invalid details"}, http.StatusBadRequest)
		return false
	}
	return true
}

// Parses a form date in the configured time zone.
func (self *Web) parseFormDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(formDateLayout, value, self.Settings.Location())
	if err != nil {
		return t, errors.WithMessagef(err, "Invalid date %q", value)
	}
	return t.UTC(), nil
}

func (self *Web) formatFormDate(t time.Time) string {
	return t.In(self.Settings.Location()).Format(formDateLayout)
}
