package web

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/application/service"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type itemQuantitiesBody struct {
	LineItems       []service.ItemQuantity `json:"line_items"`
	DiscountCoupons []string               `json:"discount_coupons"`
}

type lineItemQuote struct {
	Quantity          int             `json:"quantity"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
	DiscountedAmount  decimal.Decimal `json:"discounted_amount"`
	DiscountPolicyIds []string        `json:"discount_policy_ids"`
}

func quotesJson(quotes []service.ItemQuote) map[string]lineItemQuote {
	return lo.Associate(quotes, func(quote service.ItemQuote) (string, lineItemQuote) {
		return quote.Item.ID.String(), lineItemQuote{
			Quantity:          quote.Quantity(),
			FinalAmount:       quote.FinalAmount(),
			DiscountedAmount:  quote.DiscountedAmount(),
			DiscountPolicyIds: lo.Map(quote.DiscountPolicyIds(), func(id uuid.UUID, _ int) string { return id.String() }),
		}
	})
}

func (self *Web) IcIdGet(w http.ResponseWriter, req *http.Request) {
	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	catalog, err := self.CatalogService.GetCatalog(id, time.Now())
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, catalog, http.StatusOK)
}

func (self *Web) IcIdKharchaPost(w http.ResponseWriter, req *http.Request) {
	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	body := itemQuantitiesBody{}
	if !self.decode(w, req, kharchaSchema, &body) {
		return
	}

	quotes, err := self.LineItemService.Calculate(id, service.MergeItemQuantities(body.LineItems), body.DiscountCoupons, time.Now())
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, map[string]any{
		"line_items":  quotesJson(quotes),
		"order_total": service.OrderTotal(quotes),
	}, http.StatusOK)
}

// Identifies the order to the payment gateway's checkout.
func orderHash(order domain.Order) string {
	return base64.RawURLEncoding.EncodeToString(order.ID[:])
}

func (self *Web) IcIdOrderPost(w http.ResponseWriter, req *http.Request) {
	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	body := struct {
		itemQuantitiesBody
		Buyer domain.Buyer `json:"buyer"`
	}{}
	if !self.decode(w, req, orderSchema, &body) {
		return
	}

	ic, err := self.CatalogService.GetItemCollection(id)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	order, quotes, err := self.OrderService.Create(ic, body.Buyer, body.LineItems, body.DiscountCoupons, time.Now())
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, map[string]any{
		"order_id":           order.ID,
		"order_access_token": order.AccessToken,
		"order_hash":         orderHash(*order),
		"final_amount":       service.OrderTotal(quotes),
	}, http.StatusCreated)
}

func (self *Web) OrderIdFreePost(w http.ResponseWriter, req *http.Request) {
	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	order, err := self.OrderService.ConfirmFree(id)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{
		"message":    "Free order confirmed",
		"order_id":   order.ID,
		"invoice_no": order.InvoiceNo,
	}), http.StatusCreated)
}

func (self *Web) OrderIdPaymentPost(w http.ResponseWriter, req *http.Request) {
	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	body := struct {
		PgPaymentId string `json:"pg_paymentid"`
	}{}
	if !self.decode(w, req, paymentSchema, &body) {
		return
	}

	order, err := self.OrderService.Pay(req.Context(), id, body.PgPaymentId)
	if unconfirmedErr := (service.UnconfirmedPaymentError{}); errors.As(err, &unconfirmedErr) {
		self.JsonError(w, APIError{
			Message:         fmt.Sprintf("Payment %s was captured for order - %s but the order could not be confirmed - %s", unconfirmedErr.PgPaymentID, id, unconfirmedErr),
			StatusCode:      http.StatusInternalServerError,
			ResponseMessage: "Your payment was received but the order could not be confirmed. Please contact support.",
		})
		return
	} else if paymentErr := (service.PaymentError{}); errors.As(err, &paymentErr) {
		self.JsonError(w, APIError{
			Message:         fmt.Sprintf("Online payment failed for order - %s with the following details - %s", id, paymentErr),
			StatusCode:      http.StatusBadGateway,
			ResponseMessage: "Online payment failed. Please try again or contact support.",
		})
		return
	} else if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{
		"message":    "Payment verified",
		"order_id":   order.ID,
		"invoice_no": order.InvoiceNo,
	}), http.StatusCreated)
}

func (self *Web) OrderAccessTokenTicketGet(w http.ResponseWriter, req *http.Request) {
	ticket, err := self.OrderService.GetTicket(mux.Vars(req)["access_token"])
	if err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, ticket, http.StatusOK)
}

func (self *Web) ParticipantAccessTokenAssignPost(w http.ResponseWriter, req *http.Request) {
	body := struct {
		LineItemID uuid.UUID      `json:"line_item_id"`
		Attendee   map[string]any `json:"attendee"`
	}{}
	if !self.decode(w, req, assignSchema, &body) {
		return
	}

	assignee := domain.Assignee{
		LineItemID: body.LineItemID,
		Details:    map[string]any{},
	}
	for key, value := range body.Attendee {
		switch key {
		case "fullname":
			assignee.Fullname, _ = value.(string)
		case "email":
			assignee.Email, _ = value.(string)
		case "phone":
			assignee.Phone, _ = value.(string)
		default:
			assignee.Details[key] = value
		}
	}

	if err := self.OrderService.Assign(mux.Vars(req)["access_token"], &assignee); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "Ticket assigned", "assignee": assignee}), http.StatusOK)
}
