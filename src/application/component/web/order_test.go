package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/mock"

	"github.com/input-output-hk/boxoffice/src/application/service"
	"github.com/input-output-hk/boxoffice/src/domain"
)

// Two tickets, one of them discounted by the given policy.
func discountedQuote(itemId, policyId uuid.UUID) service.ItemQuote {
	discounted := domain.NewLineItemTuple(itemId, decimal.NewFromInt(500))
	discounted.DiscountPolicyID = &policyId
	discounted.DiscountedAmount = decimal.NewFromInt(50)
	discounted.FinalAmount = decimal.NewFromInt(450)

	return service.ItemQuote{
		Item: domain.Item{ID: itemId, Title: "Conference ticket"},
		LineItems: []domain.LineItemTuple{
			discounted,
			domain.NewLineItemTuple(itemId, decimal.NewFromInt(500)),
		},
	}
}

func TestKharcha(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	icId, itemId, policyId := uuid.New(), uuid.New(), uuid.New()

	// given
	f.lineItemService.
		On("Calculate", icId, []service.ItemQuantity{{ItemID: itemId, Quantity: 2}}, []string{"GEEK"}).
		Return([]service.ItemQuote{discountedQuote(itemId, policyId)}, nil)

	// when / then
	apitest.New().
		Handler(f.handler).
		Post("/ic/"+icId.String()+"/kharcha").
		JSON(fmt.Sprintf(`{
			"line_items": [{"item_id": %[1]q, "quantity": 1}, {"item_id": %[1]q, "quantity": 1}],
			"discount_coupons": ["GEEK"]
		}`, itemId)).
		Expect(t).
		Status(http.StatusOK).
		Body(fmt.Sprintf(`{
			"line_items": {
				%q: {
					"quantity": 2,
					"final_amount": "950",
					"discounted_amount": "50",
					"discount_policy_ids": [%q]
				}
			},
			"order_total": "950"
		}`, itemId, policyId)).
		End()

	f.assertExpectations(t)
}

func TestKharchaInvalidBody(t *testing.T) {
	t.Parallel()

	itemId := uuid.NewString()

	for name, body := range map[string]string{
		"negative quantity": `{"line_items": [{"quantity": -1}]}`,
		"huge quantity":     fmt.Sprintf(`{"line_items": [{"item_id": %q, "quantity": 3000000}]}`, itemId),
		"too many coupons": fmt.Sprintf(
			`{"line_items": [{"item_id": %q, "quantity": 1}], "discount_coupons": ["A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"]}`,
			itemId,
		),
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := newWebFixture(t)

			apitest.New().
				Handler(f.handler).
				Post("/ic/"+uuid.NewString()+"/kharcha").
				JSON(body).
				Expect(t).
				Status(http.StatusBadRequest).
				Body(`{"message": "Invalid details"}`).
				End()

			f.assertExpectations(t)
		})
	}
}

func TestOrderCreate(t *testing.T) {
	t.Parallel()

	ic := &domain.ItemCollection{ID: uuid.New(), OrganizationID: uuid.New(), Title: "PyCon"}
	itemId, policyId := uuid.New(), uuid.New()
	buyer := domain.Buyer{Email: "ada@example.com", Fullname: "Ada Lovelace"}
	items := []service.ItemQuantity{{ItemID: itemId, Quantity: 2}}
	body := fmt.Sprintf(`{
		"line_items": [{"item_id": %q, "quantity": 2}],
		"buyer": {"email": "ada@example.com", "fullname": "Ada Lovelace"}
	}`, itemId)

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		order := &domain.Order{ID: uuid.New(), ItemCollectionID: ic.ID, AccessToken: "order-token"}

		// given
		f.catalogService.On("GetItemCollection", ic.ID).Return(ic, nil)
		f.orderService.
			On("Create", ic, buyer, items, []string{}).
			Return(order, []service.ItemQuote{discountedQuote(itemId, policyId)}, nil)

		// when / then
		apitest.New().
			Handler(f.handler).
			Post("/ic/"+ic.ID.String()+"/order").
			JSON(body).
			Expect(t).
			Status(http.StatusCreated).
			Body(fmt.Sprintf(`{
				"order_id": %q,
				"order_access_token": "order-token",
				"order_hash": %q,
				"final_amount": "950"
			}`, order.ID, orderHash(*order))).
			End()

		f.assertExpectations(t)
	})

	t.Run("out of stock", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)

		// given
		f.catalogService.On("GetItemCollection", ic.ID).Return(ic, nil)
		f.orderService.
			On("Create", ic, buyer, items, []string{}).
			Return(nil, nil, errors.WithMessage(domain.ErrOutOfStock, "Conference ticket"))

		// when / then
		apitest.New().
			Handler(f.handler).
			Post("/ic/"+ic.ID.String()+"/order").
			JSON(body).
			Expect(t).
			Status(http.StatusBadRequest).
			Body(`{"status": "error", "error": "out_of_stock", "error_description": "Conference ticket: item is out of stock"}`).
			End()
	})
}

func TestOrderPayment(t *testing.T) {
	t.Parallel()

	t.Run("verified", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		invoiceNo := 7
		order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusSalesOrder, InvoiceNo: &invoiceNo}

		f.orderService.On("Pay", order.ID, "pay_123").Return(order, nil)

		apitest.New().
			Handler(f.handler).
			Post("/order/"+order.ID.String()+"/payment").
			JSON(`{"pg_paymentid": "pay_123"}`).
			Expect(t).
			Status(http.StatusCreated).
			Body(fmt.Sprintf(`{
				"status": "ok",
				"result": {"message": "Payment verified", "order_id": %q, "invoice_no": 7}
			}`, order.ID)).
			End()

		f.assertExpectations(t)
	})

	t.Run("gateway failure notifies admins", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		orderId := uuid.New()

		// given
		f.orderService.On("Pay", orderId, "pay_123").Return(nil, service.NewPaymentError(errors.New("payment was not captured")))
		f.mailService.
			On("SendAPIError", fmt.Sprintf("Online payment failed for order - %s with the following details - payment was not captured", orderId)).
			Return(nil)

		// when / then
		apitest.New().
			Handler(f.handler).
			Post("/order/"+orderId.String()+"/payment").
			JSON(`{"pg_paymentid": "pay_123"}`).
			Expect(t).
			Status(http.StatusBadGateway).
			Body(`{"message": "Online payment failed. Please try again or contact support."}`).
			End()

		f.assertExpectations(t)
	})

	t.Run("captured but unconfirmed notifies admins", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		orderId := uuid.New()

		// given
		f.orderService.On("Pay", orderId, "pay_123").
			Return(nil, service.NewUnconfirmedPaymentError("pay_123", errors.WithMessage(domain.ErrOutOfStock, "Could not reserve 1 of Item")))
		f.mailService.
			On("SendAPIError", fmt.Sprintf("Payment pay_123 was captured for order - %s but the order could not be confirmed - Could not reserve 1 of Item: item is out of stock", orderId)).
			Return(nil)

		// when / then
		apitest.New().
			Handler(f.handler).
			Post("/order/"+orderId.String()+"/payment").
			JSON(`{"pg_paymentid": "pay_123"}`).
			Expect(t).
			Status(http.StatusInternalServerError).
			Body(`{"message": "Your payment was received but the order could not be confirmed. Please contact support."}`).
			End()

		f.assertExpectations(t)
	})

	t.Run("not payable", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		orderId := uuid.New()

		f.orderService.On("Pay", orderId, "pay_123").Return(nil, errors.WithMessagef(domain.ErrOrderNotPayable, "Order %s", orderId))

		apitest.New().
			Handler(f.handler).
			Post("/order/"+orderId.String()+"/payment").
			JSON(`{"pg_paymentid": "pay_123"}`).
			Expect(t).
			Status(http.StatusBadRequest).
			Body(fmt.Sprintf(`{"status": "error", "error": "invalid_state", "error_description": "Order %s: order is not awaiting payment"}`, orderId)).
			End()

		f.mailService.AssertNotCalled(t, "SendAPIError", mock.Anything)
	})
}

func TestOrderFree(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	invoiceNo := 3
	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusSalesOrder, InvoiceNo: &invoiceNo}

	f.orderService.On("ConfirmFree", order.ID).Return(order, nil)

	apitest.New().
		Handler(f.handler).
		Post("/order/"+order.ID.String()+"/free").
		Expect(t).
		Status(http.StatusCreated).
		Body(fmt.Sprintf(`{
			"status": "ok",
			"result": {"message": "Free order confirmed", "order_id": %q, "invoice_no": 3}
		}`, order.ID)).
		End()

	f.assertExpectations(t)
}

func TestAssign(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	lineItemId := uuid.New()

	// given
	f.orderService.
		On("Assign", "participant-token", mock.MatchedBy(func(assignee *domain.Assignee) bool {
			return assignee.LineItemID == lineItemId &&
				assignee.Fullname == "Ada Lovelace" &&
				assignee.Email == "ada@example.com" &&
				assignee.Phone == "" &&
				len(assignee.Details) == 2 &&
				assignee.Details["company"] == "Analytical Engines" &&
				assignee.Details["city"] == "London"
		})).
		Return(nil)

	// when / then
	apitest.New().
		Handler(f.handler).
		Post("/participant/participant-token/assign").
		JSON(fmt.Sprintf(`{
			"line_item_id": %q,
			"attendee": {
				"fullname": "Ada Lovelace",
				"email": "ada@example.com",
				"company": "Analytical Engines",
				"city": "London"
			}
		}`, lineItemId)).
		Expect(t).
		Status(http.StatusOK).
		End()

	f.assertExpectations(t)
}

func TestCancelLineItem(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	order := &domain.Order{ID: uuid.New(), OrganizationID: f.org.ID}
	lineItem := &domain.LineItem{ID: uuid.New(), OrderID: order.ID}

	// given
	f.orderService.On("GetLineItem", lineItem.ID).Return(lineItem, nil)
	f.orderService.On("GetById", order.ID).Return(order, nil)
	f.organizationService.On("IsAdmin", f.org.ID, "alice").Return(true, nil)
	f.orderService.On("CancelLineItem", lineItem.ID).Return(lineItem, nil)

	// when / then
	xhr(apitest.New().Handler(f.handler), t, http.MethodPost, "/admin/line_item/"+lineItem.ID.String()+"/cancel").
		Expect(t).
		Status(http.StatusOK).
		End()

	f.assertExpectations(t)
}
