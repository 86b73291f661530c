package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus int

const (
	OrderStatusPurchaseOrder OrderStatus = iota
	OrderStatusSalesOrder
	OrderStatusInvoice
	OrderStatusCancelled
)

func (self OrderStatus) String() string {
	switch self {
	case OrderStatusPurchaseOrder:
		return "purchase_order"
	case OrderStatusSalesOrder:
		return "sales_order"
	case OrderStatusInvoice:
		return "invoice"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Order struct {
	ID               uuid.UUID   `json:"id"`
	OrganizationID   uuid.UUID   `json:"organization_id"`
	ItemCollectionID uuid.UUID   `json:"item_collection_id"`
	Status           OrderStatus `json:"status"`
	InitiatedAt      time.Time   `json:"initiated_at"`
	PaidAt           *time.Time  `json:"paid_at"`
	InvoicedAt       *time.Time  `json:"invoiced_at"`
	CancelledAt      *time.Time  `json:"cancelled_at"`
	AccessToken      string      `json:"-"`
	BuyerEmail       string      `json:"buyer_email"`
	BuyerFullname    string      `json:"buyer_fullname"`
	BuyerPhone       string      `json:"buyer_phone"`
	InvoiceNo        *int        `json:"invoice_no"`
}

func (self Order) IsConfirmed() bool {
	return self.Status == OrderStatusSalesOrder || self.Status == OrderStatusInvoice
}

type Buyer struct {
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
	Phone    string `json:"phone"`
}

type LineItemStatus int

const (
	LineItemStatusConfirmed LineItemStatus = iota
	LineItemStatusCancelled
	LineItemStatusPurchaseOrder
	LineItemStatusVoid
)

func (self LineItemStatus) String() string {
	switch self {
	case LineItemStatusConfirmed:
		return "confirmed"
	case LineItemStatusCancelled:
		return "cancelled"
	case LineItemStatusPurchaseOrder:
		return "purchase_order"
	case LineItemStatusVoid:
		return "void"
	default:
		return "unknown"
	}
}

type LineItem struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"order_id"`
	ItemID           uuid.UUID       `json:"item_id"`
	Seq              int             `json:"seq"`
	DiscountPolicyID *uuid.UUID      `json:"discount_policy_id"`
	DiscountCouponID *uuid.UUID      `json:"discount_coupon_id"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	DiscountedAmount decimal.Decimal `json:"discounted_amount"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	Status           LineItemStatus  `json:"status"`
	OrderedAt        time.Time       `json:"ordered_at"`
	CancelledAt      *time.Time      `json:"cancelled_at"`
}

func (self LineItem) IsConfirmed() bool {
	return self.Status == LineItemStatusConfirmed
}

func (self LineItem) IsFree() bool {
	return self.FinalAmount.IsZero()
}

type Assignee struct {
	ID         uuid.UUID      `json:"id"`
	LineItemID uuid.UUID      `json:"line_item_id"`
	Fullname   string         `json:"fullname"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Details    map[string]any `json:"details"`
	Current    bool           `json:"current"`
}

type TransactionType int

const (
	TransactionTypePayment TransactionType = iota
	TransactionTypeRefund
)

type OnlinePayment struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	PgPaymentID string     `json:"pg_paymentid" db:"pg_paymentid"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	FailedAt    *time.Time `json:"failed_at"`
}

type PaymentTransaction struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	OnlinePaymentID *uuid.UUID      `json:"online_payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionType TransactionType `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
}
