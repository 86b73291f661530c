package persistence

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type orderRepository struct {
	DB config.PgxIface
}

func NewOrderRepository(db config.PgxIface) repository.OrderRepository {
	return &orderRepository{db}
}

func (a orderRepository) WithQuerier(querier config.PgxIface) repository.OrderRepository {
	return &orderRepository{querier}
}

func (a orderRepository) GetById(id uuid.UUID) (*domain.Order, error) {
	order := domain.Order{}
	return &order, notFound(pgxscan.Get(
		context.Background(), a.DB, &order,
		`SELECT * FROM customer_order WHERE id = $1`,
		id,
	))
}

func (a orderRepository) GetByAccessToken(token string) (*domain.Order, error) {
	order := domain.Order{}
	return &order, notFound(pgxscan.Get(
		context.Background(), a.DB, &order,
		`SELECT * FROM customer_order WHERE access_token = $1`,
		token,
	))
}

func (a orderRepository) Save(order *domain.Order) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO customer_order (organization_id, item_collection_id, status, access_token, buyer_email, buyer_fullname, buyer_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, initiated_at`,
		order.OrganizationID, order.ItemCollectionID, order.Status, order.AccessToken,
		order.BuyerEmail, order.BuyerFullname, order.BuyerPhone,
	).Scan(&order.ID, &order.InitiatedAt)
}

func (a orderRepository) Update(order *domain.Order) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE customer_order SET
			status = $2,
			paid_at = $3,
			invoiced_at = $4,
			cancelled_at = $5,
			invoice_no = $6
		WHERE id = $1`,
		order.ID, order.Status, order.PaidAt, order.InvoicedAt, order.CancelledAt, order.InvoiceNo,
	)
	return err
}

// Must run in the transaction that stores the number.
// The organization row is locked so concurrent confirmations are numbered one after another.
func (a orderRepository) NextInvoiceNo(organizationId uuid.UUID) (no int, err error) {
	if _, err = a.DB.Exec(
		context.Background(),
		`SELECT 1 FROM organization WHERE id = $1 FOR UPDATE`,
		organizationId,
	); err != nil {
		return
	}
	err = a.DB.QueryRow(
		context.Background(),
		`SELECT coalesce(max(invoice_no), 0) + 1 FROM customer_order WHERE organization_id = $1`,
		organizationId,
	).Scan(&no)
	return
}

type lineItemRepository struct {
	DB config.PgxIface
}

func NewLineItemRepository(db config.PgxIface) repository.LineItemRepository {
	return &lineItemRepository{db}
}

func (a lineItemRepository) WithQuerier(querier config.PgxIface) repository.LineItemRepository {
	return &lineItemRepository{querier}
}

func (a lineItemRepository) GetById(id uuid.UUID) (*domain.LineItem, error) {
	lineItem := domain.LineItem{}
	return &lineItem, notFound(pgxscan.Get(
		context.Background(), a.DB, &lineItem,
		`SELECT * FROM line_item WHERE id = $1`,
		id,
	))
}

func (a lineItemRepository) GetByOrderId(id uuid.UUID) ([]domain.LineItem, error) {
	lineItems := []domain.LineItem{}
	return lineItems, pgxscan.Select(
		context.Background(), a.DB, &lineItems,
		`SELECT * FROM line_item WHERE order_id = $1 ORDER BY seq`,
		id,
	)
}

func (a lineItemRepository) Save(lineItem *domain.LineItem) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO line_item (order_id, item_id, seq, discount_policy_id, discount_coupon_id, base_amount, discounted_amount, final_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, ordered_at`,
		lineItem.OrderID, lineItem.ItemID, lineItem.Seq, lineItem.DiscountPolicyID, lineItem.DiscountCouponID,
		lineItem.BaseAmount, lineItem.DiscountedAmount, lineItem.FinalAmount, lineItem.Status,
	).Scan(&lineItem.ID, &lineItem.OrderedAt)
}

func (a lineItemRepository) SetStatusByOrderId(id uuid.UUID, status domain.LineItemStatus) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE line_item SET status = $2 WHERE order_id = $1`,
		id, status,
	)
	return err
}

func (a lineItemRepository) Cancel(id uuid.UUID, at time.Time) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE line_item SET status = $2, cancelled_at = $3 WHERE id = $1`,
		id, domain.LineItemStatusCancelled, at,
	)
	return err
}

type assigneeRepository struct {
	DB config.PgxIface
}

func NewAssigneeRepository(db config.PgxIface) repository.AssigneeRepository {
	return &assigneeRepository{db}
}

func (a assigneeRepository) WithQuerier(querier config.PgxIface) repository.AssigneeRepository {
	return &assigneeRepository{querier}
}

func (a assigneeRepository) GetCurrentByLineItemIds(ids []uuid.UUID) ([]domain.Assignee, error) {
	assignees := []domain.Assignee{}
	return assignees, pgxscan.Select(
		context.Background(), a.DB, &assignees,
		`SELECT * FROM assignee WHERE line_item_id = ANY($1) AND current`,
		ids,
	)
}

func (a assigneeRepository) ReplaceCurrent(assignee *domain.Assignee) error {
	if _, err := a.DB.Exec(
		context.Background(),
		`UPDATE assignee SET current = false WHERE line_item_id = $1 AND current`,
		assignee.LineItemID,
	); err != nil {
		return err
	}

	if assignee.Details == nil {
		assignee.Details = map[string]any{}
	}
	assignee.Current = true
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO assignee (line_item_id, fullname, email, phone, details, current)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id`,
		assignee.LineItemID, assignee.Fullname, assignee.Email, assignee.Phone, assignee.Details,
	).Scan(&assignee.ID)
}

type paymentRepository struct {
	DB config.PgxIface
}

func NewPaymentRepository(db config.PgxIface) repository.PaymentRepository {
	return &paymentRepository{db}
}

func (a paymentRepository) WithQuerier(querier config.PgxIface) repository.PaymentRepository {
	return &paymentRepository{querier}
}

func (a paymentRepository) SaveOnlinePayment(payment *domain.OnlinePayment) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO online_payment (order_id, pg_paymentid, confirmed_at, failed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pg_paymentid) DO UPDATE SET confirmed_at = EXCLUDED.confirmed_at, failed_at = EXCLUDED.failed_at
		RETURNING id`,
		payment.OrderID, payment.PgPaymentID, payment.ConfirmedAt, payment.FailedAt,
	).Scan(&payment.ID)
}

func (a paymentRepository) UpdateOnlinePayment(payment *domain.OnlinePayment) error {
	_, err := a.DB.Exec(
		context.Background(),
		`UPDATE online_payment SET confirmed_at = $2, failed_at = $3 WHERE id = $1`,
		payment.ID, payment.ConfirmedAt, payment.FailedAt,
	)
	return err
}

func (a paymentRepository) SaveTransaction(transaction *domain.PaymentTransaction) error {
	return a.DB.QueryRow(
		context.Background(),
		`INSERT INTO payment_transaction (order_id, online_payment_id, amount, currency, transaction_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		transaction.OrderID, transaction.OnlinePaymentID, transaction.Amount, transaction.Currency, transaction.TransactionType,
	).Scan(&transaction.ID, &transaction.CreatedAt)
}
