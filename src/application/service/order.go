package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

var (
	ErrEmptyOrder        = errors.New("Order has no line items")
	ErrNotCancellable    = errors.New("Only confirmed line items can be cancelled")
	ErrNotAssignable     = errors.New("Only confirmed line items can be assigned")
	ErrOrderNotConfirmed = errors.New("Order is not confirmed")
)

// The payment gateway did not capture the payment.
type PaymentError struct {
	error
}

func NewPaymentError(err error) PaymentError {
	return PaymentError{err}
}

func (self PaymentError) Unwrap() error {
	return self.error
}

// The payment was captured but the order could not be confirmed.
// The payment is kept on record so that it can be refunded.
type UnconfirmedPaymentError struct {
	PgPaymentID string
	error
}

func NewUnconfirmedPaymentError(pgPaymentId string, err error) UnconfirmedPaymentError {
	return UnconfirmedPaymentError{pgPaymentId, err}
}

func (self UnconfirmedPaymentError) Unwrap() error {
	return self.error
}

type TicketLineItem struct {
	domain.LineItem
	ItemTitle string           `json:"item_title"`
	Assignee  *domain.Assignee `json:"assignee"`
}

type OrderTicket struct {
	Order     domain.Order     `json:"order"`
	LineItems []TicketLineItem `json:"line_items"`
}

type OrderService interface {
	WithQuerier(config.PgxIface) OrderService

	GetById(uuid.UUID) (*domain.Order, error)
	GetByAccessToken(string) (*domain.Order, error)
	GetLineItem(uuid.UUID) (*domain.LineItem, error)
	GetLineItems(uuid.UUID) ([]domain.LineItem, error)
	GetTicket(string) (*OrderTicket, error)
	// Creates a purchase order with line items priced at the given time.
	Create(*domain.ItemCollection, domain.Buyer, []ItemQuantity, []string, time.Time) (*domain.Order, []ItemQuote, error)
	// Confirms an order whose total is zero.
	ConfirmFree(uuid.UUID) (*domain.Order, error)
	// Captures the payment and confirms the order.
	Pay(context.Context, uuid.UUID, string) (*domain.Order, error)
	CancelLineItem(uuid.UUID) (*domain.LineItem, error)
	Assign(string, *domain.Assignee) error
}

type orderService struct {
	logger                   zerolog.Logger
	orderRepository          repository.OrderRepository
	lineItemRepository       repository.LineItemRepository
	itemRepository           repository.ItemRepository
	discountCouponRepository repository.DiscountCouponRepository
	paymentRepository        repository.PaymentRepository
	assigneeRepository       repository.AssigneeRepository
	lineItemService          LineItemService
	mailService              MailService
	paymentGateway           application.PaymentGateway
	emailVerifier            application.EmailVerifier
	liveFeed                 application.LiveFeed
	settings                 *config.Settings
	db                       config.PgxIface
}

func NewOrderService(
	db config.PgxIface,
	lineItemService LineItemService,
	mailService MailService,
	paymentGateway application.PaymentGateway,
	emailVerifier application.EmailVerifier,
	liveFeed application.LiveFeed,
	settings *config.Settings,
	logger *zerolog.Logger,
) OrderService {
	return &orderService{
		logger:                   logger.With().Str("component", "OrderService").Logger(),
		orderRepository:          persistence.NewOrderRepository(db),
		lineItemRepository:       persistence.NewLineItemRepository(db),
		itemRepository:           persistence.NewItemRepository(db),
		discountCouponRepository: persistence.NewDiscountCouponRepository(db),
		paymentRepository:        persistence.NewPaymentRepository(db),
		assigneeRepository:       persistence.NewAssigneeRepository(db),
		lineItemService:          lineItemService,
		mailService:              mailService,
		paymentGateway:           paymentGateway,
		emailVerifier:            emailVerifier,
		liveFeed:                 liveFeed,
		settings:                 settings,
		db:                       db,
	}
}

func (self orderService) WithQuerier(querier config.PgxIface) OrderService {
	return &orderService{
		logger:                   self.logger,
		orderRepository:          self.orderRepository.WithQuerier(querier),
		lineItemRepository:       self.lineItemRepository.WithQuerier(querier),
		itemRepository:           self.itemRepository.WithQuerier(querier),
		discountCouponRepository: self.discountCouponRepository.WithQuerier(querier),
		paymentRepository:        self.paymentRepository.WithQuerier(querier),
		assigneeRepository:       self.assigneeRepository.WithQuerier(querier),
		lineItemService:          self.lineItemService.WithQuerier(querier),
		mailService:              self.mailService,
		paymentGateway:           self.paymentGateway,
		emailVerifier:            self.emailVerifier,
		liveFeed:                 self.liveFeed,
		settings:                 self.settings,
		db:                       querier,
	}
}

func (self orderService) GetById(id uuid.UUID) (order *domain.Order, err error) {
	self.logger.Trace().Stringer("id", id).Msg("Getting Order by ID")
	order, err = self.orderRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing Order with ID %q", id)
	self.logger.Trace().Stringer("id", id).Err(err).Msg("Got Order by ID")
	return
}

func (self orderService) GetByAccessToken(token string) (order *domain.Order, err error) {
	order, err = self.orderRepository.GetByAccessToken(token)
	err = errors.WithMessage(err, "Could not select existing Order by access token")
	return
}

func (self orderService) GetLineItem(id uuid.UUID) (lineItem *domain.LineItem, err error) {
	lineItem, err = self.lineItemRepository.GetById(id)
	err = errors.WithMessagef(err, "Could not select existing LineItem with ID %q", id)
	return
}

func (self orderService) GetLineItems(id uuid.UUID) (lineItems []domain.LineItem, err error) {
	lineItems, err = self.lineItemRepository.GetByOrderId(id)
	err = errors.WithMessagef(err, "Could not select LineItems of Order %q", id)
	return
}

func (self orderService) GetTicket(token string) (*OrderTicket, error) {
	order, err := self.GetByAccessToken(token)
	if err != nil {
		return nil, err
	}

	lineItems, err := self.GetLineItems(order.ID)
	if err != nil {
		return nil, err
	}
	lineItems = lo.Filter(lineItems, func(li domain.LineItem, _ int) bool {
		return li.Status == domain.LineItemStatusConfirmed || li.Status == domain.LineItemStatusCancelled
	})

	items, err := self.itemRepository.GetByIds(lo.Uniq(lo.Map(lineItems, func(li domain.LineItem, _ int) uuid.UUID { return li.ItemID })))
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Items of Order %q", order.ID)
	}
	itemsById := lo.KeyBy(items, func(item domain.Item) uuid.UUID { return item.ID })

	assignees, err := self.assigneeRepository.GetCurrentByLineItemIds(lo.Map(lineItems, func(li domain.LineItem, _ int) uuid.UUID { return li.ID }))
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Assignees of Order %q", order.ID)
	}
	assigneesByLineItem := lo.KeyBy(assignees, func(a domain.Assignee) uuid.UUID { return a.LineItemID })

	ticket := OrderTicket{Order: *order, LineItems: make([]TicketLineItem, len(lineItems))}
	for i, li := range lineItems {
		ticket.LineItems[i] = TicketLineItem{LineItem: li, ItemTitle: itemsById[li.ItemID].Title}
		if assignee, ok := assigneesByLineItem[li.ID]; ok {
			ticket.LineItems[i].Assignee = &assignee
		}
	}

	return &ticket, nil
}

func (self orderService) Create(ic *domain.ItemCollection, buyer domain.Buyer, items []ItemQuantity, codes []string, at time.Time) (*domain.Order, []ItemQuote, error) {
	email, err := self.emailVerifier.Verify(buyer.Email)
	if err != nil {
		return nil, nil, err
	}

	merged := MergeItemQuantities(items)
	if len(merged) == 0 {
		return nil, nil, ErrEmptyOrder
	}

	order := domain.Order{
		OrganizationID:   ic.OrganizationID,
		ItemCollectionID: ic.ID,
		Status:           domain.OrderStatusPurchaseOrder,
		AccessToken:      domain.NewBuid(),
		BuyerEmail:       email,
		BuyerFullname:    buyer.Fullname,
		BuyerPhone:       buyer.Phone,
	}
	var quotes []ItemQuote

	if err := pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)

		for _, iq := range merged {
			item, err := txSelf.itemRepository.GetById(iq.ItemID)
			if err != nil {
				return errors.WithMessagef(err, "Could not select Item %q", iq.ItemID)
			}
			if iq.Quantity > item.QuantityAvailable {
				return errors.WithMessagef(domain.ErrOutOfStock, "%s: %d requested, %d available", item.Title, iq.Quantity, item.QuantityAvailable)
			}
		}

		var err error
		if quotes, err = txSelf.lineItemService.Calculate(ic.ID, merged, codes, at); err != nil {
			return err
		}

		if err := txSelf.orderRepository.Save(&order); err != nil {
			return errors.WithMessage(err, "Could not insert Order")
		}

		seq := 0
		for _, quote := range quotes {
			for _, tuple := range quote.LineItems {
				seq += 1
				lineItem := domain.LineItem{
					OrderID:          order.ID,
					ItemID:           tuple.ItemID,
					Seq:              seq,
					DiscountPolicyID: tuple.DiscountPolicyID,
					DiscountCouponID: tuple.DiscountCouponID,
					BaseAmount:       tuple.BaseAmount,
					DiscountedAmount: tuple.DiscountedAmount,
					FinalAmount:      tuple.FinalAmount,
					Status:           domain.LineItemStatusPurchaseOrder,
				}
				if err := txSelf.lineItemRepository.Save(&lineItem); err != nil {
					return errors.WithMessagef(err, "Could not insert LineItem %d of Order %q", seq, order.ID)
				}
			}
		}

		return nil
	}); err != nil {
		return nil, nil, err
	}

	application.OrdersTotal.WithLabelValues(order.Status.String()).Inc()
	self.logger.Debug().Stringer("id", order.ID).Stringer("total", OrderTotal(quotes)).Msg("Created Order")

	return &order, quotes, nil
}

// Returns the line items awaiting confirmation and their total.
func (self orderService) payable(order *domain.Order) ([]domain.LineItem, decimal.Decimal, error) {
	if order.Status != domain.OrderStatusPurchaseOrder {
		return nil, decimal.Zero, errors.WithMessagef(domain.ErrOrderNotPayable, "Order %q is a %s", order.ID, order.Status)
	}

	lineItems, err := self.GetLineItems(order.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	lineItems = lo.Filter(lineItems, func(li domain.LineItem, _ int) bool {
		return li.Status == domain.LineItemStatusPurchaseOrder
	})
	if len(lineItems) == 0 {
		return nil, decimal.Zero, ErrEmptyOrder
	}

	total := lo.Reduce(lineItems, func(total decimal.Decimal, li domain.LineItem, _ int) decimal.Decimal {
		return total.Add(li.FinalAmount)
	}, decimal.Zero)

	return lineItems, total, nil
}

// Counts line items per item, keeping the order items first appear in.
func countByItem(lineItems []domain.LineItem) ([]uuid.UUID, map[uuid.UUID]int) {
	counts := map[uuid.UUID]int{}
	itemIds := []uuid.UUID{}
	for _, li := range lineItems {
		if counts[li.ItemID] == 0 {
			itemIds = append(itemIds, li.ItemID)
		}
		counts[li.ItemID] += 1
	}
	return itemIds, counts
}

func (self orderService) reserve(lineItems []domain.LineItem) error {
	itemIds, counts := countByItem(lineItems)
	for _, itemId := range itemIds {
		if err := self.itemRepository.Reserve(itemId, counts[itemId]); err != nil {
			return errors.WithMessagef(err, "Could not reserve %d of Item %q", counts[itemId], itemId)
		}
	}
	return nil
}

func (self orderService) release(lineItems []domain.LineItem) error {
	itemIds, counts := countByItem(lineItems)
	for _, itemId := range itemIds {
		if err := self.itemRepository.Release(itemId, counts[itemId]); err != nil {
			return errors.WithMessagef(err, "Could not release %d of Item %q", counts[itemId], itemId)
		}
	}
	return nil
}

// Must run in a transaction, after the stock of the line items is reserved.
func (self orderService) confirm(order *domain.Order, lineItems []domain.LineItem, at time.Time) error {
	if err := self.lineItemRepository.SetStatusByOrderId(order.ID, domain.LineItemStatusConfirmed); err != nil {
		return errors.WithMessagef(err, "Could not confirm LineItems of Order %q", order.ID)
	}

	invoiceNo, err := self.orderRepository.NextInvoiceNo(order.OrganizationID)
	if err != nil {
		return errors.WithMessagef(err, "Could not number invoice of Order %q", order.ID)
	}
	order.Status = domain.OrderStatusSalesOrder
	order.PaidAt = &at
	order.InvoicedAt = &at
	order.InvoiceNo = &invoiceNo
	if err := self.orderRepository.Update(order); err != nil {
		return errors.WithMessagef(err, "Could not update Order %q", order.ID)
	}

	if couponIds := usedCoupons(lineItems); len(couponIds) > 0 {
		if err := self.discountCouponRepository.UpdateUsedCount(couponIds); err != nil {
			return errors.WithMessagef(err, "Could not update usage of DiscountCoupons of Order %q", order.ID)
		}
	}

	return nil
}

func usedCoupons(lineItems []domain.LineItem) []uuid.UUID {
	ids := []uuid.UUID{}
	for _, li := range lineItems {
		if li.DiscountCouponID != nil {
			ids = append(ids, *li.DiscountCouponID)
		}
	}
	return lo.Uniq(ids)
}

func (self orderService) afterConfirm(order *domain.Order, lineItems []domain.LineItem) {
	application.OrdersTotal.WithLabelValues(order.Status.String()).Inc()
	application.LineItemsTotal.WithLabelValues(domain.LineItemStatusConfirmed.String()).Add(float64(len(lineItems)))

	self.liveFeed.Publish(order.ItemCollectionID)

	if err := self.mailService.SendReceiptEmail(order.ID); err != nil {
		self.logger.Err(err).Stringer("order", order.ID).Msg("Could not send receipt")
	}
	if err := self.mailService.SendParticipantAssignmentMail(order.ID); err != nil {
		self.logger.Err(err).Stringer("order", order.ID).Msg("Could not send participant assignment mail")
	}

	self.logger.Info().Stringer("id", order.ID).Int("invoice_no", *order.InvoiceNo).Msg("Confirmed Order")
}

func (self orderService) ConfirmFree(id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	var lineItems []domain.LineItem

	if err := pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)

		var err error
		if order, err = txSelf.GetById(id); err != nil {
			return err
		}

		var total decimal.Decimal
		if lineItems, total, err = txSelf.payable(order); err != nil {
			return err
		}
		if !total.IsZero() {
			return errors.WithMessagef(domain.ErrOrderNotPayable, "Order %q is not free", id)
		}

		if err := txSelf.reserve(lineItems); err != nil {
			return err
		}
		return txSelf.confirm(order, lineItems, time.Now().UTC())
	}); err != nil {
		return nil, err
	}

	self.afterConfirm(order, lineItems)
	return order, nil
}

func (self orderService) Pay(ctx context.Context, id uuid.UUID, pgPaymentId string) (*domain.Order, error) {
	var order *domain.Order
	var lineItems []domain.LineItem
	var total decimal.Decimal

	// Stock is held before any money is taken.
	if err := pgx.BeginFunc(ctx, self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)

		var err error
		if order, err = txSelf.GetById(id); err != nil {
			return err
		}
		if lineItems, total, err = txSelf.payable(order); err != nil {
			return err
		}
		if !total.IsPositive() {
			return errors.WithMessagef(domain.ErrOrderNotPayable, "Order %q is free", id)
		}

		return txSelf.reserve(lineItems)
	}); err != nil {
		return nil, err
	}

	unit := self.settings.CurrencyUnit()
	if _, err := self.paymentGateway.Capture(ctx, pgPaymentId, total, unit); err != nil {
		now := time.Now().UTC()
		failed := domain.OnlinePayment{OrderID: id, PgPaymentID: pgPaymentId, FailedAt: &now}
		if recordErr := pgx.BeginFunc(ctx, self.db, func(tx pgx.Tx) error {
			txSelf := self.WithQuerier(tx).(*orderService)
			if err := txSelf.release(lineItems); err != nil {
				return err
			}
			return errors.WithMessagef(txSelf.paymentRepository.SaveOnlinePayment(&failed), "Could not insert OnlinePayment %s", pgPaymentId)
		}); recordErr != nil {
			self.logger.Err(recordErr).Str("pg_paymentid", pgPaymentId).Msg("Could not record failed payment")
		}
		return nil, NewPaymentError(errors.WithMessagef(err, "Online payment %s of Order %q failed", pgPaymentId, id))
	}

	now := time.Now().UTC()
	payment := domain.OnlinePayment{OrderID: id, PgPaymentID: pgPaymentId, ConfirmedAt: &now}
	transaction := domain.PaymentTransaction{
		OrderID:         id,
		Amount:          total,
		Currency:        unit.String(),
		TransactionType: domain.TransactionTypePayment,
	}

	if err := pgx.BeginFunc(ctx, self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)
		if err := txSelf.recordPayment(&payment, &transaction); err != nil {
			return err
		}
		return txSelf.confirm(order, lineItems, now)
	}); err != nil {
		// The money is taken and the stock stays held, so keep the payment on record for a refund.
		if recordErr := pgx.BeginFunc(ctx, self.db, func(tx pgx.Tx) error {
			return self.WithQuerier(tx).(*orderService).recordPayment(&payment, &transaction)
		}); recordErr != nil {
			self.logger.Err(recordErr).Str("pg_paymentid", pgPaymentId).Msg("Could not record captured payment")
		}
		return nil, NewUnconfirmedPaymentError(pgPaymentId, err)
	}

	self.afterConfirm(order, lineItems)
	return order, nil
}

func (self orderService) recordPayment(payment *domain.OnlinePayment, transaction *domain.PaymentTransaction) error {
	if err := self.paymentRepository.SaveOnlinePayment(payment); err != nil {
		return errors.WithMessagef(err, "Could not insert OnlinePayment %s", payment.PgPaymentID)
	}

	transaction.OnlinePaymentID = &payment.ID
	if err := self.paymentRepository.SaveTransaction(transaction); err != nil {
		return errors.WithMessagef(err, "Could not insert PaymentTransaction of Order %q", transaction.OrderID)
	}

	return nil
}

func (self orderService) CancelLineItem(id uuid.UUID) (*domain.LineItem, error) {
	var lineItem *domain.LineItem
	var order *domain.Order

	if err := pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)

		var err error
		if lineItem, err = txSelf.GetLineItem(id); err != nil {
			return err
		}
		if !lineItem.IsConfirmed() {
			return errors.WithMessagef(ErrNotCancellable, "LineItem %q is %s", id, lineItem.Status)
		}
		if order, err = txSelf.GetById(lineItem.OrderID); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := txSelf.lineItemRepository.Cancel(id, now); err != nil {
			return errors.WithMessagef(err, "Could not cancel LineItem %q", id)
		}
		lineItem.Status = domain.LineItemStatusCancelled
		lineItem.CancelledAt = &now

		if err := txSelf.itemRepository.Release(lineItem.ItemID, 1); err != nil {
			return errors.WithMessagef(err, "Could not release Item %q", lineItem.ItemID)
		}

		if lineItem.DiscountCouponID != nil {
			if err := txSelf.discountCouponRepository.UpdateUsedCount([]uuid.UUID{*lineItem.DiscountCouponID}); err != nil {
				return errors.WithMessagef(err, "Could not update usage of DiscountCoupon %q", *lineItem.DiscountCouponID)
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	application.LineItemsTotal.WithLabelValues(lineItem.Status.String()).Inc()
	self.liveFeed.Publish(order.ItemCollectionID)
	self.logger.Info().Stringer("id", id).Stringer("order", order.ID).Msg("Cancelled LineItem")

	return lineItem, nil
}

// Makes the given assignee the current one of its line item,
// which must be a confirmed line item of the order with the given access token.
func (self orderService) Assign(token string, assignee *domain.Assignee) error {
	email, err := self.emailVerifier.Verify(assignee.Email)
	if err != nil {
		return err
	}
	assignee.Email = email

	return pgx.BeginFunc(context.Background(), self.db, func(tx pgx.Tx) error {
		txSelf := self.WithQuerier(tx).(*orderService)

		order, err := txSelf.GetByAccessToken(token)
		if err != nil {
			return err
		}
		if !order.IsConfirmed() {
			return errors.WithMessagef(ErrOrderNotConfirmed, "Order %q is a %s", order.ID, order.Status)
		}

		lineItem, err := txSelf.GetLineItem(assignee.LineItemID)
		if err != nil {
			return err
		}
		if lineItem.OrderID != order.ID {
			return domain.ErrLineItemNotFound
		}
		if !lineItem.IsConfirmed() {
			return ErrNotAssignable
		}

		if err := txSelf.assigneeRepository.ReplaceCurrent(assignee); err != nil {
			return errors.WithMessagef(err, "Could not assign LineItem %q", lineItem.ID)
		}
		self.logger.Debug().Stringer("line_item", lineItem.ID).Stringer("assignee", assignee.ID).Msg("Assigned LineItem")
		return nil
	})
}
