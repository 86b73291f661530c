package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"golang.org/x/text/currency"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

// Repository mocks embed their interface so that calls to methods
// a test does not stub panic instead of silently passing.

type orderRepositoryMock struct {
	mock.Mock
	repository.OrderRepository
}

func (self *orderRepositoryMock) WithQuerier(config.PgxIface) repository.OrderRepository {
	return self
}

func (self *orderRepositoryMock) GetById(id uuid.UUID) (*domain.Order, error) {
	args := self.Called(id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (self *orderRepositoryMock) GetByAccessToken(token string) (*domain.Order, error) {
	args := self.Called(token)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (self *orderRepositoryMock) Save(order *domain.Order) error {
	return self.Called(order).Error(0)
}

func (self *orderRepositoryMock) Update(order *domain.Order) error {
	return self.Called(order).Error(0)
}

func (self *orderRepositoryMock) NextInvoiceNo(id uuid.UUID) (int, error) {
	args := self.Called(id)
	return args.Int(0), args.Error(1)
}

type lineItemRepositoryMock struct {
	mock.Mock
	repository.LineItemRepository
}

func (self *lineItemRepositoryMock) WithQuerier(config.PgxIface) repository.LineItemRepository {
	return self
}

func (self *lineItemRepositoryMock) GetById(id uuid.UUID) (*domain.LineItem, error) {
	args := self.Called(id)
	lineItem, _ := args.Get(0).(*domain.LineItem)
	return lineItem, args.Error(1)
}

func (self *lineItemRepositoryMock) GetByOrderId(id uuid.UUID) ([]domain.LineItem, error) {
	args := self.Called(id)
	lineItems, _ := args.Get(0).([]domain.LineItem)
	return lineItems, args.Error(1)
}

func (self *lineItemRepositoryMock) Save(lineItem *domain.LineItem) error {
	return self.Called(lineItem).Error(0)
}

func (self *lineItemRepositoryMock) SetStatusByOrderId(id uuid.UUID, status domain.LineItemStatus) error {
	return self.Called(id, status).Error(0)
}

func (self *lineItemRepositoryMock) Cancel(id uuid.UUID, at time.Time) error {
	return self.Called(id, at).Error(0)
}

type itemRepositoryMock struct {
	mock.Mock
	repository.ItemRepository
}

func (self *itemRepositoryMock) WithQuerier(config.PgxIface) repository.ItemRepository {
	return self
}

func (self *itemRepositoryMock) GetById(id uuid.UUID) (*domain.Item, error) {
	args := self.Called(id)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (self *itemRepositoryMock) GetByIds(ids []uuid.UUID) ([]domain.Item, error) {
	args := self.Called(ids)
	items, _ := args.Get(0).([]domain.Item)
	return items, args.Error(1)
}

func (self *itemRepositoryMock) Reserve(id uuid.UUID, quantity int) error {
	return self.Called(id, quantity).Error(0)
}

func (self *itemRepositoryMock) Release(id uuid.UUID, quantity int) error {
	return self.Called(id, quantity).Error(0)
}

type discountCouponRepositoryMock struct {
	mock.Mock
	repository.DiscountCouponRepository
}

func (self *discountCouponRepositoryMock) WithQuerier(config.PgxIface) repository.DiscountCouponRepository {
	return self
}

func (self *discountCouponRepositoryMock) UpdateUsedCount(ids []uuid.UUID) error {
	return self.Called(ids).Error(0)
}

func (self *discountCouponRepositoryMock) GetByPolicyIdAndCode(id uuid.UUID, code string) (*domain.DiscountCoupon, error) {
	args := self.Called(id, code)
	coupon, _ := args.Get(0).(*domain.DiscountCoupon)
	return coupon, args.Error(1)
}

func (self *discountCouponRepositoryMock) GetByCodeForItemId(code string, id uuid.UUID) (*domain.DiscountCoupon, error) {
	args := self.Called(code, id)
	coupon, _ := args.Get(0).(*domain.DiscountCoupon)
	return coupon, args.Error(1)
}

func (self *discountCouponRepositoryMock) Save(coupon *domain.DiscountCoupon) error {
	return self.Called(coupon).Error(0)
}

type discountPolicyRepositoryMock struct {
	mock.Mock
	repository.DiscountPolicyRepository
}

func (self *discountPolicyRepositoryMock) WithQuerier(config.PgxIface) repository.DiscountPolicyRepository {
	return self
}

func (self *discountPolicyRepositoryMock) GetById(id uuid.UUID) (*domain.DiscountPolicy, error) {
	args := self.Called(id)
	policy, _ := args.Get(0).(*domain.DiscountPolicy)
	return policy, args.Error(1)
}

func (self *discountPolicyRepositoryMock) GetAutomaticByItemId(id uuid.UUID, quantity int) ([]domain.DiscountPolicy, error) {
	args := self.Called(id, quantity)
	policies, _ := args.Get(0).([]domain.DiscountPolicy)
	return policies, args.Error(1)
}

func (self *discountPolicyRepositoryMock) GetByDiscountCodeBase(base string) (*domain.DiscountPolicy, error) {
	args := self.Called(base)
	policy, _ := args.Get(0).(*domain.DiscountPolicy)
	return policy, args.Error(1)
}

type paymentRepositoryMock struct {
	mock.Mock
	repository.PaymentRepository
}

func (self *paymentRepositoryMock) WithQuerier(config.PgxIface) repository.PaymentRepository {
	return self
}

func (self *paymentRepositoryMock) SaveOnlinePayment(payment *domain.OnlinePayment) error {
	return self.Called(payment).Error(0)
}

func (self *paymentRepositoryMock) SaveTransaction(transaction *domain.PaymentTransaction) error {
	return self.Called(transaction).Error(0)
}

type assigneeRepositoryMock struct {
	mock.Mock
	repository.AssigneeRepository
}

func (self *assigneeRepositoryMock) WithQuerier(config.PgxIface) repository.AssigneeRepository {
	return self
}

func (self *assigneeRepositoryMock) GetCurrentByLineItemIds(ids []uuid.UUID) ([]domain.Assignee, error) {
	args := self.Called(ids)
	assignees, _ := args.Get(0).([]domain.Assignee)
	return assignees, args.Error(1)
}

func (self *assigneeRepositoryMock) ReplaceCurrent(assignee *domain.Assignee) error {
	return self.Called(assignee).Error(0)
}

type reportRepositoryMock struct {
	mock.Mock
}

func (self *reportRepositoryMock) WithQuerier(config.PgxIface) repository.ReportRepository {
	return self
}

func (self *reportRepositoryMock) GetTicketRows(id uuid.UUID) ([]repository.TicketReportRow, error) {
	args := self.Called(id)
	rows, _ := args.Get(0).([]repository.TicketReportRow)
	return rows, args.Error(1)
}

func (self *reportRepositoryMock) GetAttendeeRows(id uuid.UUID) ([]repository.AttendeeReportRow, error) {
	args := self.Called(id)
	rows, _ := args.Get(0).([]repository.AttendeeReportRow)
	return rows, args.Error(1)
}

func (self *reportRepositoryMock) GetItemStatistics(id uuid.UUID) ([]repository.ItemStatistics, error) {
	args := self.Called(id)
	stats, _ := args.Get(0).([]repository.ItemStatistics)
	return stats, args.Error(1)
}

func (self *reportRepositoryMock) GetItemDateCounts(id uuid.UUID, timezone string) ([]repository.ItemDateCount, error) {
	args := self.Called(id, timezone)
	counts, _ := args.Get(0).([]repository.ItemDateCount)
	return counts, args.Error(1)
}

func (self *reportRepositoryMock) GetDateSales(id uuid.UUID, timezone string) ([]repository.DateSales, error) {
	args := self.Called(id, timezone)
	sales, _ := args.Get(0).([]repository.DateSales)
	return sales, args.Error(1)
}

type itemCollectionRepositoryMock struct {
	mock.Mock
	repository.ItemCollectionRepository
}

func (self *itemCollectionRepositoryMock) WithQuerier(config.PgxIface) repository.ItemCollectionRepository {
	return self
}

func (self *itemCollectionRepositoryMock) GetById(id uuid.UUID) (*domain.ItemCollection, error) {
	args := self.Called(id)
	ic, _ := args.Get(0).(*domain.ItemCollection)
	return ic, args.Error(1)
}

type organizationRepositoryMock struct {
	mock.Mock
	repository.OrganizationRepository
}

func (self *organizationRepositoryMock) WithQuerier(config.PgxIface) repository.OrganizationRepository {
	return self
}

func (self *organizationRepositoryMock) GetById(id uuid.UUID) (*domain.Organization, error) {
	args := self.Called(id)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

type priceRepositoryMock struct {
	mock.Mock
	repository.PriceRepository
}

func (self *priceRepositoryMock) WithQuerier(config.PgxIface) repository.PriceRepository {
	return self
}

func (self *priceRepositoryMock) GetCurrentByItemId(id uuid.UUID, at time.Time) (*domain.Price, error) {
	args := self.Called(id, at)
	price, _ := args.Get(0).(*domain.Price)
	return price, args.Error(1)
}

func (self *priceRepositoryMock) GetCurrentByItemIdAndPolicyId(id, policyId uuid.UUID, at time.Time) (*domain.Price, error) {
	args := self.Called(id, policyId, at)
	price, _ := args.Get(0).(*domain.Price)
	return price, args.Error(1)
}

type lineItemServiceMock struct {
	mock.Mock
}

func (self *lineItemServiceMock) WithQuerier(config.PgxIface) LineItemService {
	return self
}

func (self *lineItemServiceMock) Calculate(id uuid.UUID, items []ItemQuantity, codes []string, at time.Time) ([]ItemQuote, error) {
	args := self.Called(id, items, codes, at)
	quotes, _ := args.Get(0).([]ItemQuote)
	return quotes, args.Error(1)
}

type mailServiceMock struct {
	mock.Mock
}

func (self *mailServiceMock) SendReceiptEmail(id uuid.UUID) error {
	return self.Called(id).Error(0)
}

func (self *mailServiceMock) SendParticipantAssignmentMail(id uuid.UUID) error {
	return self.Called(id).Error(0)
}

func (self *mailServiceMock) SendAPIError(message string) error {
	return self.Called(message).Error(0)
}

type paymentGatewayMock struct {
	mock.Mock
}

func (self *paymentGatewayMock) Capture(ctx context.Context, paymentId string, amount decimal.Decimal, unit currency.Unit) (*application.CapturedPayment, error) {
	args := self.Called(paymentId, amount.String(), unit.String())
	payment, _ := args.Get(0).(*application.CapturedPayment)
	return payment, args.Error(1)
}
