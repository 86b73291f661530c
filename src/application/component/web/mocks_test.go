package web

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/input-output-hk/boxoffice/src/application/service"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

// Methods that are not stubbed panic through the embedded nil interface.

type organizationServiceMock struct {
	service.OrganizationService
	mock.Mock
}

func (self *organizationServiceMock) GetById(id uuid.UUID) (*domain.Organization, error) {
	args := self.Called(id)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

func (self *organizationServiceMock) GetByName(name string) (*domain.Organization, error) {
	args := self.Called(name)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

func (self *organizationServiceMock) GetByAdmin(subject string) ([]domain.Organization, error) {
	args := self.Called(subject)
	orgs, _ := args.Get(0).([]domain.Organization)
	return orgs, args.Error(1)
}

func (self *organizationServiceMock) IsAdmin(id uuid.UUID, subject string) (bool, error) {
	args := self.Called(id, subject)
	return args.Bool(0), args.Error(1)
}

func (self *organizationServiceMock) AddAdmin(id uuid.UUID, subject string) error {
	return self.Called(id, subject).Error(0)
}

func (self *organizationServiceMock) Save(org *domain.Organization) error {
	return self.Called(org).Error(0)
}

type catalogServiceMock struct {
	service.CatalogService
	mock.Mock
}

func (self *catalogServiceMock) GetItemCollection(id uuid.UUID) (*domain.ItemCollection, error) {
	args := self.Called(id)
	ic, _ := args.Get(0).(*domain.ItemCollection)
	return ic, args.Error(1)
}

func (self *catalogServiceMock) GetItem(id uuid.UUID) (*domain.Item, error) {
	args := self.Called(id)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (self *catalogServiceMock) SavePrice(price *domain.Price) error {
	return self.Called(price).Error(0)
}

func (self *catalogServiceMock) GetCatalog(id uuid.UUID, at time.Time) (*service.Catalog, error) {
	args := self.Called(id)
	catalog, _ := args.Get(0).(*service.Catalog)
	return catalog, args.Error(1)
}

type discountPolicyServiceMock struct {
	service.DiscountPolicyService
	mock.Mock
}

func (self *discountPolicyServiceMock) GetById(id uuid.UUID) (*domain.DiscountPolicy, error) {
	args := self.Called(id)
	policy, _ := args.Get(0).(*domain.DiscountPolicy)
	return policy, args.Error(1)
}

func (self *discountPolicyServiceMock) GetByOrganizationId(id uuid.UUID, filter repository.DiscountPolicyFilter, page *repository.Page) ([]domain.DiscountPolicy, error) {
	args := self.Called(id, filter, page)
	policies, _ := args.Get(0).([]domain.DiscountPolicy)
	return policies, args.Error(1)
}

func (self *discountPolicyServiceMock) GetPrice(id uuid.UUID) (*domain.Price, error) {
	args := self.Called(id)
	price, _ := args.Get(0).(*domain.Price)
	return price, args.Error(1)
}

func (self *discountPolicyServiceMock) Create(policy *domain.DiscountPolicy, itemIds []uuid.UUID, price *domain.Price) error {
	return self.Called(policy, itemIds, price).Error(0)
}

func (self *discountPolicyServiceMock) Update(policy *domain.DiscountPolicy, itemIds []uuid.UUID) error {
	return self.Called(policy, itemIds).Error(0)
}

func (self *discountPolicyServiceMock) GenerateSignedCodes(policy *domain.DiscountPolicy, count int) ([]string, error) {
	args := self.Called(policy, count)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

func (self *discountPolicyServiceMock) CreateCoupon(policy *domain.DiscountPolicy, code string, usageLimit int) (*domain.DiscountCoupon, error) {
	args := self.Called(policy, code, usageLimit)
	coupon, _ := args.Get(0).(*domain.DiscountCoupon)
	return coupon, args.Error(1)
}

func (self *discountPolicyServiceMock) GetCoupons(id uuid.UUID) ([]domain.DiscountCoupon, error) {
	args := self.Called(id)
	coupons, _ := args.Get(0).([]domain.DiscountCoupon)
	return coupons, args.Error(1)
}

type lineItemServiceMock struct {
	service.LineItemService
	mock.Mock
}

func (self *lineItemServiceMock) Calculate(id uuid.UUID, items []service.ItemQuantity, codes []string, at time.Time) ([]service.ItemQuote, error) {
	args := self.Called(id, items, codes)
	quotes, _ := args.Get(0).([]service.ItemQuote)
	return quotes, args.Error(1)
}

type orderServiceMock struct {
	service.OrderService
	mock.Mock
}

func (self *orderServiceMock) GetById(id uuid.UUID) (*domain.Order, error) {
	args := self.Called(id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (self *orderServiceMock) GetLineItem(id uuid.UUID) (*domain.LineItem, error) {
	args := self.Called(id)
	lineItem, _ := args.Get(0).(*domain.LineItem)
	return lineItem, args.Error(1)
}

func (self *orderServiceMock) Create(ic *domain.ItemCollection, buyer domain.Buyer, items []service.ItemQuantity, codes []string, at time.Time) (*domain.Order, []service.ItemQuote, error) {
	args := self.Called(ic, buyer, items, codes)
	order, _ := args.Get(0).(*domain.Order)
	quotes, _ := args.Get(1).([]service.ItemQuote)
	return order, quotes, args.Error(2)
}

func (self *orderServiceMock) Pay(ctx context.Context, id uuid.UUID, pgPaymentId string) (*domain.Order, error) {
	args := self.Called(id, pgPaymentId)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (self *orderServiceMock) ConfirmFree(id uuid.UUID) (*domain.Order, error) {
	args := self.Called(id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (self *orderServiceMock) CancelLineItem(id uuid.UUID) (*domain.LineItem, error) {
	args := self.Called(id)
	lineItem, _ := args.Get(0).(*domain.LineItem)
	return lineItem, args.Error(1)
}

func (self *orderServiceMock) Assign(token string, assignee *domain.Assignee) error {
	return self.Called(token, assignee).Error(0)
}

type reportServiceMock struct {
	service.ReportService
	mock.Mock
}

func (self *reportServiceMock) WriteTickets(id uuid.UUID, w io.Writer) error {
	args := self.Called(id)
	if _, err := io.WriteString(w, args.String(0)); err != nil {
		return err
	}
	return args.Error(1)
}

type statisticsServiceMock struct {
	service.StatisticsService
	mock.Mock
}

func (self *statisticsServiceMock) GetDashboard(id uuid.UUID, at time.Time) (*service.Dashboard, error) {
	args := self.Called(id)
	dashboard, _ := args.Get(0).(*service.Dashboard)
	return dashboard, args.Error(1)
}

type mailServiceMock struct {
	service.MailService
	mock.Mock
}

func (self *mailServiceMock) SendAPIError(message string) error {
	return self.Called(message).Error(0)
}
