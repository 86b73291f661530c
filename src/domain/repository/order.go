package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type OrderRepository interface {
	WithQuerier(config.PgxIface) OrderRepository

	GetById(uuid.UUID) (*domain.Order, error)
	GetByAccessToken(string) (*domain.Order, error)
	Save(*domain.Order) error
	Update(*domain.Order) error
	NextInvoiceNo(uuid.UUID) (int, error)
}

type LineItemRepository interface {
	WithQuerier(config.PgxIface) LineItemRepository

	GetById(uuid.UUID) (*domain.LineItem, error)
	GetByOrderId(uuid.UUID) ([]domain.LineItem, error)
	Save(*domain.LineItem) error
	SetStatusByOrderId(uuid.UUID, domain.LineItemStatus) error
	Cancel(uuid.UUID, time.Time) error
}

type AssigneeRepository interface {
	WithQuerier(config.PgxIface) AssigneeRepository

	GetCurrentByLineItemIds([]uuid.UUID) ([]domain.Assignee, error)
	// Marks the current assignee of the line item as no longer current and saves the given one as current.
	ReplaceCurrent(*domain.Assignee) error
}

type PaymentRepository interface {
	WithQuerier(config.PgxIface) PaymentRepository

	SaveOnlinePayment(*domain.OnlinePayment) error
	UpdateOnlinePayment(*domain.OnlinePayment) error
	SaveTransaction(*domain.PaymentTransaction) error
}
