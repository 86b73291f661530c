package repository

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/config"
)

type TicketReportRow struct {
	LineItemID          uuid.UUID
	ItemTitle           string
	BaseAmount          decimal.Decimal
	DiscountedAmount    decimal.Decimal
	FinalAmount         decimal.Decimal
	DiscountPolicyTitle *string
	BuyerFullname       string
	BuyerEmail          string
	BuyerPhone          string
	AttendeeFullname    *string
	AttendeeEmail       *string
	AttendeePhone       *string
	AttendeeDetails     map[string]any
}

type AttendeeReportRow struct {
	LineItemID uuid.UUID
	ItemTitle  string
	Fullname   string
	Email      string
	Phone      string
	Details    map[string]any
}

type ItemStatistics struct {
	ItemID            uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	QuantityAvailable int             `json:"available"`
	Sold              int             `json:"sold"`
	Free              int             `json:"free"`
	Cancelled         int             `json:"cancelled"`
	NetSales          decimal.Decimal `json:"net_sales"`
}

// Dates are formatted as YYYY-MM-DD in the time zone given to the query.
type ItemDateCount struct {
	Date   string
	ItemID uuid.UUID
	Count  int
}

type DateSales struct {
	Date   string
	Amount decimal.Decimal
}

type ReportRepository interface {
	WithQuerier(config.PgxIface) ReportRepository

	GetTicketRows(uuid.UUID) ([]TicketReportRow, error)
	GetAttendeeRows(uuid.UUID) ([]AttendeeReportRow, error)
	GetItemStatistics(uuid.UUID) ([]ItemStatistics, error)
	GetItemDateCounts(uuid.UUID, string) ([]ItemDateCount, error)
	GetDateSales(uuid.UUID, string) ([]DateSales, error)
}
