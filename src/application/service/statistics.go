package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

const dateLayout = "2006-01-02"

type DashboardItem struct {
	repository.ItemStatistics
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

type Dashboard struct {
	OrgName        string                       `json:"org_name"`
	Title          string                       `json:"title"`
	Items          []DashboardItem              `json:"items"`
	DateItemCounts map[string]map[uuid.UUID]int `json:"date_item_counts"`
	DateSales      map[string]decimal.Decimal   `json:"date_sales"`
	NetSales       decimal.Decimal              `json:"net_sales"`
	TicketSold     int                          `json:"ticket_sold"`
	SalesDelta     float64                      `json:"sales_delta"`
}

type StatisticsService interface {
	WithQuerier(config.PgxIface) StatisticsService

	// Sales figures of an item collection as seen at the given time.
	GetDashboard(uuid.UUID, time.Time) (*Dashboard, error)
}

type statisticsService struct {
	logger                   zerolog.Logger
	reportRepository         repository.ReportRepository
	itemCollectionRepository repository.ItemCollectionRepository
	organizationRepository   repository.OrganizationRepository
	priceRepository          repository.PriceRepository
	settings                 *config.Settings
}

func NewStatisticsService(db config.PgxIface, settings *config.Settings, logger *zerolog.Logger) StatisticsService {
	return &statisticsService{
		logger:                   logger.With().Str("component", "StatisticsService").Logger(),
		reportRepository:         persistence.NewReportRepository(db),
		itemCollectionRepository: persistence.NewItemCollectionRepository(db),
		organizationRepository:   persistence.NewOrganizationRepository(db),
		priceRepository:          persistence.NewPriceRepository(db),
		settings:                 settings,
	}
}

func (self statisticsService) WithQuerier(querier config.PgxIface) StatisticsService {
	return &statisticsService{
		logger:                   self.logger,
		reportRepository:         self.reportRepository.WithQuerier(querier),
		itemCollectionRepository: self.itemCollectionRepository.WithQuerier(querier),
		organizationRepository:   self.organizationRepository.WithQuerier(querier),
		priceRepository:          self.priceRepository.WithQuerier(querier),
		settings:                 self.settings,
	}
}

func (self statisticsService) GetDashboard(id uuid.UUID, at time.Time) (*Dashboard, error) {
	ic, err := self.itemCollectionRepository.GetById(id)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select existing ItemCollection with ID %q", id)
	}

	org, err := self.organizationRepository.GetById(ic.OrganizationID)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select existing Organization with ID %q", ic.OrganizationID)
	}

	stats, err := self.reportRepository.GetItemStatistics(id)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select statistics of ItemCollection %q", id)
	}

	timezone := self.settings.Location().String()

	counts, err := self.reportRepository.GetItemDateCounts(id, timezone)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select daily counts of ItemCollection %q", id)
	}

	sales, err := self.reportRepository.GetDateSales(id, timezone)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select daily sales of ItemCollection %q", id)
	}

	dashboard := Dashboard{
		OrgName:        org.Name,
		Title:          ic.Title,
		Items:          make([]DashboardItem, len(stats)),
		DateItemCounts: map[string]map[uuid.UUID]int{},
		DateSales:      map[string]decimal.Decimal{},
		NetSales:       decimal.Zero,
	}

	for i, stat := range stats {
		dashboard.Items[i] = DashboardItem{ItemStatistics: stat}
		if price, err := self.priceRepository.GetCurrentByItemId(stat.ItemID, at); err == nil {
			dashboard.Items[i].CurrentPrice = &price.Amount
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, errors.WithMessagef(err, "Could not select current Price of Item %q", stat.ItemID)
		}
		dashboard.NetSales = dashboard.NetSales.Add(stat.NetSales)
		dashboard.TicketSold += stat.Sold
	}

	for _, count := range counts {
		if _, ok := dashboard.DateItemCounts[count.Date]; !ok {
			dashboard.DateItemCounts[count.Date] = map[uuid.UUID]int{}
		}
		dashboard.DateItemCounts[count.Date][count.ItemID] = count.Count
	}

	for _, sale := range sales {
		dashboard.DateSales[sale.Date] = sale.Amount
	}

	today := at.In(self.settings.Location())
	dashboard.SalesDelta = SalesDelta(
		dayCount(dashboard.DateItemCounts, today.Format(dateLayout)),
		dayCount(dashboard.DateItemCounts, today.AddDate(0, 0, -1).Format(dateLayout)),
	)

	return &dashboard, nil
}

func dayCount(counts map[string]map[uuid.UUID]int, date string) int {
	return lo.Sum(lo.Values(counts[date]))
}

// Percentage change from yesterday's to today's count, rounded to two places.
// Zero when nothing was sold yesterday.
func SalesDelta(today, yesterday int) float64 {
	if yesterday == 0 {
		return 0
	}
	delta, _ := decimal.NewFromInt(int64(today - yesterday)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(yesterday))).
		Round(2).
		Float64()
	return delta
}
