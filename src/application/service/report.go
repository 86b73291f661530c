package service

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pborman/ansi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
	"github.com/input-output-hk/boxoffice/src/infrastructure/persistence"
)

var (
	TicketReportHeader = []string{
		"ticket id", "item title",
		"base amount", "discounted amount", "final amount",
		"discount policy",
		"buyer fullname", "buyer email", "buyer phone",
		"attendee fullname", "attendee email", "attendee phone", "attendee details",
	}
	AttendeeReportHeader = []string{
		"ticket id", "item title",
		"fullname", "email", "phone", "details",
	}
)

type ReportService interface {
	WithQuerier(config.PgxIface) ReportService

	WriteTickets(uuid.UUID, io.Writer) error
	WriteAttendees(uuid.UUID, io.Writer) error
}

type reportService struct {
	logger           zerolog.Logger
	reportRepository repository.ReportRepository
}

func NewReportService(db config.PgxIface, logger *zerolog.Logger) ReportService {
	return &reportService{
		logger:           logger.With().Str("component", "ReportService").Logger(),
		reportRepository: persistence.NewReportRepository(db),
	}
}

func (self reportService) WithQuerier(querier config.PgxIface) ReportService {
	return &reportService{
		logger:           self.logger,
		reportRepository: self.reportRepository.WithQuerier(querier),
	}
}

func (self reportService) WriteTickets(id uuid.UUID, w io.Writer) error {
	self.logger.Trace().Stringer("item_collection", id).Msg("Getting ticket report")
	rows, err := self.reportRepository.GetTicketRows(id)
	if err != nil {
		return errors.WithMessagef(err, "Could not select tickets of ItemCollection %q", id)
	}
	self.logger.Trace().Stringer("item_collection", id).Int("rows", len(rows)).Msg("Got ticket report")

	records := make([][]string, 0, len(rows)+1)
	records = append(records, TicketReportHeader)
	for _, row := range rows {
		details := ""
		if row.AttendeeFullname != nil {
			details = self.details(row.AttendeeDetails)
		}
		records = append(records, []string{
			row.LineItemID.String(),
			row.ItemTitle,
			amount(row.BaseAmount),
			amount(row.DiscountedAmount),
			amount(row.FinalAmount),
			deref(row.DiscountPolicyTitle),
			row.BuyerFullname,
			row.BuyerEmail,
			row.BuyerPhone,
			deref(row.AttendeeFullname),
			deref(row.AttendeeEmail),
			deref(row.AttendeePhone),
			details,
		})
	}

	return csv.NewWriter(w).WriteAll(records)
}

func (self reportService) WriteAttendees(id uuid.UUID, w io.Writer) error {
	rows, err := self.reportRepository.GetAttendeeRows(id)
	if err != nil {
		return errors.WithMessagef(err, "Could not select attendees of ItemCollection %q", id)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, AttendeeReportHeader)
	for _, row := range rows {
		records = append(records, []string{
			row.LineItemID.String(),
			row.ItemTitle,
			row.Fullname,
			row.Email,
			row.Phone,
			self.details(row.Details),
		})
	}

	return csv.NewWriter(w).WriteAll(records)
}

// Attendee details are free text typed by buyers
// so they may carry terminal escapes that would end up in a spreadsheet.
func (self reportService) details(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}

	content, err := json.Marshal(stripEscapes(details))
	if err != nil {
		self.logger.Warn().Err(err).Msg("Could not serialize attendee details")
		return ""
	}
	return string(content)
}

func stripEscapes(value any) any {
	switch v := value.(type) {
	case string:
		if sane, err := ansi.Strip([]byte(v)); err == nil {
			return string(sane)
		}
		return v
	case map[string]any:
		stripped := make(map[string]any, len(v))
		for key, inner := range v {
			stripped[key] = stripEscapes(inner)
		}
		return stripped
	case []any:
		stripped := make([]any, len(v))
		for i, inner := range v {
			stripped[i] = stripEscapes(inner)
		}
		return stripped
	default:
		return v
	}
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
