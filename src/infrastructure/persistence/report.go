package persistence

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
	"github.com/input-output-hk/boxoffice/src/domain/repository"
)

type reportRepository struct {
	DB config.PgxIface
}

func NewReportRepository(db config.PgxIface) repository.ReportRepository {
	return &reportRepository{db}
}

func (a reportRepository) WithQuerier(querier config.PgxIface) repository.ReportRepository {
	return &reportRepository{querier}
}

func (a reportRepository) GetTicketRows(id uuid.UUID) ([]repository.TicketReportRow, error) {
	rows := []repository.TicketReportRow{}
	return rows, pgxscan.Select(
		context.Background(), a.DB, &rows,
		`SELECT
			line_item.id AS line_item_id,
			item.title AS item_title,
			line_item.base_amount,
			line_item.discounted_amount,
			line_item.final_amount,
			discount_policy.title AS discount_policy_title,
			customer_order.buyer_fullname,
			customer_order.buyer_email,
			customer_order.buyer_phone,
			assignee.fullname AS attendee_fullname,
			assignee.email AS attendee_email,
			assignee.phone AS attendee_phone,
			assignee.details AS attendee_details
		FROM line_item
		JOIN item ON item.id = line_item.item_id
		JOIN customer_order ON customer_order.id = line_item.order_id
		LEFT JOIN assignee ON assignee.line_item_id = line_item.id AND assignee.current
		LEFT JOIN discount_policy ON discount_policy.id = line_item.discount_policy_id
		WHERE customer_order.item_collection_id = $1 AND line_item.status = $2
		ORDER BY line_item.ordered_at, line_item.seq`,
		id, domain.LineItemStatusConfirmed,
	)
}

func (a reportRepository) GetAttendeeRows(id uuid.UUID) ([]repository.AttendeeReportRow, error) {
	rows := []repository.AttendeeReportRow{}
	return rows, pgxscan.Select(
		context.Background(), a.DB, &rows,
		`SELECT
			line_item.id AS line_item_id,
			item.title AS item_title,
			assignee.fullname,
			assignee.email,
			assignee.phone,
			assignee.details
		FROM assignee
		JOIN line_item ON line_item.id = assignee.line_item_id
		JOIN item ON item.id = line_item.item_id
		JOIN customer_order ON customer_order.id = line_item.order_id
		WHERE customer_order.item_collection_id = $1 AND line_item.status = $2 AND assignee.current
		ORDER BY line_item.ordered_at, line_item.seq`,
		id, domain.LineItemStatusConfirmed,
	)
}

func (a reportRepository) GetItemStatistics(id uuid.UUID) ([]repository.ItemStatistics, error) {
	stats := []repository.ItemStatistics{}
	return stats, pgxscan.Select(
		context.Background(), a.DB, &stats,
		`SELECT
			item.id AS item_id,
			item.title,
			item.quantity_available,
			count(line_item.id) FILTER (WHERE line_item.status = $2 AND line_item.final_amount > 0) AS sold,
			count(line_item.id) FILTER (WHERE line_item.status = $2 AND line_item.final_amount = 0) AS free,
			count(line_item.id) FILTER (WHERE line_item.status = $3) AS cancelled,
			coalesce(sum(line_item.final_amount) FILTER (WHERE line_item.status = $2), 0) AS net_sales
		FROM item
		JOIN category ON category.id = item.category_id
		LEFT JOIN line_item ON line_item.item_id = item.id
		WHERE item.item_collection_id = $1
		GROUP BY item.id, category.seq
		ORDER BY category.seq, item.created_at`,
		id, domain.LineItemStatusConfirmed, domain.LineItemStatusCancelled,
	)
}

func (a reportRepository) GetItemDateCounts(id uuid.UUID, timezone string) ([]repository.ItemDateCount, error) {
	counts := []repository.ItemDateCount{}
	return counts, pgxscan.Select(
		context.Background(), a.DB, &counts,
		`SELECT
			to_char(customer_order.paid_at AT TIME ZONE $3, 'YYYY-MM-DD') AS date,
			line_item.item_id,
			count(*) AS count
		FROM line_item
		JOIN item ON item.id = line_item.item_id
		JOIN customer_order ON customer_order.id = line_item.order_id
		WHERE item.item_collection_id = $1 AND line_item.status = $2
		GROUP BY 1, 2
		ORDER BY 1`,
		id, domain.LineItemStatusConfirmed, timezone,
	)
}

func (a reportRepository) GetDateSales(id uuid.UUID, timezone string) ([]repository.DateSales, error) {
	sales := []repository.DateSales{}
	return sales, pgxscan.Select(
		context.Background(), a.DB, &sales,
		`SELECT
			to_char(customer_order.paid_at AT TIME ZONE $3, 'YYYY-MM-DD') AS date,
			sum(line_item.final_amount) AS amount
		FROM line_item
		JOIN item ON item.id = line_item.item_id
		JOIN customer_order ON customer_order.id = line_item.order_id
		WHERE item.item_collection_id = $1 AND line_item.status = $2
		GROUP BY 1
		ORDER BY 1`,
		id, domain.LineItemStatusConfirmed, timezone,
	)
}
