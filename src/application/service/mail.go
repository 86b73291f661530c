package service

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/google/uuid"
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

const (
	ReceiptSubject    = "Thank you for your order!"
	AssignmentSubject = "Please tell us who's coming!"
	APIErrorSubject   = "API Error"
)

//go:embed mails
var mailsFs embed.FS

var mailTemplates = template.Must(template.ParseFS(mailsFs, "mails/*.md"))

type MailService interface {
	SendReceiptEmail(uuid.UUID) error
	SendParticipantAssignmentMail(uuid.UUID) error
	SendAPIError(string) error
}

type mailService struct {
	logger                   zerolog.Logger
	queue                    application.MailQueue
	settings                 *config.Settings
	organizationRepository   repository.OrganizationRepository
	itemCollectionRepository repository.ItemCollectionRepository
	itemRepository           repository.ItemRepository
	orderRepository          repository.OrderRepository
	lineItemRepository       repository.LineItemRepository
	assigneeRepository       repository.AssigneeRepository
}

func NewMailService(db config.PgxIface, queue application.MailQueue, settings *config.Settings, logger *zerolog.Logger) MailService {
	return &mailService{
		logger:                   logger.With().Str("component", "MailService").Logger(),
		queue:                    queue,
		settings:                 settings,
		organizationRepository:   persistence.NewOrganizationRepository(db),
		itemCollectionRepository: persistence.NewItemCollectionRepository(db),
		itemRepository:           persistence.NewItemRepository(db),
		orderRepository:          persistence.NewOrderRepository(db),
		lineItemRepository:       persistence.NewLineItemRepository(db),
		assigneeRepository:       persistence.NewAssigneeRepository(db),
	}
}

type mailLineItem struct {
	Seq              int
	ItemTitle        string
	BaseAmount       string
	DiscountedAmount string
	FinalAmount      string
	Assignee         *domain.Assignee
}

type orderMail struct {
	Order          domain.Order
	Organization   domain.Organization
	ItemCollection domain.ItemCollection
	LineItems      []mailLineItem
	Total          string
	TicketUrl      string
}

// Collects everything the order mails show about the confirmed line items of an order.
func (self mailService) orderMail(orderId uuid.UUID) (*orderMail, error) {
	order, err := self.orderRepository.GetById(orderId)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Order %q", orderId)
	}
	org, err := self.organizationRepository.GetById(order.OrganizationID)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Organization of Order %q", orderId)
	}
	ic, err := self.itemCollectionRepository.GetById(order.ItemCollectionID)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select ItemCollection of Order %q", orderId)
	}

	lineItems, err := self.lineItemRepository.GetByOrderId(orderId)
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select LineItems of Order %q", orderId)
	}
	lineItems = lo.Filter(lineItems, func(li domain.LineItem, _ int) bool { return li.IsConfirmed() })

	items, err := self.itemRepository.GetByIds(lo.Uniq(lo.Map(lineItems, func(li domain.LineItem, _ int) uuid.UUID { return li.ItemID })))
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Items of Order %q", orderId)
	}
	itemsById := lo.KeyBy(items, func(item domain.Item) uuid.UUID { return item.ID })

	assignees, err := self.assigneeRepository.GetCurrentByLineItemIds(lo.Map(lineItems, func(li domain.LineItem, _ int) uuid.UUID { return li.ID }))
	if err != nil {
		return nil, errors.WithMessagef(err, "Could not select Assignees of Order %q", orderId)
	}
	assigneesByLineItem := lo.KeyBy(assignees, func(a domain.Assignee) uuid.UUID { return a.LineItemID })

	unit := self.settings.CurrencyUnit()
	data := orderMail{
		Order:          *order,
		Organization:   *org,
		ItemCollection: *ic,
		TicketUrl:      strings.TrimSuffix(self.settings.BaseUrl, "/") + "/order/" + order.AccessToken + "/ticket",
	}
	total := decimal.Zero
	for _, li := range lineItems {
		mli := mailLineItem{
			Seq:              li.Seq,
			ItemTitle:        itemsById[li.ItemID].Title,
			BaseAmount:       application.FormatAmount(li.BaseAmount, unit),
			DiscountedAmount: application.FormatAmount(li.DiscountedAmount, unit),
			FinalAmount:      application.FormatAmount(li.FinalAmount, unit),
		}
		if assignee, ok := assigneesByLineItem[li.ID]; ok {
			mli.Assignee = &assignee
		}
		data.LineItems = append(data.LineItems, mli)
		total = total.Add(li.FinalAmount)
	}
	data.Total = application.FormatAmount(total, unit)

	return &data, nil
}

func (self mailService) sendOrderMail(orderId uuid.UUID, kind application.MailKind, subject, templateName string) error {
	data, err := self.orderMail(orderId)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&body, templateName, data); err != nil {
		return errors.WithMessagef(err, "While rendering %s", templateName)
	}

	mail := application.Mail{
		Kind:     kind,
		To:       []string{data.Order.BuyerEmail},
		Subject:  subject,
		Markdown: body.String(),
	}
	if data.Organization.ContactEmail != "" {
		mail.Bcc = []string{data.Organization.ContactEmail}
	}

	self.logger.Debug().Stringer("order", orderId).Str("kind", string(kind)).Msg("Queueing mail")
	return errors.WithMessagef(self.queue.Enqueue(mail), "Could not queue %s mail for Order %q", kind, orderId)
}

func (self mailService) SendReceiptEmail(orderId uuid.UUID) error {
	return self.sendOrderMail(orderId, application.MailKindReceipt, ReceiptSubject, "receipt.md")
}

func (self mailService) SendParticipantAssignmentMail(orderId uuid.UUID) error {
	return self.sendOrderMail(orderId, application.MailKindAssignment, AssignmentSubject, "assignment.md")
}

func (self mailService) SendAPIError(message string) error {
	if len(self.settings.Admins) == 0 {
		self.logger.Warn().Str("message", message).Msg("No admins to notify of API error")
		return nil
	}
	return self.queue.Enqueue(application.Mail{
		Kind:     application.MailKindAPIError,
		To:       self.settings.Admins,
		Subject:  APIErrorSubject,
		Markdown: message,
	})
}
