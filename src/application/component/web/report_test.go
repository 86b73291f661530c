package web

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/steinfletcher/apitest"

	"github.com/input-output-hk/boxoffice/src/domain"
)

func (self *webFixture) withItemCollection() *domain.ItemCollection {
	ic := &domain.ItemCollection{ID: uuid.New(), OrganizationID: self.org.ID, Name: "pycon", Title: "PyCon"}
	self.catalogService.On("GetItemCollection", ic.ID).Return(ic, nil)
	self.organizationService.On("IsAdmin", self.org.ID, "alice").Return(true, nil)
	return ic
}

func TestReports(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	ic := f.withItemCollection()
	f.organizationService.On("GetById", f.org.ID).Return(&f.org, nil)

	xhr(apitest.New().Handler(f.handler), t, http.MethodGet, "/admin/ic/"+ic.ID.String()+"/reports").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"org_name": "acme", "title": "PyCon"}`).
		End()

	f.assertExpectations(t)
}

func TestTicketsCsv(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		ic := f.withItemCollection()
		csv := "ticket id,invoice no,ticket type\n1,7,Conference ticket\n"
		f.reportService.On("WriteTickets", ic.ID).Return(csv, nil)

		apitest.New().
			Handler(f.handler).
			Get("/admin/ic/"+ic.ID.String()+"/reports/tickets.csv").
			Cookie(sessionOidc, loginCookie(t, "alice")).
			Expect(t).
			Status(http.StatusOK).
			Header("Content-Type", "text/csv").
			Body(csv).
			End()

		f.assertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		ic := f.withItemCollection()
		f.reportService.On("WriteTickets", ic.ID).Return("ticket id", errors.New("connection reset"))

		apitest.New().
			Handler(f.handler).
			Get("/admin/ic/"+ic.ID.String()+"/reports/tickets.csv").
			Cookie(sessionOidc, loginCookie(t, "alice")).
			Expect(t).
			Status(http.StatusInternalServerError).
			Body("connection reset\n").
			End()
	})
}

func TestInvalidPathId(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)

	xhr(apitest.New().Handler(f.handler), t, http.MethodGet, "/admin/ic/not-a-uuid/reports").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}
