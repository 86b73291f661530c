package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func (self *Web) AdminIcIdReportsGet(w http.ResponseWriter, req *http.Request) {
	ic, ok := self.adminItemCollection(w, req)
	if !ok {
		return
	}

	org, err := self.OrganizationService.GetById(ic.OrganizationID)
	if err != nil {
		self.fail(w, req, err)
		return
	}

	data := map[string]any{
		"org_name": org.Name,
		"title":    ic.Title,
	}
	if isXhr(req) {
		self.json(w, data, http.StatusOK)
	} else {
		self.renderAdmin(w, req, "reports", ic.Title, data)
	}
}

func (self *Web) AdminIcIdReportsTicketsGet(w http.ResponseWriter, req *http.Request) {
	self.csvReport(w, req, self.ReportService.WriteTickets)
}

func (self *Web) AdminIcIdReportsAttendeesGet(w http.ResponseWriter, req *http.Request) {
	self.csvReport(w, req, self.ReportService.WriteAttendees)
}

func (self *Web) csvReport(w http.ResponseWriter, req *http.Request, write func(uuid.UUID, io.Writer) error) {
	ic, ok := self.adminItemCollection(w, req)
	if !ok {
		return
	}

	// buffered so a failure can still change the status
	buf := &bytes.Buffer{}
	if err := write(ic.ID, buf); err != nil {
		self.ServerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if _, err := buf.WriteTo(w); err != nil {
		self.Logger.Err(err).Msg("While writing CSV report")
	}
}

func (self *Web) AdminIcIdGet(w http.ResponseWriter, req *http.Request) {
	ic, ok := self.adminItemCollection(w, req)
	if !ok {
		return
	}

	dashboard, err := self.StatisticsService.GetDashboard(ic.ID, time.Now())
	if err != nil {
		self.fail(w, req, err)
		return
	}

	if isXhr(req) {
		self.json(w, dashboard, http.StatusOK)
	} else {
		self.renderAdmin(w, req, "dashboard", ic.Title, dashboard)
	}
}

var websocketUpgrader = websocket.Upgrader{}

const websocketPingInterval = 30 * time.Second

// Pushes the dashboard whenever the sales of the item collection change.
func (self *Web) AdminIcIdLiveGet(w http.ResponseWriter, req *http.Request) {
	ic, ok := self.adminItemCollection(w, req)
	if !ok {
		return
	}

	conn, err := websocketUpgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader already responded
		self.Logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	changes, unsubscribe := self.LiveFeed.Subscribe(ic.ID)

	go func() {
		defer unsubscribe()
		defer func() {
			if err := conn.Close(); err != nil {
				self.Logger.Err(err).Msg("While closing websocket")
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Cancel context when the connection is closed.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(websocketPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-changes:
				dashboard, err := self.StatisticsService.GetDashboard(ic.ID, time.Now())
				if err != nil {
					self.Logger.Err(err).Stringer("item-collection", ic.ID).Msg("Could not get dashboard")
					continue
				}

				message, err := json.Marshal(dashboard)
				if err != nil {
					self.Logger.Err(err).Msg("While marshaling dashboard")
					continue
				}

				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					self.Logger.Err(err).Msg("While writing message to websocket")
					return
				}
			}
		}
	}()
}
