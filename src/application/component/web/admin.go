package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/input-output-hk/boxoffice/src/domain"
)

// Responds with JSON to XHR requests and plain text otherwise.
func (self *Web) fail(w http.ResponseWriter, req *http.Request, err error) {
	if isXhr(req) {
		self.JsonError(w, err)
	} else {
		self.Error(w, err)
	}
}

// Checks that the user administers the organization.
// Responds and returns nil otherwise.
func (self *Web) orgAdmin(w http.ResponseWriter, req *http.Request, session *SessionOidc, orgId uuid.UUID) *SessionOidc {
	if isAdmin, err := self.OrganizationService.IsAdmin(orgId, session.Subject()); err != nil {
		self.fail(w, req, err)
		return nil
	} else if !isAdmin {
		self.fail(w, req, HandlerError{errors.New("You are not an admin of this organization"), http.StatusForbidden})
		return nil
	}
	return session
}

func (self *Web) adminOrganization(w http.ResponseWriter, req *http.Request) (*domain.Organization, bool) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return nil, false
	}

	org, err := self.OrganizationService.GetByName(mux.Vars(req)["org"])
	if err != nil {
		self.fail(w, req, err)
		return nil, false
	}

	return org, self.orgAdmin(w, req, session, org.ID) != nil
}

func (self *Web) adminItemCollection(w http.ResponseWriter, req *http.Request) (*domain.ItemCollection, bool) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return nil, false
	}

	id, ok := self.pathId(w, req, "id")
	if !ok {
		return nil, false
	}

	ic, err := self.CatalogService.GetItemCollection(id)
	if err != nil {
		self.fail(w, req, err)
		return nil, false
	}

	return ic, self.orgAdmin(w, req, session, ic.OrganizationID) != nil
}

func (self *Web) adminItem(w http.ResponseWriter, req *http.Request) (*domain.Item, bool) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return nil, false
	}

	id, ok := self.pathId(w, req, "id")
	if !ok {
		return nil, false
	}

	item, err := self.CatalogService.GetItem(id)
	if err != nil {
		self.fail(w, req, err)
		return nil, false
	}

	return item, self.orgAdmin(w, req, session, item.OrganizationID) != nil
}

func (self *Web) adminDiscountPolicy(w http.ResponseWriter, req *http.Request) (*domain.DiscountPolicy, bool) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return nil, false
	}

	id, ok := self.pathId(w, req, "id")
	if !ok {
		return nil, false
	}

	policy, err := self.DiscountPolicyService.GetById(id)
	if err != nil {
		self.fail(w, req, err)
		return nil, false
	}

	return policy, self.orgAdmin(w, req, session, policy.OrganizationID) != nil
}

func (self *Web) siteadmin(w http.ResponseWriter, req *http.Request) *SessionOidc {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return nil
	}
	if !self.Settings.IsSiteadmin(session.Subject()) {
		self.fail(w, req, HandlerError{errors.New("You are not a site admin"), http.StatusForbidden})
		return nil
	}
	return session
}

// Renders the admin console page that loads the view's data by itself.
func (self *Web) renderAdmin(w http.ResponseWriter, req *http.Request, view, title string, data any) {
	if err := self.render("admin.html", w, self.sessionOidc(w, req, false), map[string]any{
		"View":  view,
		"Title": title,
		"Url":   req.URL.Path,
		"Data":  data,
	}); err != nil {
		self.ServerError(w, err)
	}
}

func (self *Web) AdminGet(w http.ResponseWriter, req *http.Request) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return
	}

	orgs, err := self.OrganizationService.GetByAdmin(session.Subject())
	if err != nil {
		self.fail(w, req, err)
		return
	}

	if isXhr(req) {
		self.json(w, map[string]any{"organizations": orgs}, http.StatusOK)
	} else {
		self.renderAdmin(w, req, "organizations", "Organizations", orgs)
	}
}

func (self *Web) AdminOrgGet(w http.ResponseWriter, req *http.Request) {
	org, ok := self.adminOrganization(w, req)
	if !ok {
		return
	}

	ics, err := self.CatalogService.GetItemCollectionsByOrganizationId(org.ID)
	if err != nil {
		self.fail(w, req, err)
		return
	}

	if isXhr(req) {
		self.json(w, map[string]any{
			"org_name":         org.Name,
			"title":            org.Title,
			"item_collections": ics,
		}, http.StatusOK)
	} else {
		self.renderAdmin(w, req, "organization", org.Title, ics)
	}
}

func (self *Web) AdminIcIdItemNewPost(w http.ResponseWriter, req *http.Request) {
	ic, ok := self.adminItemCollection(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	body := struct {
		Title         string    `json:"title"`
		Name          string    `json:"name"`
		Description   string    `json:"description"`
		CategoryID    uuid.UUID `json:"category_id"`
		QuantityTotal int       `json:"quantity_total"`
	}{}
	if !self.decode(w, req, itemSchema, &body) {
		return
	}

	item := domain.Item{
		ItemCollectionID:  ic.ID,
		CategoryID:        body.CategoryID,
		Name:              body.Name,
		Title:             body.Title,
		Description:       body.Description,
		QuantityTotal:     body.QuantityTotal,
		QuantityAvailable: body.QuantityTotal,
	}
	if err := self.CatalogService.SaveItem(&item); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "New item created", "item": item}), http.StatusCreated)
}

func (self *Web) AdminItemIdEditPost(w http.ResponseWriter, req *http.Request) {
	item, ok := self.adminItem(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	body := struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		QuantityTotal *int    `json:"quantity_total"`
	}{}
	if !self.decode(w, req, itemEditSchema, &body) {
		return
	}

	if body.Title != nil {
		item.Title = *body.Title
	}
	if body.Description != nil {
		item.Description = *body.Description
	}
	if body.QuantityTotal != nil {
		if sold := item.QuantityTotal - item.QuantityAvailable; *body.QuantityTotal < sold {
			self.jsonFailure(w, http.StatusBadRequest, "quantity_total_error", "Total quantity cannot be less than the quantity sold")
			return
		}
		item.QuantityTotal = *body.QuantityTotal
	}

	if err := self.CatalogService.UpdateItem(item); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "Item updated", "item": item}), http.StatusOK)
}

func (self *Web) AdminItemIdPriceNewPost(w http.ResponseWriter, req *http.Request) {
	item, ok := self.adminItem(w, req)
	if !ok || !self.xhrOnly(w, req) {
		return
	}

	body := struct {
		Title   string          `json:"title"`
		Name    string          `json:"name"`
		StartAt string          `json:"start_at"`
		EndAt   string          `json:"end_at"`
		Amount  decimal.Decimal `json:"amount"`
	}{}
	if !self.decode(w, req, priceSchema, &body) {
		return
	}

	price := domain.Price{
		ItemID:   item.ID,
		Name:     body.Name,
		Title:    body.Title,
		Amount:   body.Amount,
		Currency: self.Settings.CurrencyUnit().String(),
	}

	var err error
	if price.StartAt, err = self.parseFormDate(body.StartAt); err != nil {
		self.JsonError(w, HandlerError{err, http.StatusBadRequest})
		return
	}
	if price.EndAt, err = self.parseFormDate(body.EndAt); err != nil {
		self.JsonError(w, HandlerError{err, http.StatusBadRequest})
		return
	}

	if err := self.CatalogService.SavePrice(&price); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "New price created", "price": price}), http.StatusCreated)
}

func (self *Web) AdminLineItemIdCancelPost(w http.ResponseWriter, req *http.Request) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return
	}

	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	lineItem, err := self.OrderService.GetLineItem(id)
	if err != nil {
		self.fail(w, req, err)
		return
	}
	order, err := self.OrderService.GetById(lineItem.OrderID)
	if err != nil {
		self.fail(w, req, err)
		return
	}
	if self.orgAdmin(w, req, session, order.OrganizationID) == nil || !self.xhrOnly(w, req) {
		return
	}

	if lineItem, err = self.OrderService.CancelLineItem(id); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "Ticket cancelled", "line_item": lineItem}), http.StatusOK)
}

func (self *Web) SiteadminOrganizationPost(w http.ResponseWriter, req *http.Request) {
	if self.siteadmin(w, req) == nil {
		return
	}

	org := domain.Organization{}
	if !self.decode(w, req, organizationSchema, &org) {
		return
	}

	if err := self.OrganizationService.Save(&org); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "New organization created", "organization": org}), http.StatusCreated)
}

func (self *Web) siteadminOrganization(w http.ResponseWriter, req *http.Request) (*domain.Organization, bool) {
	if self.siteadmin(w, req) == nil {
		return nil, false
	}

	org, err := self.OrganizationService.GetByName(mux.Vars(req)["org"])
	if err != nil {
		self.JsonError(w, err)
		return nil, false
	}
	return org, true
}

func (self *Web) SiteadminOrgItemCollectionPost(w http.ResponseWriter, req *http.Request) {
	org, ok := self.siteadminOrganization(w, req)
	if !ok {
		return
	}

	ic := domain.ItemCollection{}
	if !self.decode(w, req, itemCollectionSchema, &ic) {
		return
	}
	ic.OrganizationID = org.ID

	if err := self.CatalogService.SaveItemCollection(&ic); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "New item collection created", "item_collection": ic}), http.StatusCreated)
}

func (self *Web) SiteadminOrgAdminPost(w http.ResponseWriter, req *http.Request) {
	org, ok := self.siteadminOrganization(w, req)
	if !ok {
		return
	}

	body := struct {
		Subject string `json:"subject"`
	}{}
	if !self.decode(w, req, adminSchema, &body) {
		return
	}

	if err := self.OrganizationService.AddAdmin(org.ID, body.Subject); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "Admin added"}), http.StatusCreated)
}

func (self *Web) SiteadminIcIdCategoryPost(w http.ResponseWriter, req *http.Request) {
	if self.siteadmin(w, req) == nil {
		return
	}

	id, ok := self.pathId(w, req, "id")
	if !ok {
		return
	}

	ic, err := self.CatalogService.GetItemCollection(id)
	if err != nil {
		self.JsonError(w, err)
		return
	}

	category := domain.Category{}
	if !self.decode(w, req, categorySchema, &category) {
		return
	}
	category.ItemCollectionID = ic.ID

	if err := self.CatalogService.SaveCategory(&category); err != nil {
		self.JsonError(w, err)
		return
	}

	self.json(w, success(map[string]any{"message": "New category created", "category": category}), http.StatusCreated)
}
