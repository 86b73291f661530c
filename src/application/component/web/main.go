package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/rs/zerolog"
	"github.com/zitadel/oidc/pkg/client/rp"
	"github.com/zitadel/oidc/pkg/oidc"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/oauth2"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/application/service"
	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

type Web struct {
	Config   config.WebConfig
	Settings *config.Settings

	Logger                zerolog.Logger
	OrganizationService   service.OrganizationService
	CatalogService        service.CatalogService
	DiscountPolicyService service.DiscountPolicyService
	LineItemService       service.LineItemService
	OrderService          service.OrderService
	ReportService         service.ReportService
	StatisticsService     service.StatisticsService
	MailService           service.MailService
	LiveFeed              application.LiveFeed

	sessions sessions.Store
}

const loginOidcPath = "/login/oidc"

func init() {
	prometheus.MustRegister(version.NewCollector("boxoffice"))
}

func (self *Web) Start(ctx context.Context) error {
	self.Logger.Info().Str("listen", self.Config.Listen).Msg("Starting")

	server := &http.Server{Addr: self.Config.Listen, Handler: self.Router()}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			self.Logger.Err(err).Msgf("Failed to start web server on %s", self.Config.Listen)
		}
	}()

	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		self.Logger.Err(err).Msg("Failed to stop web server")
	}

	return nil
}

func (self *Web) Router() http.Handler {
	if self.sessions == nil {
		if self.Config.Sessions != nil {
			self.sessions = self.Config.Sessions
		} else {
			self.Logger.Warn().Msg("No session store configured, sessions will not survive a restart")
			self.sessions = sessions.NewCookieStore(securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32))
		}
	}

	r := mux.NewRouter().StrictSlash(true).UseEncodedPath()
	r.NotFoundHandler = http.NotFoundHandler()
	r.Use(self.metrics)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(staticFs))).Methods(http.MethodGet)

	r.HandleFunc("/", self.IndexGet).Methods(http.MethodGet)
	r.HandleFunc(loginOidcPath, self.LoginOidcGet).Methods(http.MethodGet)
	r.HandleFunc(loginOidcPath+"/{provider}", self.LoginOidcProviderGet).Methods(http.MethodGet)
	r.HandleFunc(loginOidcPath+"/{provider}/callback", self.LoginOidcProviderCallbackGet).Methods(http.MethodGet)
	r.HandleFunc("/logout", self.LogoutGet).Methods(http.MethodGet)

	// sorted alphabetically, please keep it this way
	r.HandleFunc("/admin/discount_policy/{id}/coupons", self.AdminDiscountPolicyIdCouponsGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/discount_policy/{id}/edit", self.AdminDiscountPolicyIdEditPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/discount_policy/{id}/generate_coupon", self.AdminDiscountPolicyIdGenerateCouponPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/ic/{id}/item/new", self.AdminIcIdItemNewPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/ic/{id}/live", self.AdminIcIdLiveGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/ic/{id}/reports/attendees.csv", self.AdminIcIdReportsAttendeesGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/ic/{id}/reports/tickets.csv", self.AdminIcIdReportsTicketsGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/ic/{id}/reports", self.AdminIcIdReportsGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/ic/{id}", self.AdminIcIdGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/item/{id}/edit", self.AdminItemIdEditPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/item/{id}/price/new", self.AdminItemIdPriceNewPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/line_item/{id}/cancel", self.AdminLineItemIdCancelPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/o/{org}/discount_policies", self.AdminOrgDiscountPoliciesGet).Methods(http.MethodGet)
	r.HandleFunc("/admin/o/{org}/discount_policy/new", self.AdminOrgDiscountPolicyNewPost).Methods(http.MethodPost)
	r.HandleFunc("/admin/o/{org}", self.AdminOrgGet).Methods(http.MethodGet)
	r.HandleFunc("/admin", self.AdminGet).Methods(http.MethodGet)
	r.HandleFunc("/ic/{id}/kharcha", self.IcIdKharchaPost).Methods(http.MethodPost)
	r.HandleFunc("/ic/{id}/order", self.IcIdOrderPost).Methods(http.MethodPost)
	r.HandleFunc("/ic/{id}", self.IcIdGet).Methods(http.MethodGet)
	r.HandleFunc("/order/{access_token}/ticket", self.OrderAccessTokenTicketGet).Methods(http.MethodGet)
	r.HandleFunc("/order/{id}/free", self.OrderIdFreePost).Methods(http.MethodPost)
	r.HandleFunc("/order/{id}/payment", self.OrderIdPaymentPost).Methods(http.MethodPost)
	r.HandleFunc("/participant/{access_token}/assign", self.ParticipantAccessTokenAssignPost).Methods(http.MethodPost)
	r.HandleFunc("/siteadmin/ic/{id}/category", self.SiteadminIcIdCategoryPost).Methods(http.MethodPost)
	r.HandleFunc("/siteadmin/o/{org}/admin", self.SiteadminOrgAdminPost).Methods(http.MethodPost)
	r.HandleFunc("/siteadmin/o/{org}/item_collection", self.SiteadminOrgItemCollectionPost).Methods(http.MethodPost)
	r.HandleFunc("/siteadmin/organization", self.SiteadminOrganizationPost).Methods(http.MethodPost)

	return r
}

func (self *Web) IndexGet(w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, "/admin", http.StatusFound)
}

func (self *Web) LoginOidcGet(w http.ResponseWriter, req *http.Request) {
	session := self.sessionOidc(w, req, false)

	providers := maps.Keys(self.Config.OidcProviders)
	slices.Sort(providers)

	var provider string
	if session != nil {
		provider = session.Provider()
	}

	if err := self.render("login/oidc.html", w, session, map[string]any{
		"Providers": providers,
		"Forward":   req.URL.Query().Get("forward"),

		// only non-empty if already logged in
		"Provider": provider,
	}); err != nil {
		self.ServerError(w, err)
		return
	}
}

type oidcState struct {
	Forward string `json:"forward"`
	Nonce   string `json:"nonce"`
}

func (self *Web) LoginOidcProviderGet(w http.ResponseWriter, req *http.Request) {
	provider, exists := self.Config.OidcProviders[mux.Vars(req)["provider"]]
	if !exists {
		self.NotFound(w, nil)
		return
	}

	if state, err := json.Marshal(oidcState{
		req.URL.Query().Get("forward"),
		uuid.New().String(),
	}); err != nil {
		self.ClientError(w, errors.WithMessage(err, "While marshaling the `forward` parameter to JSON"))
		return
	} else {
		rp.AuthURLHandler(func() string { return string(state) }, provider)(w, req)
	}
}

func (self *Web) LoginOidcProviderCallbackGet(w http.ResponseWriter, req *http.Request) {
	providerName := mux.Vars(req)["provider"]
	provider, exists := self.Config.OidcProviders[providerName]
	if !exists {
		self.NotFound(w, nil)
		return
	}

	rp.CodeExchangeHandler(
		rp.UserinfoCallback(func(w http.ResponseWriter, req *http.Request, tokens *oidc.Tokens, stateJson string, provider rp.RelyingParty, info oidc.UserInfo) {
			session, err := self.sessions.New(req, sessionOidc)
			if err != nil {
				self.ServerError(w, err)
				return
			}

			if infoJson, err := json.Marshal(info); err != nil {
				self.ServerError(w, err)
				return
			} else {
				session.Values[sessionOidcUserinfo] = infoJson
			}

			session.Values[sessionOidcSubject] = info.GetSubject()
			session.Values[sessionOidcProvider] = providerName
			session.Values[sessionOidcIdToken] = tokens.IDToken
			if maxAge := sessionMaxAge(tokens.Token, time.Now()); maxAge > 0 {
				session.Options.MaxAge = maxAge
			}

			if err := session.Save(req, w); err != nil {
				self.ServerError(w, err)
				return
			}

			state := oidcState{}
			if err := json.Unmarshal([]byte(stateJson), &state); err != nil {
				self.ClientError(w, err)
				return
			}

			http.Redirect(w, req, localForward(state.Forward), http.StatusFound)
		}),
		provider,
	)(w, req)
}

// Only paths on this host are followed after login.
func localForward(forward string) string {
	if !strings.HasPrefix(forward, "/") || strings.HasPrefix(forward, "//") || strings.HasPrefix(forward, "/\\") {
		return "/admin"
	}
	if u, err := url.Parse(forward); err != nil || u.Scheme != "" || u.Host != "" {
		return "/admin"
	}
	return forward
}

// Sessions outlive the access token by a day so the ID token stays around for logout.
func sessionMaxAge(token *oauth2.Token, now time.Time) int {
	if token == nil || token.Expiry.IsZero() {
		return 0
	}
	return int(token.Expiry.Add(24*time.Hour).Sub(now) / time.Second)
}

func (self *Web) LogoutGet(w http.ResponseWriter, req *http.Request) {
	session := self.sessionOidc(w, req, true)
	if session == nil {
		return
	}

	session.Session.Options.MaxAge = -1
	if err := session.Session.Save(req, w); err != nil {
		self.ServerError(w, err)
		return
	}

	http.Redirect(w, req, loginOidcPath, http.StatusFound)
}

type HandlerError struct {
	error
	StatusCode int
}

func (self HandlerError) HasError() bool {
	return self.error != nil
}

func (self HandlerError) Unwrap() error {
	return self.error
}

// Fails the request and notifies the admins by mail.
type APIError struct {
	Message         string
	StatusCode      int
	ResponseMessage string
}

func (self APIError) Error() string {
	return self.Message
}

func (self *Web) ServerError(w http.ResponseWriter, err error) {
	self.Error(w, HandlerError{err, http.StatusInternalServerError})
}

func (self *Web) ClientError(w http.ResponseWriter, err error) {
	self.Error(w, HandlerError{err, http.StatusBadRequest})
}

func (self *Web) NotFound(w http.ResponseWriter, err error) {
	self.Error(w, HandlerError{err, http.StatusNotFound})
}

func (self *Web) Forbidden(w http.ResponseWriter, err error) {
	self.Error(w, HandlerError{err, http.StatusForbidden})
}

// Responds with plain text.
func (self *Web) Error(w http.ResponseWriter, err error) {
	if self.apiError(w, err) {
		return
	}

	status, _ := self.classify(err)

	var msg string
	if handlerErr, ok := err.(HandlerError); ok && !handlerErr.HasError() {
		msg = http.StatusText(status)
	} else if err != nil {
		msg = err.Error()
	}

	http.Error(w, msg, status)
}

type errorResponse struct {
	Status           string `json:"status"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Responds with an error in JSON.
func (self *Web) JsonError(w http.ResponseWriter, err error) {
	if self.apiError(w, err) {
		return
	}

	status, code := self.classify(err)

	description := http.StatusText(status)
	if handlerErr, ok := err.(HandlerError); !ok || handlerErr.HasError() {
		description = err.Error()
	}

	self.json(w, errorResponse{"error", code, description}, status)
}

func (self *Web) jsonFailure(w http.ResponseWriter, status int, code, description string) {
	self.Logger.Debug().Int("status", status).Str("error", code).Msg(description)
	self.json(w, errorResponse{"error", code, description}, status)
}

func (self *Web) apiError(w http.ResponseWriter, err error) bool {
	apiErr := APIError{}
	if !errors.As(err, &apiErr) {
		return false
	}

	self.Logger.Error().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("API error")
	if mailErr := self.MailService.SendAPIError(apiErr.Message); mailErr != nil {
		self.Logger.Err(mailErr).Msg("Could not notify admins of API error")
	}

	self.json(w, map[string]string{"message": apiErr.ResponseMessage}, apiErr.StatusCode)
	return true
}

// Finds the status and error code for the given error and logs it.
func (self *Web) classify(err error) (int, string) {
	status, code := http.StatusInternalServerError, "server_error"

	logged := err
	if handlerErr, ok := err.(HandlerError); ok {
		status = handlerErr.StatusCode
		if c, exists := errorCodes[status]; exists {
			code = c
		} else {
			code = "error"
		}
		if !handlerErr.HasError() {
			logged = nil
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrLineItemNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrOutOfStock):
		status, code = http.StatusBadRequest, "out_of_stock"
	case errors.Is(err, domain.ErrNoCurrentPrice):
		status, code = http.StatusBadRequest, "no_current_price"
	case errors.Is(err, application.ErrUndeliverableEmail):
		status, code = http.StatusBadRequest, "invalid_email"
	case errors.Is(err, domain.ErrOrderNotPayable),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrNotAssignable),
		errors.Is(err, service.ErrOrderNotConfirmed),
		errors.Is(err, service.ErrInvalidPricePeriod):
		status, code = http.StatusBadRequest, "invalid_state"
	}

	var e *zerolog.Event
	if status >= 500 {
		e = self.Logger.Error().Err(logged)
	} else {
		e = self.Logger.Debug().Err(logged)
	}
	e.Int("status", status).Msg("Handler error")

	return status, code
}

var errorCodes = map[int]string{
	http.StatusBadRequest:          "invalid_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusInternalServerError: "server_error",
}

func (self *Web) json(w http.ResponseWriter, obj any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		self.Logger.Err(err).Msg("While encoding JSON response")
	}
}

func success(result any) map[string]any {
	return map[string]any{"status": "ok", "result": result}
}

// Whether the request was made by the admin console's scripts rather than a browser navigation.
func isXhr(req *http.Request) bool {
	return req.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(req.Header.Get("Accept"), "application/json")
}

// Responds and returns false unless the request is an XHR request.
func (self *Web) xhrOnly(w http.ResponseWriter, req *http.Request) bool {
	if isXhr(req) {
		return true
	}
	self.json(w, map[string]string{"message": "Only XHR requests are allowed"}, http.StatusBadRequest)
	return false
}

func (self *Web) pathId(w http.ResponseWriter, req *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(req)[key])
	if err != nil {
		self.NotFound(w, errors.WithMessagef(err, "Invalid %s", key))
		return id, false
	}
	return id, true
}

func queryInt(req *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(req.URL.Query().Get(key)); err == nil {
		return v
	}
	return fallback
}

const (
	sessionOidc         = "oidc"
	sessionOidcUserinfo = "userinfo"
	sessionOidcSubject  = "subject"
	sessionOidcProvider = "provider"
	sessionOidcIdToken  = "id-token"
)

// For protected endpoints do this (before sending the first byte):
//
// session := self.sessionOidc(w, req, true)
// if session == nil { return }
//
// XHR requests are refused instead of redirected to the login page.
func (self *Web) sessionOidc(w http.ResponseWriter, req *http.Request, private bool) *SessionOidc {
	session, err := self.sessions.Get(req, sessionOidc)
	sessionOidc := SessionOidc{Session: session}
	if err != nil || sessionOidc.Subject() == "" {
		if private {
			if isXhr(req) {
				self.jsonFailure(w, http.StatusForbidden, "forbidden", "Login required")
				return nil
			}

			forward := req.URL.RequestURI()
			if req.URL.RawFragment != "" {
				forward += "#" + req.URL.RawFragment
			}

			loginUriQuery := url.Values{}
			loginUriQuery.Add("forward", forward)

			loginUri := url.URL{
				Path:     loginOidcPath,
				RawQuery: loginUriQuery.Encode(),
			}

			http.Redirect(w, req, loginUri.RequestURI(), http.StatusFound)
		}
		return nil
	}
	return &sessionOidc
}

type SessionOidc struct {
	Session *sessions.Session

	userinfo oidc.UserInfo // for caching
}

func (self *SessionOidc) UserInfo() oidc.UserInfo {
	if self.userinfo != nil {
		return self.userinfo
	}

	info := oidc.NewUserInfo()
	if infoJsonIf, exists := self.Session.Values[sessionOidcUserinfo]; !exists {
		return nil
	} else if infoJson, ok := infoJsonIf.([]byte); !ok {
		return nil
	} else if err := json.Unmarshal(infoJson, info); err != nil {
		return nil
	}

	self.userinfo = info
	return self.userinfo
}

func (self SessionOidc) Subject() string {
	return self.getString(sessionOidcSubject)
}

func (self SessionOidc) Provider() string {
	return self.getString(sessionOidcProvider)
}

func (self SessionOidc) IdToken() string {
	return self.getString(sessionOidcIdToken)
}

func (self SessionOidc) getString(key string) string {
	if self.Session == nil {
		return ""
	}
	v, _ := self.Session.Values[key].(string)
	return v
}

func (self *Web) render(route string, w http.ResponseWriter, session *SessionOidc, data map[string]any) error {
	if data == nil {
		data = make(map[string]any, 1)
	} else if _, exists := data["Session"]; exists {
		panic(`Render data must not contain key "Session"`)
	}
	data["Session"] = session
	return render(route, w, data)
}
