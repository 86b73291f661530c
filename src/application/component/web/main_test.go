package web

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/config"
	"github.com/input-output-hk/boxoffice/src/domain"
)

var testCookieKey = []byte("boxoffice-test-cookie-hash-key-0")

type webFixture struct {
	handler               http.Handler
	organizationService   *organizationServiceMock
	catalogService        *catalogServiceMock
	discountPolicyService *discountPolicyServiceMock
	lineItemService       *lineItemServiceMock
	orderService          *orderServiceMock
	reportService         *reportServiceMock
	statisticsService     *statisticsServiceMock
	mailService           *mailServiceMock

	org domain.Organization
}

func newWebFixture(t *testing.T) *webFixture {
	settings := config.DefaultSettings()
	require.NoError(t, settings.Resolve())

	f := &webFixture{
		organizationService:   &organizationServiceMock{},
		catalogService:        &catalogServiceMock{},
		discountPolicyService: &discountPolicyServiceMock{},
		lineItemService:       &lineItemServiceMock{},
		orderService:          &orderServiceMock{},
		reportService:         &reportServiceMock{},
		statisticsService:     &statisticsServiceMock{},
		mailService:           &mailServiceMock{},
		org: domain.Organization{
			ID:    uuid.New(),
			Name:  "acme",
			Title: "Acme Conferences",
		},
	}

	web := &Web{
		Settings:              settings,
		Logger:                zerolog.Nop(),
		OrganizationService:   f.organizationService,
		CatalogService:        f.catalogService,
		DiscountPolicyService: f.discountPolicyService,
		LineItemService:       f.lineItemService,
		OrderService:          f.orderService,
		ReportService:         f.reportService,
		StatisticsService:     f.statisticsService,
		MailService:           f.mailService,
		LiveFeed:              application.NewLiveFeed(),
		sessions:              sessions.NewCookieStore(testCookieKey),
	}
	f.handler = web.Router()

	return f
}

// Lets "alice" administer the fixture's organization.
func (self *webFixture) asOrgAdmin() *webFixture {
	self.organizationService.On("GetByName", self.org.Name).Return(&self.org, nil)
	self.organizationService.On("IsAdmin", self.org.ID, "alice").Return(true, nil)
	return self
}

func (self *webFixture) assertExpectations(t *testing.T) {
	self.organizationService.AssertExpectations(t)
	self.catalogService.AssertExpectations(t)
	self.discountPolicyService.AssertExpectations(t)
	self.lineItemService.AssertExpectations(t)
	self.orderService.AssertExpectations(t)
	self.reportService.AssertExpectations(t)
	self.statisticsService.AssertExpectations(t)
	self.mailService.AssertExpectations(t)
}

// A session cookie as the OIDC callback would have saved it.
func loginCookie(t *testing.T, subject string) string {
	encoded, err := securecookie.EncodeMulti(sessionOidc, map[any]any{
		sessionOidcSubject:  subject,
		sessionOidcProvider: "test",
		sessionOidcIdToken:  "id-token",
	}, securecookie.CodecsFromPairs(testCookieKey)...)
	require.NoError(t, err)
	return encoded
}

func xhr(test *apitest.APITest, t *testing.T, method, url string) *apitest.Request {
	return test.Method(method).URL(url).
		Header("X-Requested-With", "XMLHttpRequest").
		Cookie(sessionOidc, loginCookie(t, "alice"))
}

func TestLoginRequired(t *testing.T) {
	t.Parallel()

	t.Run("browsers are redirected to the login page", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)

		apitest.New().
			Handler(f.handler).
			Get("/admin/o/acme/discount_policies").
			Expect(t).
			Status(http.StatusFound).
			Header("Location", "/login/oidc?forward=%2Fadmin%2Fo%2Facme%2Fdiscount_policies").
			End()
	})

	t.Run("XHR requests are refused", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)

		apitest.New().
			Handler(f.handler).
			Get("/admin/o/acme/discount_policies").
			Header("X-Requested-With", "XMLHttpRequest").
			Expect(t).
			Status(http.StatusForbidden).
			Body(`{"status": "error", "error": "forbidden", "error_description": "Login required"}`).
			End()
	})
}

func TestNotOrgAdmin(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	f.organizationService.On("GetByName", "acme").Return(&f.org, nil)
	f.organizationService.On("IsAdmin", f.org.ID, "alice").Return(false, nil)

	xhr(apitest.New().Handler(f.handler), t, http.MethodGet, "/admin/o/acme/discount_policies").
		Expect(t).
		Status(http.StatusForbidden).
		Body(`{"status": "error", "error": "forbidden", "error_description": "You are not an admin of this organization"}`).
		End()

	f.assertExpectations(t)
}

func TestUnknownOrganization(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	f.organizationService.On("GetByName", "nobody").Return(nil, errors.WithMessage(domain.ErrNotFound, "Organization nobody"))

	xhr(apitest.New().Handler(f.handler), t, http.MethodGet, "/admin/o/nobody/discount_policies").
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"status": "error", "error": "not_found", "error_description": "Organization nobody: not found"}`).
		End()
}

func TestLoginPage(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)

	apitest.New().
		Handler(f.handler).
		Get("/login/oidc").
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", "text/html; charset=utf-8").
		Assert(func(res *http.Response, _ *http.Request) error {
			body := &bytes.Buffer{}
			if _, err := body.ReadFrom(res.Body); err != nil {
				return err
			}
			if !strings.Contains(body.String(), "No login providers are configured.") {
				return errors.New("login page does not list providers")
			}
			if !strings.Contains(body.String(), `integrity="sha256-`) {
				return errors.New("stylesheet has no integrity")
			}
			return nil
		}).
		End()
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)

	apitest.New().
		Handler(f.handler).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestIsXhr(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	assert.False(t, isXhr(req))

	req.Header.Set("Accept", "application/json, text/plain, */*")
	assert.True(t, isXhr(req))

	req.Header.Del("Accept")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, isXhr(req))
}

func TestSessionMaxAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, sessionMaxAge(nil, now))
	assert.Equal(t, 0, sessionMaxAge(&oauth2.Token{}, now))
	assert.Equal(t, 25*60*60, sessionMaxAge(&oauth2.Token{Expiry: now.Add(time.Hour)}, now))
}

func TestLocalForward(t *testing.T) {
	t.Parallel()

	for forward, expected := range map[string]string{
		"":                                "/admin",
		"/admin/o/acme/discount_policies": "/admin/o/acme/discount_policies",
		"/admin?page=2":                   "/admin?page=2",
		"https://evil.example.com/":       "/admin",
		"//evil.example.com/":             "/admin",
		"/\\evil.example.com/":            "/admin",
		"admin":                           "/admin",
		"javascript:alert(1)":             "/admin",
	} {
		assert.Equal(t, expected, localForward(forward), forward)
	}
}
