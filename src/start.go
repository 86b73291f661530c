package boxoffice

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cirello.io/oversight"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/application"
	"github.com/input-output-hk/boxoffice/src/application/component"
	"github.com/input-output-hk/boxoffice/src/application/component/web"
	"github.com/input-output-hk/boxoffice/src/application/service"
	"github.com/input-output-hk/boxoffice/src/config"
)

type StartCmd struct {
	Components []string `arg:"positional,env:BOXOFFICE_COMPONENTS" help:"any of: web, mail, sessions"`

	Settings string `arg:"--settings,env:BOXOFFICE_SETTINGS" help:"YAML file with site settings, searched in the XDG config directories if not given"`

	WebListen        string `arg:"--web-listen,env:BOXOFFICE_WEB_LISTEN" default:":8080"`
	WebCookieAuth    string `arg:"--web-cookie-auth" help:"file that contains the cookie authentication key"`
	WebCookieEnc     string `arg:"--web-cookie-enc" help:"file that contains the cookie encryption key"`
	WebOidcProviders string `arg:"--web-oidc-providers" help:"JSON file that contains a map of OIDC provider settings"`

	MailQueueSize        int           `arg:"--mail-queue-size" default:"256"`
	SessionPruneInterval time.Duration `arg:"--session-prune-interval" default:"5m"`

	LogDb bool `arg:"--log-db"`
}

type InstanceOpts interface {
	NewDB(context.Context, *zerolog.Logger) (*pgxpool.Pool, error)
	NewSettings() (*config.Settings, error)
	GetComponentOpts() InstanceComponentsOpts
}

type InstanceComponentsOpts struct {
	Web      *InstanceWebComponentOpts
	Mail     bool
	Sessions bool

	MailQueueSize        int
	SessionPruneInterval time.Duration
}

type InstanceWebComponentOpts struct {
	ListenAddr    string
	CookieAuth    string
	CookieEnc     string
	OidcProviders string
}

func (cmd StartCmd) NewDB(ctx context.Context, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	return config.DBConnection(ctx, logger, cmd.LogDb)
}

func (cmd StartCmd) NewSettings() (*config.Settings, error) {
	return config.LoadSettings(cmd.Settings)
}

func (cmd StartCmd) GetComponentOpts() InstanceComponentsOpts {
	start := InstanceComponentsOpts{
		MailQueueSize:        cmd.MailQueueSize,
		SessionPruneInterval: cmd.SessionPruneInterval,
	}

	webOpts := InstanceWebComponentOpts{
		ListenAddr:    cmd.WebListen,
		CookieAuth:    cmd.WebCookieAuth,
		CookieEnc:     cmd.WebCookieEnc,
		OidcProviders: cmd.WebOidcProviders,
	}

	// If none are given then start all,
	// otherwise start only those that are given.
	for _, component := range cmd.Components {
		switch component {
		case "web":
			start.Web = &webOpts
		case "mail":
			start.Mail = true
		case "sessions":
			start.Sessions = true
		default:
			panic("Unknown component: " + component)
		}
	}
	if start.Web == nil && !start.Mail && !start.Sessions {
		start.Web = &webOpts
		start.Mail = true
		start.Sessions = true
	}

	return start
}

func (cmd StartCmd) Run(logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instance, err := NewInstance(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer instance.Close()

	return instance.Run(ctx)
}

func NewInstance(ctx context.Context, opts InstanceOpts, logger *zerolog.Logger) (Instance, error) {
	instance := Instance{logger: logger}

	if db, err := opts.NewDB(ctx, logger); err != nil {
		return instance, errors.WithMessage(err, "While connecting to the database")
	} else {
		instance.db = db
	}

	settings, err := opts.NewSettings()
	if err != nil {
		return instance, err
	}

	var emailVerifier application.EmailVerifier
	if settings.VerifyEmailMx {
		if emailVerifier, err = application.NewMxVerifier(settings.ResolvConf); err != nil {
			return instance, err
		}
	} else {
		emailVerifier = application.NewSyntaxVerifier()
	}

	start := opts.GetComponentOpts()

	// Without the mail component mails are dropped.
	var mailer application.Mailer
	if start.Mail {
		mailer = application.NewMailer(settings.Mail)
	}
	mailDispatcher := component.NewMailDispatcher(mailer, start.MailQueueSize, logger)
	if start.Mail {
		instance.Mail = mailDispatcher
	}

	liveFeed := application.NewLiveFeed()
	paymentGateway := application.NewPaymentGateway(settings.Payment, logger)

	organizationService := service.NewOrganizationService(instance.db, logger)
	catalogService := service.NewCatalogService(instance.db, logger)
	discountPolicyService := service.NewDiscountPolicyService(instance.db, logger)
	lineItemService := service.NewLineItemService(instance.db, logger)
	mailService := service.NewMailService(instance.db, mailDispatcher, settings, logger)
	orderService := service.NewOrderService(instance.db, lineItemService, mailService, paymentGateway, emailVerifier, liveFeed, settings, logger)
	reportService := service.NewReportService(instance.db, logger)
	statisticsService := service.NewStatisticsService(instance.db, settings, logger)
	sessionService := service.NewSessionService(instance.db, logger)

	if start.Sessions {
		instance.Sessions = &component.SessionPruner{
			Logger:         logger.With().Str("component", "SessionPruner").Logger(),
			SessionService: sessionService,
			Interval:       start.SessionPruneInterval,
		}
	}

	if start.Web != nil {
		cfg, err := config.NewWebConfig(start.Web.ListenAddr, start.Web.CookieAuth, start.Web.CookieEnc, start.Web.OidcProviders)
		if err != nil {
			return instance, err
		}
		instance.Web = &web.Web{
			Config:                cfg,
			Settings:              settings,
			Logger:                logger.With().Str("component", "Web").Logger(),
			OrganizationService:   organizationService,
			CatalogService:        catalogService,
			DiscountPolicyService: discountPolicyService,
			LineItemService:       lineItemService,
			OrderService:          orderService,
			ReportService:         reportService,
			StatisticsService:     statisticsService,
			MailService:           mailService,
			LiveFeed:              liveFeed,
		}
	}

	return instance, nil
}

type Instance struct {
	Web      *web.Web
	Mail     *component.MailDispatcher
	Sessions *component.SessionPruner

	logger *zerolog.Logger
	db     *pgxpool.Pool
}

func (self Instance) Close() {
	if self.Web != nil && self.Web.Config.Sessions != nil {
		self.Web.Config.Sessions.Close()
	}
	if self.db != nil {
		self.db.Close()
	}
}

func (self Instance) Run(ctx context.Context) error {
	self.logger.Info().Msg("Starting components")

	supervisor := oversight.New(
		oversight.WithLogger(&config.SupervisorLogger{Logger: self.logger}),
		oversight.WithSpecification(
			10,                    // number of restarts
			1*time.Minute,         // within this time period
			oversight.OneForOne(), // restart every task on its own
		),
	)

	if self.Mail != nil {
		if err := supervisor.Add(self.Mail.Start); err != nil {
			return err
		}
	}

	if self.Sessions != nil {
		if err := supervisor.Add(self.Sessions.Start); err != nil {
			return err
		}
	}

	if self.Web != nil {
		if err := supervisor.Add(self.Web.Start); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := supervisor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.WithMessage(err, "While starting supervisor")
	}

	<-ctx.Done()
	return nil
}
