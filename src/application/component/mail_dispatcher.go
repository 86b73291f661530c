package component

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/input-output-hk/boxoffice/src/application"
)

var ErrMailQueueFull = errors.New("Mail queue is full")

const mailAttempts = 3

// Delivers queued mails in the background.
type MailDispatcher struct {
	Logger zerolog.Logger
	// Nil if delivery is disabled, in which case queued mails are dropped.
	Mailer application.Mailer
	// Delay before the second attempt, doubled for each following one.
	Backoff time.Duration

	queue chan application.Mail
}

func NewMailDispatcher(mailer application.Mailer, size int, logger *zerolog.Logger) *MailDispatcher {
	return &MailDispatcher{
		Logger:  logger.With().Str("component", "MailDispatcher").Logger(),
		Mailer:  mailer,
		Backoff: 5 * time.Second,
		queue:   make(chan application.Mail, size),
	}
}

func (self *MailDispatcher) Enqueue(m application.Mail) error {
	if self.Mailer == nil {
		self.Logger.Warn().Str("kind", string(m.Kind)).Str("subject", m.Subject).Msg("Mail delivery is disabled, dropping mail")
		application.MailsTotal.WithLabelValues(string(m.Kind), "dropped").Inc()
		return nil
	}

	select {
	case self.queue <- m:
		return nil
	default:
		application.MailsTotal.WithLabelValues(string(m.Kind), "dropped").Inc()
		return errors.WithMessagef(ErrMailQueueFull, "Could not queue %s mail %q", m.Kind, m.Subject)
	}
}

func (self *MailDispatcher) Start(ctx context.Context) error {
	self.Logger.Info().Msg("Starting")

	for {
		select {
		case <-ctx.Done():
			self.Logger.Info().Int("pending", len(self.queue)).Msg("Stopping")
			return nil
		case m := <-self.queue:
			self.deliver(ctx, m)
		}
	}
}

func (self *MailDispatcher) deliver(ctx context.Context, m application.Mail) {
	logger := self.Logger.With().Str("kind", string(m.Kind)).Strs("to", m.To).Logger()
	backoff := self.Backoff

	for attempt := 1; ; attempt++ {
		err := self.Mailer.Send(ctx, m)
		if err == nil {
			logger.Debug().Int("attempt", attempt).Msg("Sent mail")
			application.MailsTotal.WithLabelValues(string(m.Kind), "sent").Inc()
			return
		}

		if attempt == mailAttempts {
			logger.Err(err).Int("attempt", attempt).Msg("Giving up on mail")
			application.MailsTotal.WithLabelValues(string(m.Kind), "failed").Inc()
			return
		}
		logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("Could not send mail")

		select {
		case <-ctx.Done():
			application.MailsTotal.WithLabelValues(string(m.Kind), "failed").Inc()
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}
