package application

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/input-output-hk/boxoffice/src/config"
)

type MailKind string

const (
	MailKindReceipt    MailKind = "receipt"
	MailKindAssignment MailKind = "assignment"
	MailKindAPIError   MailKind = "api_error"
)

// A mail whose body is written in Markdown.
// The HTML part is rendered from it and the source itself is sent as the text part.
type Mail struct {
	Kind     MailKind
	To       []string
	Bcc      []string
	Subject  string
	Markdown string
}

func (self Mail) Recipients() []string {
	return append(append([]string{}, self.To...), self.Bcc...)
}

type Mailer interface {
	Send(context.Context, Mail) error
}

// Queues mails for asynchronous delivery.
type MailQueue interface {
	Enqueue(Mail) error
}

type smtpMailer struct {
	settings config.MailSettings
	markdown goldmark.Markdown
}

func NewMailer(settings config.MailSettings) Mailer {
	return &smtpMailer{
		settings: settings,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify)),
	}
}

func (self *smtpMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(self.settings.From)
	if err != nil {
		return errors.WithMessagef(err, "Invalid sender address %q", self.settings.From)
	}

	recipients := m.Recipients()
	if len(recipients) == 0 {
		return errors.New("Mail has no recipients")
	}

	message, err := self.message(m)
	if err != nil {
		return err
	}

	addr := self.settings.Host + ":" + strconv.Itoa(self.settings.Port)
	var client *smtp.Client
	if self.settings.Port == 465 {
		client, err = smtp.DialTLS(addr, nil)
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		return errors.WithMessagef(err, "Could not connect to %s", addr)
	}
	defer client.Close()

	if err := client.Hello(self.settings.Hello); err != nil {
		return errors.WithMessage(err, "While greeting the server")
	}

	if self.settings.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", self.settings.Username, self.settings.Password)); err != nil {
			return errors.WithMessage(err, "While authenticating")
		}
	}

	if err := client.Mail(from.Address, nil); err != nil {
		return errors.WithMessage(err, "While identifying the sender")
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return errors.WithMessagef(err, "While designating recipient %q", rcpt)
		}
	}

	w, err := client.Data()
	if err != nil {
		return errors.WithMessage(err, "While starting message transmission")
	}
	if _, err := w.Write(message); err != nil {
		return errors.WithMessage(err, "While writing message")
	}
	if err := w.Close(); err != nil {
		return errors.WithMessage(err, "While finishing message transmission")
	}

	return client.Quit()
}

// Builds a multipart/alternative message with the text part first and the preferred HTML part last.
func (self *smtpMailer) message(m Mail) ([]byte, error) {
	var html bytes.Buffer
	if err := self.markdown.Convert([]byte(m.Markdown), &html); err != nil {
		return nil, errors.WithMessage(err, "While rendering Markdown")
	}

	var body bytes.Buffer
	parts := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     []byte
	}{
		{"text/plain; charset=UTF-8", []byte(m.Markdown)},
		{"text/html; charset=UTF-8", html.Bytes()},
	} {
		w, err := parts.CreatePart(textproto.MIMEHeader{
			"Content-Transfer-Encoding": {"quoted-printable"},
			"Content-Type":              {part.contentType},
		})
		if err != nil {
			return nil, err
		}
		qw := quotedprintable.NewWriter(w)
		if _, err := qw.Write(part.content); err != nil {
			return nil, err
		}
		if err := qw.Close(); err != nil {
			return nil, err
		}
	}
	if err := parts.Close(); err != nil {
		return nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost.localdomain"
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", self.settings.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Message-Id: <%s@%s>\r\n", uuid.New(), hostname)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n", parts.Boundary())
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
