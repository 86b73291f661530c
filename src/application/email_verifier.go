package application

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

var ErrUndeliverableEmail = errors.New("Email address cannot receive mail")

type EmailVerifier interface {
	// Returns the bare address or an error if it cannot receive mail.
	Verify(string) (string, error)
}

type syntaxVerifier struct{}

// Only checks the syntax of addresses.
func NewSyntaxVerifier() EmailVerifier {
	return syntaxVerifier{}
}

func (syntaxVerifier) Verify(address string) (string, error) {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return "", errors.WithMessagef(ErrUndeliverableEmail, "%q: %s", address, err)
	}
	return parsed.Address, nil
}

type mxVerifier struct {
	syntaxVerifier
	clientConfig *dns.ClientConfig
	client       *dns.Client
}

// Also checks that the domain of addresses has a mail exchanger.
func NewMxVerifier(resolvConf string) (EmailVerifier, error) {
	clientConfig, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, errors.WithMessagef(err, "While reading resolver config %q", resolvConf)
	}
	return &mxVerifier{clientConfig: clientConfig, client: &dns.Client{}}, nil
}

func (self *mxVerifier) Verify(address string) (string, error) {
	bare, err := self.syntaxVerifier.Verify(address)
	if err != nil {
		return "", err
	}

	domain := bare[strings.LastIndex(bare, "@")+1:]

	// Without MX records the domain itself is the mail exchanger.
	for _, qtype := range []uint16{dns.TypeMX, dns.TypeA, dns.TypeAAAA} {
		if found, err := self.lookup(domain, qtype); err != nil {
			return "", err
		} else if found {
			return bare, nil
		}
	}

	return "", errors.WithMessagef(ErrUndeliverableEmail, "%q: no mail exchanger for %s", address, domain)
}

func (self *mxVerifier) lookup(domain string, qtype uint16) (bool, error) {
	server := fmt.Sprintf("%s:%s", self.clientConfig.Servers[0], self.clientConfig.Port)

	m := &dns.Msg{}
	m.SetQuestion(dns.Fqdn(domain), qtype)
	in, _, err := self.client.Exchange(m, server)
	if err != nil {
		return false, errors.WithMessagef(err, "While looking up %s records of %s", dns.TypeToString[qtype], domain)
	}

	if in.Rcode == dns.RcodeNameError {
		return false, nil
	}
	for _, answer := range in.Answer {
		if answer.Header().Rrtype == qtype {
			return true, nil
		}
	}
	return false, nil
}
