package config

import (
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

// Site-wide settings that are not secrets passed on the command line.
type Settings struct {
	Timezone      string          `yaml:"timezone"`
	Currency      string          `yaml:"currency"`
	BaseUrl       string          `yaml:"base_url"`
	Admins        []string        `yaml:"admins"`
	Siteadmins    []string        `yaml:"siteadmins"`
	VerifyEmailMx bool            `yaml:"verify_email_mx"`
	ResolvConf    string          `yaml:"resolv_conf"`
	Mail          MailSettings    `yaml:"mail"`
	Payment       PaymentSettings `yaml:"payment"`

	location *time.Location
	unit     currency.Unit
}

type MailSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Hello    string `yaml:"hello"`
}

type PaymentSettings struct {
	BaseUrl   string `yaml:"base_url"`
	KeyId     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
}

const settingsFile = "boxoffice/settings.yaml"

func DefaultSettings() *Settings {
	return &Settings{
		Timezone:   "Asia/Kolkata",
		Currency:   "INR",
		BaseUrl:    "http://localhost:8080",
		ResolvConf: "/etc/resolv.conf",
		Mail: MailSettings{
			Host:  "localhost",
			Port:  25,
			From:  "boxoffice@localhost",
			Hello: "localhost",
		},
		Payment: PaymentSettings{
			BaseUrl: "https://api.razorpay.com/v1",
		},
	}
}

// Reads the given YAML file over the defaults.
// An empty path searches the XDG config directories and falls back to the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path == "" {
		if found, err := xdg.SearchConfigFile(settingsFile); err == nil {
			path = found
		}
	}

	if path != "" {
		if content, err := os.ReadFile(path); err != nil {
			return nil, errors.WithMessagef(err, "While reading settings from %q", path)
		} else if err := yaml.Unmarshal(content, settings); err != nil {
			return nil, errors.WithMessagef(err, "While parsing settings from %q", path)
		}
	}

	return settings, settings.Resolve()
}

// Parses the timezone and currency. LoadSettings already does this.
func (self *Settings) Resolve() error {
	if loc, err := time.LoadLocation(self.Timezone); err != nil {
		return errors.WithMessagef(err, "Invalid timezone %q", self.Timezone)
	} else {
		self.location = loc
	}

	if unit, err := currency.ParseISO(self.Currency); err != nil {
		return errors.WithMessagef(err, "Invalid currency %q", self.Currency)
	} else {
		self.unit = unit
	}

	return nil
}

func (self *Settings) Location() *time.Location {
	if self.location == nil {
		return time.UTC
	}
	return self.location
}

func (self *Settings) CurrencyUnit() currency.Unit {
	if self.unit == (currency.Unit{}) {
		return currency.INR
	}
	return self.unit
}

func (self *Settings) IsSiteadmin(subject string) bool {
	return subject != "" && slices.Contains(self.Siteadmins, subject)
}
