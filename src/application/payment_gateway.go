package application

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/input-output-hk/boxoffice/src/config"
)

var ErrPaymentNotCaptured = errors.New("Payment could not be captured")

type CapturedPayment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentGateway interface {
	Capture(ctx context.Context, paymentId string, amount decimal.Decimal, unit currency.Unit) (*CapturedPayment, error)
}

type paymentGateway struct {
	settings config.PaymentSettings
	client   *retryablehttp.Client
}

func NewPaymentGateway(settings config.PaymentSettings, logger *zerolog.Logger) PaymentGateway {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = &retryLogger{logger.With().Str("component", "PaymentGateway").Logger()}

	return &paymentGateway{settings: settings, client: client}
}

// Converts the amount to the smallest unit of the currency, like paise for INR.
func minorUnits(amount decimal.Decimal, unit currency.Unit) int64 {
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart()
}

func (self *paymentGateway) Capture(ctx context.Context, paymentId string, amount decimal.Decimal, unit currency.Unit) (*CapturedPayment, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   minorUnits(amount, unit),
		"currency": unit.String(),
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(self.settings.BaseUrl, "/") + "/payments/" + url.PathEscape(paymentId) + "/capture"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(self.settings.KeyId, self.settings.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := self.client.Do(req)
	if err != nil {
		return nil, errors.WithMessagef(err, "While capturing payment %s", paymentId)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, errors.WithMessagef(err, "While reading capture response of payment %s", paymentId)
	}

	if res.StatusCode != http.StatusOK {
		return nil, errors.WithMessagef(ErrPaymentNotCaptured, "%s: gateway responded %d: %s", paymentId, res.StatusCode, resBody)
	}

	captured := CapturedPayment{}
	if err := json.Unmarshal(resBody, &captured); err != nil {
		return nil, errors.WithMessagef(err, "While parsing capture response of payment %s", paymentId)
	}
	if captured.Status != "captured" {
		return nil, errors.WithMessagef(ErrPaymentNotCaptured, "%s: status is %q", paymentId, captured.Status)
	}

	return &captured, nil
}

// Adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	zerolog.Logger
}

func (self *retryLogger) log(event *zerolog.Event, msg string, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	event.Msg(msg)
}

func (self *retryLogger) Error(msg string, keysAndValues ...any) {
	self.log(self.Logger.Error(), msg, keysAndValues)
}

func (self *retryLogger) Warn(msg string, keysAndValues ...any) {
	self.log(self.Logger.Warn(), msg, keysAndValues)
}

func (self *retryLogger) Info(msg string, keysAndValues ...any) {
	self.log(self.Logger.Debug(), msg, keysAndValues)
}

func (self *retryLogger) Debug(msg string, keysAndValues ...any) {
	self.log(self.Logger.Trace(), msg, keysAndValues)
}
