// Package payment confirms card payments with the payment processor from the
// client side, using a publishable key and a payment intent client secret.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/schema"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/sirupsen/logrus"
)

const DefaultStripeURL = "https://api.stripe.com"

var ErrInvalidClientSecret = errors.New("client secret is not valid")

type Stripe struct {
	publishableKey string
	baseURL        string
	http           *http.Client
	log            logrus.FieldLogger
	form           *schema.Encoder
}

type Option func(*Stripe)

func WithBaseURL(baseURL string) Option {
	return func(s *Stripe) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Stripe) {
		s.http = hc
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Stripe) {
		s.log = log
	}
}

func NewStripe(publishableKey string, opts ...Option) (*Stripe, error) {
	if publishableKey == "" {
		return nil, fmt.Errorf("publishableKey is empty")
	}

	s := &Stripe{
		publishableKey: publishableKey,
		baseURL:        DefaultStripeURL,
		http:           &http.Client{Timeout: 30 * time.Second},
		log:            logrus.StandardLogger(),
		form:           schema.NewEncoder(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type confirmForm struct {
	ClientSecret  string `schema:"client_secret"`
	PaymentMethod string `schema:"payment_method"`
	BillingName   string `schema:"payment_method_data[billing_details][name],omitempty"`
	BillingEmail  string `schema:"payment_method_data[billing_details][email],omitempty"`
	BillingLine1  string `schema:"payment_method_data[billing_details][address][line1],omitempty"`
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ConfirmCardPayment confirms the intent identified by clientSecret with the
// given payment method and its billing details. Card failures come back as *domain.PaymentError.
func (s *Stripe) ConfirmCardPayment(ctx context.Context, clientSecret string, method domain.PaymentMethod) (domain.PaymentIntent, error) {
	intentID, err := IntentID(clientSecret)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	if method.ID == "" {
		return domain.PaymentIntent{}, fmt.Errorf("payment method is empty")
	}

	values := url.Values{}
	form := confirmForm{
		ClientSecret:  clientSecret,
		PaymentMethod: method.ID,
		BillingName:   method.Billing.Name,
		BillingEmail:  method.Billing.Email,
		BillingLine1:  method.Billing.Line1,
	}
	if err := s.form.Encode(form, values); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("form.Encode: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", s.baseURL, url.PathEscape(intentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.publishableKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("io.ReadAll: %w", err)
	}

	var out intentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("json.Unmarshal: status %d: %w", resp.StatusCode, err)
	}

	s.log.WithFields(logrus.Fields{
		"intent_id": intentID,
		"status":    resp.StatusCode,
	}).Debug("payment intent confirm")

	if out.Error != nil {
		return domain.PaymentIntent{}, &domain.PaymentError{Code: out.Error.Code, Message: out.Error.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.PaymentIntent{}, fmt.Errorf("payment processor status %d", resp.StatusCode)
	}

	return domain.PaymentIntent{ID: out.ID, Status: out.Status}, nil
}

// IntentID extracts the payment intent id from a client secret of the form
// "<intent id>_secret_<secret>".
func IntentID(clientSecret string) (string, error) {
	id, _, found := strings.Cut(clientSecret, "_secret_")
	if !found || id == "" {
		return "", ErrInvalidClientSecret
	}

	return id, nil
}
