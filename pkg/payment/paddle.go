package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// PaddleConfig holds configuration for the Paddle checkout provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	SuccessURL    string `env:"PADDLE_SUCCESS_URL"`
}

// PaddleCheckout implements CheckoutProvider using Paddle transactions.
// Each pending invoice becomes a one-off Paddle transaction carrying the
// invoice ID in custom data, so the webhook handler can route the payment
// back to the ledger.
type PaddleCheckout struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	cfg      PaddleConfig
}

// NewPaddleCheckout creates a Paddle-backed checkout provider.
func NewPaddleCheckout(cfg PaddleConfig) (*PaddleCheckout, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleCheckout{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		cfg:      cfg,
	}, nil
}

// CreateCheckoutLink creates a Paddle transaction for the invoice and
// returns its hosted checkout URL. Paddle transactions are priced by
// catalog items, so opts.PriceID must name the Paddle price matching the
// invoiced period.
func (p *PaddleCheckout) CreateCheckoutLink(ctx context.Context, inv *billing.Invoice, opts CheckoutOptions) (*CheckoutLink, error) {
	if !inv.IsPending() {
		return nil, ErrInvoiceNotPending
	}
	if opts.PriceID == "" {
		return nil, ErrMissingPriceID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  opts.PriceID,
		Quantity: 1,
	})

	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"invoice_id": inv.ID.String(),
			"user_id":    inv.UserID.String(),
		},
	}
	if opts.Email != "" {
		req.CustomData["email"] = opts.Email
	}

	successURL := opts.SuccessURL
	if successURL == "" {
		successURL = p.cfg.SuccessURL
	}
	if successURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(successURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		// Paddle checkout links typically expire in 24 hours.
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// ParseWebhook verifies the Paddle signature and normalizes transaction
// events into WebhookEvents the ledger can act on.
func (p *PaddleCheckout) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	// The SDK verifier works on an HTTP request, so rebuild one around the
	// raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var raw struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		Type:          mapPaddleEventType(raw.EventType),
		ProviderEvent: raw.EventType,
		Raw:           raw.Data,
	}

	if txnID, ok := raw.Data["id"].(string); ok {
		event.TransactionID = txnID
	}
	if customData, ok := raw.Data["custom_data"].(map[string]any); ok {
		if invoiceID, ok := customData["invoice_id"].(string); ok {
			event.InvoiceID = invoiceID
		}
	}

	return event, nil
}

func mapPaddleEventType(providerEvent string) WebhookEventType {
	switch providerEvent {
	case "transaction.completed", "transaction.paid":
		return WebhookPaymentSucceeded
	case "transaction.payment_failed":
		return WebhookPaymentFailed
	default:
		return WebhookUnknown
	}
}
