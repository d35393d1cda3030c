package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mrz1836/custody/internal/chain"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 4096

// WhatsAppConfig configures the Cloud API sender.
type WhatsAppConfig struct {
	APIURL        string
	PhoneNumberID string
	Token         string

	HTTPClient *http.Client
	Limiter    *chain.RateLimiter
	Retry      *chain.RetryConfig
}

// WhatsApp sends text messages through the WhatsApp Cloud API.
type WhatsApp struct {
	endpoint string
	token    string
	client   *http.Client
	limiter  *chain.RateLimiter
	retry    chain.RetryConfig
}

// Compile-time interface check
var _ Channel = (*WhatsApp)(nil)

type textBody struct {
	Body string `json:"body"`
}

type messageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewWhatsApp validates cfg and builds a sender.
func NewWhatsApp(cfg WhatsAppConfig) (*WhatsApp, error) {
	if cfg.APIURL == "" || cfg.PhoneNumberID == "" || cfg.Token == "" {
		return nil, custodyerr.WithSuggestion(
			custodyerr.Wrap(custodyerr.ErrConfiguration, "whatsapp api url, phone number id and token are required"),
			"Set CUSTODY_WHATSAPP_URL, CUSTODY_WHATSAPP_PHONE_ID and CUSTODY_WHATSAPP_TOKEN",
		)
	}

	w := &WhatsApp{
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.Token,
		client:   cfg.HTTPClient,
		limiter:  cfg.Limiter,
		retry:    chain.DefaultRetryConfig(),
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: 15 * time.Second}
	}
	if w.limiter == nil {
		w.limiter = chain.DefaultRateLimiter()
	}
	if cfg.Retry != nil {
		w.retry = *cfg.Retry
	}
	return w, nil
}

// Send implements Channel. Rate-limit and server errors are retried.
func (w *WhatsApp) Send(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return custodyerr.WithCause(custodyerr.ErrNotification, err)
	}

	_, err = chain.Retry(ctx, w.retry, func() (struct{}, error) {
		if err := w.limiter.Wait(ctx, w.endpoint); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, w.post(ctx, payload)
	})
	if err != nil {
		return custodyerr.WithCause(custodyerr.ErrNotification, err)
	}
	return nil
}

func (w *WhatsApp) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return chain.WrapRetryable(fmt.Errorf("posting message: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := http.StatusText(resp.StatusCode)
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	return chain.ClassifyHTTPStatus(resp.StatusCode, fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, msg))
}
