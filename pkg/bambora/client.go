package bambora

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/amirasaad/deposit/pkg/config"
)

// SessionRequest describes the hosted checkout page to open for a payment.
type SessionRequest struct {
	AcceptURL  string
	Amount     int64
	CancelURL  string
	Language   string
	Currency   string
	PaymentID  int64
	SourceType string
}

// SessionResponse is the provider's answer. IsSuccess=false means the
// provider refused the session; the reason is logged, not returned.
type SessionResponse struct {
	URL       string
	IsSuccess bool
}

type checkoutRequest struct {
	Order         checkoutOrder         `json:"order"`
	URL           checkoutURLs          `json:"url"`
	PaymentWindow checkoutPaymentWindow `json:"paymentwindow"`
	// Capture on authorization; callbacks therefore report captured funds.
	InstantCaptureAmount int64 `json:"instantcaptureamount"`
}

type checkoutOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	OrderText string `json:"ordertext,omitempty"`
}

type checkoutURLs struct {
	Accept    string             `json:"accept"`
	Cancel    string             `json:"cancel"`
	Callbacks []checkoutCallback `json:"callbacks,omitempty"`
}

type checkoutCallback struct {
	URL string `json:"url"`
}

type checkoutPaymentWindow struct {
	Language string `json:"language,omitempty"`
}

type checkoutResponse struct {
	Meta struct {
		Result  bool `json:"result"`
		Message struct {
			EndUser  string `json:"enduser"`
			Merchant string `json:"merchant"`
		} `json:"message"`
	} `json:"meta"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Client creates hosted checkout sessions through the Bambora Checkout API.
type Client struct {
	baseURL     string
	callbackURL string
	auth        string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient builds a checkout client from configuration.
func NewClient(cfg config.Bambora, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cred := fmt.Sprintf("%s@%s:%s", cfg.AccessToken, cfg.MerchantNumber, cfg.SecretToken)
	return &Client{
		baseURL:     strings.TrimRight(cfg.ApiUrl, "/"),
		callbackURL: cfg.CallbackURL,
		auth:        "Basic " + base64.StdEncoding.EncodeToString([]byte(cred)),
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		logger: logger.With("component", "bambora_client"),
	}
}

// CreateSession opens a checkout session for req.PaymentID. Transport and
// protocol failures are errors; a refusal by the provider is reported as
// IsSuccess=false.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	body := checkoutRequest{
		Order: checkoutOrder{
			ID:        strconv.FormatInt(req.PaymentID, 10),
			Amount:    req.Amount,
			Currency:  req.Currency,
			OrderText: req.SourceType,
		},
		URL: checkoutURLs{
			Accept: req.AcceptURL,
			Cancel: req.CancelURL,
		},
		PaymentWindow:        checkoutPaymentWindow{Language: req.Language},
		InstantCaptureAmount: req.Amount,
	}
	if c.callbackURL != "" {
		body.URL.Callbacks = []checkoutCallback{{URL: c.callbackURL}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", c.auth)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("checkout API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Meta.Result || out.URL == "" {
		c.logger.Warn("Checkout session refused",
			"payment_id", req.PaymentID,
			"reason", out.Meta.Message.Merchant,
		)
		return &SessionResponse{IsSuccess: false}, nil
	}

	c.logger.Info("Checkout session created", "payment_id", req.PaymentID)
	return &SessionResponse{URL: out.URL, IsSuccess: true}, nil
}
