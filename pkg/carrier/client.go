package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds carrier API credentials and defaults.
type Config struct {
	BaseURL           string        `env:"CARRIER_BASE_URL" envDefault:"https://api.twilio.com"`
	AccountSID        string        `env:"CARRIER_ACCOUNT_SID"`
	AuthToken         string        `env:"CARRIER_AUTH_TOKEN"`
	FromNumber        string        `env:"CARRIER_FROM_NUMBER"`
	StatusCallbackURL string        `env:"CARRIER_STATUS_CALLBACK_URL"`
	Timeout           time.Duration `env:"CARRIER_TIMEOUT" envDefault:"10s"`
}

// SendResult is the carrier's acknowledgement of an accepted message.
type SendResult struct {
	SID      string
	Status   string
	Segments int
}

// Client sends messages through the carrier's REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New creates a carrier client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("%w: account sid and auth token are required", ErrInvalidConfig)
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("%w: from number is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// From returns the sender number used for outbound messages.
func (c *Client) From() string {
	return c.cfg.FromNumber
}

type sendResponse struct {
	SID         string `json:"sid"`
	Status      string `json:"status"`
	NumSegments string `json:"num_segments"`
}

type errorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send submits one message. Transport failures are wrapped in ErrTransport
// with the underlying error kept in the chain; API errors are returned as
// *ProviderError.
func (c *Client) Send(ctx context.Context, to, body string) (SendResult, error) {
	if to == "" || strings.TrimSpace(body) == "" {
		return SendResult{}, fmt.Errorf("%w: recipient and body are required", ErrInvalidRequest)
	}

	form := url.Values{
		"To":   {to},
		"From": {c.cfg.FromNumber},
		"Body": {body},
	}
	if c.cfg.StatusCallbackURL != "" {
		form.Set("StatusCallback", c.cfg.StatusCallbackURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smsgate/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 64KB is far beyond any real response and bounds memory on a bad upstream.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, decodeError(resp.StatusCode, raw)
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return SendResult{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if out.SID == "" {
		return SendResult{}, fmt.Errorf("%w: missing message sid", ErrInvalidResponse)
	}

	segments, err := strconv.Atoi(out.NumSegments)
	if err != nil || segments < 1 {
		segments = 1
	}

	return SendResult{SID: out.SID, Status: out.Status, Segments: segments}, nil
}

// decodeError builds a ProviderError. Responses without an error code get
// one derived from the HTTP status so throttling and outages stay
// retryable.
func decodeError(status int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	pe := &ProviderError{
		HTTPStatus: status,
		Code:       body.Code,
		Message:    body.Message,
		MoreInfo:   body.MoreInfo,
	}

	if pe.Code == 0 {
		switch {
		case status == http.StatusTooManyRequests:
			pe.Code = CodeTooManyRequests
		case status == http.StatusServiceUnavailable:
			pe.Code = CodeServiceUnavailable
		case status >= 500:
			pe.Code = CodeInternalError
		}
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe
}
