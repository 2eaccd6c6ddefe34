// Package gateway is the HTTP client for the WhatsApp gateway service.
//
// The gateway owns the actual WhatsApp session; this client only pushes
// outbound messages and queries connection state. Sends are paced through
// a rate limiter so bursts of notifications do not trip the gateway's
// flood protection. Recipients are rendered in wire format
// (<digits>@s.whatsapp.net) via the phone package.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oaddad/nucleo-backend/internal/phone"
)

// Sender is the outbound surface the notifier and dispatcher depend on.
type Sender interface {
	SendText(ctx context.Context, phoneRaw, text string) error
	SendAudio(ctx context.Context, phoneRaw string, media []byte, mime string) error
}

// Client talks to the gateway's REST API.
type Client struct {
	// BaseURL is the gateway root, without a trailing slash.
	BaseURL string
	// Token authenticates requests (Authorization: Bearer).
	Token string
	// Timeout bounds each call (default 30s).
	Timeout time.Duration

	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient constructs a gateway client pacing sends at one message per
// second with a small burst allowance.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Token:      token,
		Timeout:    30 * time.Second,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// textPayload is the send request body.
type textPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// audioPayload is the send-audio request body.
type audioPayload struct {
	Phone       string `json:"phone"`
	AudioBase64 string `json:"audio_base64"`
	Mime        string `json:"mime"`
}

// sendResponse acknowledges a send.
type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
}

// StatusResponse reports the gateway connection state.
type StatusResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Phone     string `json:"phone,omitempty"`
}

// SendText delivers a text message. phoneRaw may be any accepted phone
// shape; it is normalized and wire-formatted here.
func (c *Client) SendText(ctx context.Context, phoneRaw, text string) error {
	wire, err := phone.Wire(phoneRaw)
	if err != nil {
		return err
	}
	var ack sendResponse
	if err := c.post(ctx, "/send", textPayload{Phone: wire, Message: text}, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("gateway rejected send to %s", wire)
	}
	return nil
}

// SendAudio delivers an audio message as base64 with its MIME type.
func (c *Client) SendAudio(ctx context.Context, phoneRaw string, media []byte, mime string) error {
	wire, err := phone.Wire(phoneRaw)
	if err != nil {
		return err
	}
	payload := audioPayload{
		Phone:       wire,
		AudioBase64: base64.StdEncoding.EncodeToString(media),
		Mime:        mime,
	}
	var ack sendResponse
	if err := c.post(ctx, "/send-audio", payload, &ack); err != nil {
		return err
	}
	if !ack.Success {
		return fmt.Errorf("gateway rejected audio send to %s", wire)
	}
	return nil
}

// Status returns the gateway connection state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.get(ctx, "/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connect asks the gateway to (re)establish its WhatsApp session.
func (c *Client) Connect(ctx context.Context) error {
	return c.post(ctx, "/connect", struct{}{}, nil)
}

// Disconnect tears the gateway session down.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.post(ctx, "/disconnect", struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
