package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xulioguimaraes/sportstips/internal/infra/httpclient"
)

// Client talks to the Asaas REST API. Only the static PIX QR code endpoint is
// used; charges are one-shot QR codes tied to the merchant's address key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type CreateStaticQRCodeInput struct {
	// Value is in BRL (decimal), not minor units. Callers convert from cents.
	Value          float64
	Description    string
	AddressKey     string
	ExpirationDate time.Time
}

type StaticQRCode struct {
	ID             string `json:"id"`
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// StatusError is returned for non-2xx gateway responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("asaas returned status %d: %s", e.StatusCode, e.Body)
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("asaas base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("asaas api key is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpclient.New(timeout),
	}, nil
}

func (c *Client) CreateStaticQRCode(ctx context.Context, in CreateStaticQRCodeInput) (StaticQRCode, error) {
	if in.Value <= 0 || strings.TrimSpace(in.AddressKey) == "" {
		return StaticQRCode{}, fmt.Errorf("invalid static qr code input")
	}

	body, err := json.Marshal(map[string]any{
		"value":          in.Value,
		"description":    in.Description,
		"format":         "ALL",
		"expirationDate": formatExpiration(in.ExpirationDate),
		"addressKey":     in.AddressKey,
	})
	if err != nil {
		return StaticQRCode{}, fmt.Errorf("marshal qr code request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pix/qrCodes/static", bytes.NewReader(body))
	if err != nil {
		return StaticQRCode{}, fmt.Errorf("create qr code request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StaticQRCode{}, fmt.Errorf("call asaas: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return StaticQRCode{}, fmt.Errorf("read asaas response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StaticQRCode{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var qr StaticQRCode
	if err := json.Unmarshal(raw, &qr); err != nil {
		return StaticQRCode{}, fmt.Errorf("decode asaas response: %w", err)
	}
	if strings.TrimSpace(qr.ID) == "" {
		return StaticQRCode{}, fmt.Errorf("asaas response missing qr code id")
	}

	return qr, nil
}

// Asaas expects "YYYY-MM-DD HH:mm:ss" in UTC.
func formatExpiration(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
