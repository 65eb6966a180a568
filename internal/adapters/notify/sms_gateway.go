package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type SMSGatewayConfig struct {
	URL     string
	APIKey  string
	From    string
	Timeout time.Duration
}

// SMSGateway posts text notifications to an HTTP SMS gateway.
type SMSGateway struct {
	cfg    SMSGatewayConfig
	client *http.Client
}

type smsRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

func NewSMSGateway(cfg SMSGatewayConfig, client *http.Client) (*SMSGateway, error) {
	if cfg.URL == "" {
		return nil, errors.New("sms gateway url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SMSGateway{cfg: cfg, client: client}, nil
}

func (g *SMSGateway) Send(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(smsRequest{From: g.cfg.From, To: n.Recipient, Content: n.Text})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
