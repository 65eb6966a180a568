package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

type SMTPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	MaxConns           int
	SendTimeout        time.Duration
	InsecureSkipVerify bool
}

// SMTPMailer sends email notifications over a pooled SMTP connection set.
type SMTPMailer struct {
	pool *smtppool.Pool
	from string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp sender address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        cfg.MaxConns,
		IdleTimeout:     cfg.SendTimeout,
		PoolWaitTimeout: cfg.SendTimeout,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			ServerName:         cfg.Host,
		},
		Auth: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp pool: %w", err)
	}
	return &SMTPMailer{pool: pool, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, n ports.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := smtppool.Email{
		From:    m.from,
		To:      []string{n.Recipient},
		Subject: n.Subject,
		Text:    []byte(n.Text),
	}
	if n.HTML != "" {
		e.HTML = []byte(n.HTML)
	}
	return m.pool.Send(e)
}

func (m *SMTPMailer) Close() {
	m.pool.Close()
}
