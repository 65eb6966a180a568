package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The application uses this abstraction to keep broker/client concerns in adapters.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// Notification is one outbound message to an account contact.
type Notification struct {
	Channel   NotificationChannel
	Recipient string
	Subject   string
	Text      string
	HTML      string
	// Kind names the template, used for logs and metrics only.
	Kind string
}

// NotificationSender delivers notifications. Callers treat delivery as best effort.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}
