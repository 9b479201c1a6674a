package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher pushes engine events onto a NATS subject per auction, so
// auditors and UIs can subscribe with a single `auction.events.*` wildcard.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("events: failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}
	subject := fmt.Sprintf("auction.events.%d", event.Auction)
	if event.Auction == 0 {
		subject = "registry.events"
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
