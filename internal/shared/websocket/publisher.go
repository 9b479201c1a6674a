package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/deedhouse/deedhouse/internal/shared/events"
)

// HubPublisher adapts the hub to the events.Publisher port so engine
// events reach websocket subscribers of the affected auction.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("websocket: failed to marshal event: %w", err)
	}
	p.hub.BroadcastToAuction(event.Auction, data)
	return nil
}
