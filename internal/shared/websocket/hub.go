package websocket

import (
	"context"
	"time"

	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Hub keeps the subscriber registry and fans auction events out to every
// client watching a given auction id. The hub is broadcast-only: clients
// subscribe, they never submit operations over the socket.
type Hub struct {
	// Registered clients, grouped by auction id.
	clients    map[uint64]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
}

// Client represents one websocket subscription to an auction feed.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	AuctionID uint64
	ID        string
}

type Message struct {
	AuctionID uint64
	Data      []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint64]map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
	}
}

// Run starts the hub listening on its channels.
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Websocket hub shutting down")
			return
		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.Uint64("auctionID", client.AuctionID),
			)
		case client := <-h.unregister:
			if clients, ok := h.clients[client.AuctionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.AuctionID)
					}
					log.Info("Client unregistered",
						zap.String("clientID", client.ID),
						zap.Uint64("auctionID", client.AuctionID),
					)
				}
			}
		case message := <-h.broadcast:
			for client := range h.clients[message.AuctionID] {
				select {
				case client.Send <- message.Data:
				default:
					// client is not draining its queue, drop it
					close(client.Send)
					delete(h.clients[message.AuctionID], client)
					log.Warn("Failed to send to client, unregistering",
						zap.String("clientID", client.ID),
						zap.Uint64("auctionID", client.AuctionID),
					)
				}
			}
		}
	}
}

// RegisterClient registers a new client in the hub.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel is full, dropping client",
			zap.String("clientID", client.ID),
		)
		_ = client.Conn.Close()
	}
}

// UnregisterClient removes a client from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full",
			zap.String("clientID", client.ID),
		)
	}
}

// BroadcastToAuction sends data to every client watching auctionID.
func (h *Hub) BroadcastToAuction(auctionID uint64, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
	default:
		log.Error("Broadcast channel is full, message dropped",
			zap.Uint64("auctionID", auctionID),
		)
	}
}

// ReadPump drains the client connection to keep the ping/pong cycle alive.
// Inbound payloads are discarded. Run one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("Websocket read error",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// WritePump pushes queued messages and pings to the peer. Run one
// goroutine per client.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("Websocket write error",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
