package websocket

import (
	"context"
	"strconv"

	sharedws "github.com/deedhouse/deedhouse/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// RegisterRoutes mounts the auction event feed. Clients connect to
// /ws/auctions/:id and receive every event for that auction as JSON.
func RegisterRoutes(app *fiber.App, hub *sharedws.Hub, ctx context.Context) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/auctions/:id", websocket.New(func(conn *websocket.Conn) {
		auctionID, err := strconv.ParseUint(conn.Params("id"), 10, 64)
		if err != nil {
			_ = conn.Close()
			return
		}
		client := &sharedws.Client{
			Hub:       hub,
			Conn:      conn,
			Send:      make(chan []byte, 32),
			AuctionID: auctionID,
			ID:        uuid.NewString(),
		}
		hub.RegisterClient(client)

		go client.WritePump(ctx)
		client.ReadPump(ctx) // blocks until the peer disconnects
	}))
}
