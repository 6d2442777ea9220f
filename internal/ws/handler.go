package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler upgrades the connection and streams hub messages. Clients opt into
// live frames with ?frames=true.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		wantsFrames, _ := c.Locals("frames").(bool)

		client := newClient(hub, c, wantsFrames)

		select {
		case hub.register <- client:
		case <-hub.done:
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects plain HTTP requests and records the frames query
// flag before the upgrade discards the request
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			c.Locals("frames", c.QueryBool("frames"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
