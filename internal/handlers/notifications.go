package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/skillbridge-app/backend/internal/realtime"
)

type NotificationsHandler struct {
	Hub *realtime.Hub
}

func NewNotificationsHandler(hub *realtime.Hub) *NotificationsHandler {
	return &NotificationsHandler{Hub: hub}
}

// WebSocketHandler keeps a notification stream open for one user. The user
// id arrives as a query parameter because websocket upgrades bypass the JWT
// middleware chain.
func (h *NotificationsHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	// Writer: hub -> socket.
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	// Reader: drain until the client goes away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
