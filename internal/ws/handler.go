package ws

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"upkeep/internal/auth"
)

// Handler upgrades authenticated requests to WebSocket connections and runs
// them as hub clients. The route sits behind RequireAuth, so the identity
// is always present.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
	}
}
