package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lamax-chat/voice-signaling/internal/config"
	"github.com/lamax-chat/voice-signaling/internal/signaling"
)

// NewRouter builds the HTTP surface: the websocket upgrade, the ICE
// configuration document clients fetch before dialing, the voice-room
// inspection API and a health check.
func NewRouter(hub *signaling.Hub, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("/ws", ServeWs(hub, cfg.AllowedOrigins))
	mux.HandleFunc("GET /api/webrtc/config", handleICEConfig(cfg))
	mux.HandleFunc("GET /api/voice/rooms", handleRooms(hub))
	mux.HandleFunc("GET /api/voice/rooms/{id}/users", handleRoomUsers(hub))
	mux.HandleFunc("GET /api/voice/stats", handleStats(hub))

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// ServeWs returns an http.HandlerFunc that upgrades the connection and hands
// it to the hub. When allowedOrigins is empty all origins are accepted
// (development); otherwise the Origin header must match one of them.
func ServeWs(hub *signaling.Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := signaling.NewClient(hub, conn)

		// The hub assigns the peer id and sends your-peer-id before any
		// inbound message from this connection is processed.
		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

func handleICEConfig(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string][]config.ICEServer{
			"iceServers": cfg.ICEServers(),
		})
	}
}

func handleRooms(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := hub.RoomList()
		if rooms == nil {
			rooms = []signaling.RoomStats{}
		}
		writeJSON(w, rooms)
	}
}

func handleRoomUsers(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, ok := hub.RoomUsers(r.PathValue("id"))
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		writeJSON(w, users)
	}
}

func handleStats(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.TotalStats())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}
