package signaling

import "time"

// RoomStats summarizes one voice room for the HTTP API.
type RoomStats struct {
	ID             string `json:"id"`
	Members        int    `json:"totalUsers"`
	ActiveSpeakers int    `json:"activeSpeakers"`
	MutedUsers     int    `json:"mutedUsers"`
	IsDefault      bool   `json:"isDefault"`
}

// UserSnapshot is one room member as reported by the HTTP API.
type UserSnapshot struct {
	PeerID     string    `json:"peerId"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	Avatar     string    `json:"avatar"`
	IsMuted    bool      `json:"isMuted"`
	IsSpeaking bool      `json:"isSpeaking"`
	Joined     time.Time `json:"joined"`
}

// Stats aggregates across all rooms.
type Stats struct {
	TotalRooms          int `json:"totalRooms"`
	TotalUsers          int `json:"totalUsers"`
	TotalActiveSpeakers int `json:"totalActiveSpeakers"`
}

// do runs fn on the hub goroutine and waits for it, so HTTP handlers can
// read the registry and room index without racing the message handlers.
func (h *Hub) do(fn func()) {
	done := make(chan struct{})
	h.queries <- func() {
		fn()
		close(done)
	}
	<-done
}

// RoomList returns stats for every current room.
func (h *Hub) RoomList() []RoomStats {
	var out []RoomStats
	h.do(func() {
		for _, roomID := range h.rooms.Rooms() {
			out = append(out, h.roomStats(roomID))
		}
	})
	return out
}

// RoomUsers returns the member snapshots of one room, or false if the room
// does not exist.
func (h *Hub) RoomUsers(roomID string) ([]UserSnapshot, bool) {
	var (
		out    []UserSnapshot
		exists bool
	)
	h.do(func() {
		if exists = h.rooms.Exists(roomID); !exists {
			return
		}
		out = make([]UserSnapshot, 0)
		for _, peerID := range h.rooms.MembersOf(roomID) {
			rec, ok := h.registry.Get(peerID)
			if !ok {
				continue
			}
			out = append(out, UserSnapshot{
				PeerID:     rec.PeerID,
				UserID:     rec.UserID,
				Username:   rec.Username,
				Avatar:     rec.Avatar,
				IsMuted:    rec.IsMuted,
				IsSpeaking: rec.IsSpeaking,
				Joined:     rec.JoinedAt,
			})
		}
	})
	return out, exists
}

// TotalStats returns the aggregate view across all rooms.
func (h *Hub) TotalStats() Stats {
	var out Stats
	h.do(func() {
		for _, roomID := range h.rooms.Rooms() {
			rs := h.roomStats(roomID)
			out.TotalRooms++
			out.TotalUsers += rs.Members
			out.TotalActiveSpeakers += rs.ActiveSpeakers
		}
	})
	return out
}

// roomStats must run on the hub goroutine.
func (h *Hub) roomStats(roomID string) RoomStats {
	rs := RoomStats{
		ID:        roomID,
		IsDefault: h.rooms.IsDefault(roomID),
	}
	for _, peerID := range h.rooms.MembersOf(roomID) {
		rec, ok := h.registry.Get(peerID)
		if !ok {
			continue
		}
		rs.Members++
		if rec.IsMuted {
			rs.MutedUsers++
		} else if rec.IsSpeaking {
			rs.ActiveSpeakers++
		}
	}
	return rs
}
