package signaling

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// inboundMessage pairs a decoded wire message with the connection it came
// from, so handlers never trust a client-supplied sender id.
type inboundMessage struct {
	client *Client
	msg    any
}

// Hub is the central brain of the signaling server. It owns the peer
// registry and the room index and is the only goroutine that mutates them:
// every state transition runs to completion inside Run's select loop, so the
// two structures never observe a torn state and need no locks.
type Hub struct {
	registry *Registry
	rooms    *RoomIndex

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients. The read pump
	// sends here exactly once, on transport close or error.
	Unregister chan *Client

	// inbound carries decoded messages from all read pumps.
	inbound chan inboundMessage

	// queries carries read-only snapshot requests from the HTTP handlers
	// onto the hub goroutine.
	queries chan func()

	stop chan struct{}
}

// NewHub creates a hub over the given registry and room index. Both are
// handed over exclusively; nothing else may touch them once Run starts.
func NewHub(registry *Registry, rooms *RoomIndex) *Hub {
	return &Hub{
		registry:   registry,
		rooms:      rooms,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan inboundMessage),
		queries:    make(chan func()),
		stop:       make(chan struct{}),
	}
}

// Run starts the hub's main processing loop. It returns after Stop is
// called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)

		case query := <-h.queries:
			query()

		case <-h.stop:
			return
		}
	}
}

// Stop terminates the Run loop.
func (h *Hub) Stop() {
	close(h.stop)
}

// handleRegister assigns a fresh peer id and tells the client who it is.
func (h *Hub) handleRegister(client *Client) {
	client.PeerID = uuid.NewString()
	h.registry.Register(client.PeerID, client)

	client.enqueue(&YourPeerID{Type: TypeYourPeerID, PeerID: client.PeerID})

	zap.L().Info("peer connected", zap.String("peerId", client.PeerID))
}

// handleUnregister runs the leave-room semantics for a closing connection
// and releases the peer. Safe for peers that never joined a room.
func (h *Hub) handleUnregister(client *Client) {
	rec, ok := h.registry.Remove(client.PeerID)
	if ok && rec.RoomID != "" {
		h.leaveRoom(rec)
	}

	close(client.Send)

	zap.L().Info("peer disconnected", zap.String("peerId", client.PeerID))
}

func (h *Hub) handleMessage(client *Client, msg any) {
	rec, ok := h.registry.Get(client.PeerID)
	if !ok {
		// Raced with unregister; nothing left to do for this peer.
		return
	}

	switch m := msg.(type) {
	case *JoinRoom:
		h.handleJoin(rec, m)

	case *LeaveRoom:
		// Idempotent: leaving while not in a room is a no-op.
		if rec.RoomID != "" {
			h.leaveRoom(rec)
			h.registry.SetRoom(rec.PeerID, "")
		}

	case *Relay:
		h.handleRelay(rec, m)

	case *MuteState:
		h.handleMute(rec, m)

	case *SpeakingState:
		h.handleSpeaking(rec, m)

	case *Ping:
		rec.client.enqueue(&Pong{
			Type:      TypePong,
			Timestamp: m.Timestamp,
			Ping:      time.Now().UnixMilli() - m.Timestamp,
		})

	default:
		zap.L().Warn("unhandled message", zap.String("peerId", rec.PeerID))
	}
}

// handleJoin puts the peer into the requested room. A join while already in
// a room is a room switch: the old room is left first, with the usual
// broadcast.
func (h *Hub) handleJoin(rec *PeerRecord, m *JoinRoom) {
	if rec.RoomID == m.RoomID {
		// Re-join of the current room just refreshes the snapshot below.
	} else if rec.RoomID != "" {
		h.leaveRoom(rec)
	}

	rec.UserID = m.UserID
	rec.Username = m.Username
	rec.Avatar = m.Avatar
	rec.IsMuted = true
	rec.IsSpeaking = false
	h.registry.SetRoom(rec.PeerID, m.RoomID)
	h.rooms.Join(m.RoomID, rec.PeerID)

	members := h.rooms.MembersOf(m.RoomID)

	// Snapshot of everyone already here, excluding the joiner itself.
	others := make([]PeerInfo, 0, len(members)-1)
	for _, peerID := range members {
		if peerID == rec.PeerID {
			continue
		}
		if other, ok := h.registry.Get(peerID); ok {
			others = append(others, PeerInfo{
				PeerID:   other.PeerID,
				UserID:   other.UserID,
				Username: other.Username,
				Avatar:   other.Avatar,
			})
		}
	}

	rec.client.enqueue(&ExistingPeers{
		Type:       TypeExistingPeers,
		Peers:      others,
		RoomID:     m.RoomID,
		YourID:     rec.PeerID,
		TotalUsers: len(members),
	})

	h.broadcast(m.RoomID, rec.PeerID, &NewPeer{
		Type:     TypeNewPeer,
		PeerID:   rec.PeerID,
		UserID:   rec.UserID,
		Username: rec.Username,
		Avatar:   rec.Avatar,
		RoomID:   m.RoomID,
	})

	zap.L().Info("peer joined room",
		zap.String("peerId", rec.PeerID),
		zap.String("roomId", m.RoomID),
		zap.Int("members", len(members)))
}

// leaveRoom removes the peer from its current room, notifies the remaining
// members and prunes the room if it is now empty. The caller clears or
// reassigns rec.RoomID afterwards.
func (h *Hub) leaveRoom(rec *PeerRecord) {
	roomID := rec.RoomID

	deleted := h.rooms.Leave(roomID, rec.PeerID)
	if deleted {
		zap.L().Info("room deleted", zap.String("roomId", roomID))
	}

	h.broadcast(roomID, rec.PeerID, &PeerDisconnected{
		Type:     TypePeerDisconnected,
		PeerID:   rec.PeerID,
		Username: rec.Username,
		RoomID:   roomID,
	})
}

// handleRelay forwards an offer, answer or ICE candidate to its target. The
// payload is never inspected; only the routing fields are rewritten. A
// target that no longer resolves is dropped silently (the sender finds out
// via its own negotiation timeout).
func (h *Hub) handleRelay(rec *PeerRecord, m *Relay) {
	target, ok := h.registry.Get(m.TargetPeerID)
	if !ok {
		zap.L().Debug("relay target gone",
			zap.String("type", m.Type),
			zap.String("targetPeerId", m.TargetPeerID))
		return
	}

	out := *m
	out.TargetPeerID = ""
	out.SenderPeerID = rec.PeerID
	target.client.enqueue(&out)
}

func (h *Hub) handleMute(rec *PeerRecord, m *MuteState) {
	if rec.RoomID == "" {
		return
	}
	h.registry.UpdateFlags(rec.PeerID, &m.Muted, nil)
	h.broadcast(rec.RoomID, rec.PeerID, &MuteState{
		Type:   TypeUserMuted,
		RoomID: rec.RoomID,
		PeerID: rec.PeerID,
		Muted:  m.Muted,
	})
}

func (h *Hub) handleSpeaking(rec *PeerRecord, m *SpeakingState) {
	if rec.RoomID == "" {
		return
	}
	h.registry.UpdateFlags(rec.PeerID, nil, &m.Speaking)
	h.broadcast(rec.RoomID, rec.PeerID, &SpeakingState{
		Type:     TypeUserSpeaking,
		RoomID:   rec.RoomID,
		PeerID:   rec.PeerID,
		Speaking: m.Speaking,
	})
}

// broadcast enqueues a message for every member of the room except
// excludePeerID.
func (h *Hub) broadcast(roomID, excludePeerID string, message any) {
	for _, peerID := range h.rooms.MembersOf(roomID) {
		if peerID == excludePeerID {
			continue
		}
		if rec, ok := h.registry.Get(peerID); ok {
			rec.client.enqueue(message)
		}
	}
}
