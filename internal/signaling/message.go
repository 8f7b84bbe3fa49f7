package signaling

import (
	"encoding/json"
	"fmt"
)

// Message type tags shared by both directions of the wire protocol.
const (
	TypeJoinRoom         = "join-room"
	TypeLeaveRoom        = "leave-room"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypeUserMuted        = "user-muted"
	TypeUserSpeaking     = "user-speaking"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeYourPeerID       = "your-peer-id"
	TypeExistingPeers    = "existing-peers"
	TypeNewPeer          = "new-peer"
	TypePeerDisconnected = "peer-disconnected"
)

// envelope is the minimal decode used to pick the concrete message type.
type envelope struct {
	Type string `json:"type"`
}

// JoinRoom is sent by a client to enter a voice room. Identity fields are
// client-supplied and not verified here.
type JoinRoom struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// LeaveRoom is sent by a client to leave its current room.
type LeaveRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// Relay carries an offer, answer or ICE candidate between two peers. The
// SDP and candidate payloads are opaque to the server and forwarded verbatim.
// SenderPeerID is always overwritten server-side; a client-supplied value is
// never trusted.
type Relay struct {
	Type         string          `json:"type"`
	TargetPeerID string          `json:"targetPeerId,omitempty"`
	SenderPeerID string          `json:"senderPeerId,omitempty"`
	RoomID       string          `json:"roomId"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// MuteState reports a client's microphone state.
type MuteState struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId,omitempty"`
	Muted  bool   `json:"muted"`
}

// SpeakingState reports voice-activity detection from a client.
type SpeakingState struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	PeerID   string `json:"peerId,omitempty"`
	Speaking bool   `json:"speaking"`
}

// Ping carries the client's send timestamp (unix milliseconds) for
// round-trip-time display. Not used for liveness.
type Ping struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Pong echoes the ping timestamp plus the server-computed latency.
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Ping      int64  `json:"ping"`
}

// YourPeerID is the first message on every connection.
type YourPeerID struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

// PeerInfo describes one room member in an existing-peers snapshot.
type PeerInfo struct {
	PeerID   string `json:"peerId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ExistingPeers is the join reply: the other members already in the room.
type ExistingPeers struct {
	Type       string     `json:"type"`
	Peers      []PeerInfo `json:"peers"`
	RoomID     string     `json:"roomId"`
	YourID     string     `json:"yourId"`
	TotalUsers int        `json:"totalUsers"`
}

// NewPeer announces a joining member to the rest of the room.
type NewPeer struct {
	Type     string `json:"type"`
	PeerID   string `json:"peerId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	RoomID   string `json:"roomId"`
}

// PeerDisconnected announces a member leaving, whether gracefully or not.
type PeerDisconnected struct {
	Type     string `json:"type"`
	PeerID   string `json:"peerId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// decode parses one inbound frame into its typed message. Unknown types and
// frames missing required fields are errors; the caller logs and drops them
// without closing the connection.
func decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoom
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.RoomID == "" {
			return nil, fmt.Errorf("join-room: missing roomId")
		}
		return &m, nil

	case TypeLeaveRoom:
		var m LeaveRoom
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil

	case TypeOffer, TypeAnswer, TypeICECandidate:
		var m Relay
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		if m.TargetPeerID == "" {
			return nil, fmt.Errorf("%s: missing targetPeerId", env.Type)
		}
		return &m, nil

	case TypeUserMuted:
		var m MuteState
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil

	case TypeUserSpeaking:
		var m SpeakingState
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil

	case TypePing:
		var m Ping
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
