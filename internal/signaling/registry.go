package signaling

import "time"

// PeerRecord is the registry's view of one connected peer. The client handle
// is a non-owning reference; closing the underlying connection is the
// lifecycle code's job, never the registry's.
type PeerRecord struct {
	PeerID   string
	UserID   string
	Username string
	Avatar   string

	// RoomID is empty until the peer joins a room.
	RoomID string

	// Client-reported flags, last write wins. Peers start muted.
	IsMuted    bool
	IsSpeaking bool

	JoinedAt time.Time

	client *Client
}

// Registry tracks all live peers by id. It is owned by the Hub and only ever
// touched from the hub goroutine, so it carries no lock.
type Registry struct {
	peers map[string]*PeerRecord
}

// NewRegistry creates an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]*PeerRecord),
	}
}

// Register inserts a new peer with no room assignment. Peer ids are unique by
// construction, so a duplicate id is a no-op rather than an error.
func (r *Registry) Register(peerID string, c *Client) {
	if _, ok := r.peers[peerID]; ok {
		return
	}
	r.peers[peerID] = &PeerRecord{
		PeerID:   peerID,
		IsMuted:  true,
		JoinedAt: time.Now(),
		client:   c,
	}
}

// Get returns the record for peerID, if present.
func (r *Registry) Get(peerID string) (*PeerRecord, bool) {
	rec, ok := r.peers[peerID]
	return rec, ok
}

// SetRoom updates a peer's current room. Keeping the RoomIndex in step is the
// caller's responsibility; the two structures never update each other.
func (r *Registry) SetRoom(peerID, roomID string) {
	if rec, ok := r.peers[peerID]; ok {
		rec.RoomID = roomID
	}
}

// UpdateFlags applies a partial update of the client-reported state flags.
// Unknown peer ids are a no-op.
func (r *Registry) UpdateFlags(peerID string, muted, speaking *bool) {
	rec, ok := r.peers[peerID]
	if !ok {
		return
	}
	if muted != nil {
		rec.IsMuted = *muted
	}
	if speaking != nil {
		rec.IsSpeaking = *speaking
	}
}

// Remove deletes and returns the record so the caller can drive room cleanup
// from the removed peer's RoomID.
func (r *Registry) Remove(peerID string) (*PeerRecord, bool) {
	rec, ok := r.peers[peerID]
	if ok {
		delete(r.peers, peerID)
	}
	return rec, ok
}

// Len reports the number of connected peers.
func (r *Registry) Len() int {
	return len(r.peers)
}
