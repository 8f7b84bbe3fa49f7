package signaling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hub tests drive the channels directly: clients here have a send queue but
// no websocket, which is all the hub ever touches.

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(NewRegistry(), NewRoomIndex([]string{"lobby"}))
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{Hub: h, Send: make(chan any, 32)}
	h.Register <- c
	identity := recv[*YourPeerID](t, c)
	require.NotEmpty(t, identity.PeerID)
	require.Equal(t, TypeYourPeerID, identity.Type)
	return c
}

func join(t *testing.T, h *Hub, c *Client, roomID, username string) *ExistingPeers {
	t.Helper()
	h.inbound <- inboundMessage{client: c, msg: &JoinRoom{
		Type:     TypeJoinRoom,
		RoomID:   roomID,
		UserID:   "user-" + username,
		Username: username,
	}}
	return recv[*ExistingPeers](t, c)
}

func recv[T any](t *testing.T, c *Client) T {
	t.Helper()
	select {
	case m, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		v, isT := m.(T)
		require.True(t, isT, "unexpected message %T: %+v", m, m)
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		panic("unreachable")
	}
}

// sync round-trips a ping through the hub so everything queued before it has
// been handled, then asserts the client's queue is empty.
func requireNoPending(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.inbound <- inboundMessage{client: c, msg: &Ping{Type: TypePing, Timestamp: time.Now().UnixMilli()}}
	recv[*Pong](t, c)
	select {
	case m := <-c.Send:
		t.Fatalf("unexpected pending message %T: %+v", m, m)
	default:
	}
}

func roomExists(h *Hub, roomID string) bool {
	var ok bool
	h.do(func() { ok = h.rooms.Exists(roomID) })
	return ok
}

func TestFirstJoinCreatesRoom(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)

	reply := join(t, h, x, "general", "alice")

	assert.Empty(t, reply.Peers)
	assert.Equal(t, 1, reply.TotalUsers)
	assert.Equal(t, "general", reply.RoomID)
	assert.Equal(t, x.PeerID, reply.YourID)
	assert.True(t, roomExists(h, "general"))
}

func TestSecondJoinSeesExistingPeer(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)

	join(t, h, x, "general", "alice")
	reply := join(t, h, y, "general", "bob")

	require.Len(t, reply.Peers, 1)
	assert.Equal(t, x.PeerID, reply.Peers[0].PeerID)
	assert.Equal(t, "alice", reply.Peers[0].Username)
	assert.Equal(t, 2, reply.TotalUsers)

	announce := recv[*NewPeer](t, x)
	assert.Equal(t, y.PeerID, announce.PeerID)
	assert.Equal(t, "bob", announce.Username)
	assert.Equal(t, "general", announce.RoomID)

	// The joiner is never announced to itself.
	requireNoPending(t, h, y)
}

func TestOfferRelayedVerbatimWithAuthoritativeSender(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)
	join(t, h, x, "general", "alice")
	join(t, h, y, "general", "bob")
	recv[*NewPeer](t, x)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)
	h.inbound <- inboundMessage{client: x, msg: &Relay{
		Type:         TypeOffer,
		TargetPeerID: y.PeerID,
		SenderPeerID: "forged-peer-id",
		RoomID:       "general",
		SDP:          sdp,
	}}

	got := recv[*Relay](t, y)
	assert.Equal(t, TypeOffer, got.Type)
	assert.Equal(t, x.PeerID, got.SenderPeerID)
	assert.Empty(t, got.TargetPeerID)
	assert.JSONEq(t, string(sdp), string(got.SDP))
}

func TestAbruptDisconnectNotifiesRoom(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)
	join(t, h, x, "general", "alice")
	join(t, h, y, "general", "bob")
	recv[*NewPeer](t, x)

	h.Unregister <- y

	gone := recv[*PeerDisconnected](t, x)
	assert.Equal(t, y.PeerID, gone.PeerID)
	assert.Equal(t, "bob", gone.Username)
	assert.True(t, roomExists(h, "general"), "room must survive while a member remains")

	// Last member out deletes the dynamic room.
	h.inbound <- inboundMessage{client: x, msg: &LeaveRoom{Type: TypeLeaveRoom, RoomID: "general"}}
	requireNoPending(t, h, x)
	assert.False(t, roomExists(h, "general"))
}

func TestRelayToUnknownTargetIsDropped(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	join(t, h, x, "general", "alice")

	h.inbound <- inboundMessage{client: x, msg: &Relay{
		Type:         TypeICECandidate,
		TargetPeerID: "no-such-peer",
		RoomID:       "general",
		Candidate:    json.RawMessage(`{"candidate":"candidate:1"}`),
	}}

	// No error reaches the sender and later messages still process.
	requireNoPending(t, h, x)
}

func TestLeaveWithoutRoomIsNoOp(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)

	h.inbound <- inboundMessage{client: x, msg: &LeaveRoom{Type: TypeLeaveRoom}}
	requireNoPending(t, h, x)

	h.do(func() {
		rec, ok := h.registry.Get(x.PeerID)
		require.True(t, ok)
		assert.Empty(t, rec.RoomID)
	})
}

func TestDefaultRoomSurvivesEmpty(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)

	require.True(t, roomExists(h, "lobby"))
	join(t, h, x, "lobby", "alice")
	h.inbound <- inboundMessage{client: x, msg: &LeaveRoom{Type: TypeLeaveRoom, RoomID: "lobby"}}
	requireNoPending(t, h, x)

	assert.True(t, roomExists(h, "lobby"))
}

func TestDuplicateJoinSwitchesRooms(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)
	join(t, h, x, "general", "alice")
	join(t, h, y, "general", "bob")
	recv[*NewPeer](t, x)

	reply := join(t, h, y, "music", "bob")
	assert.Equal(t, "music", reply.RoomID)
	assert.Equal(t, 1, reply.TotalUsers)

	// The old room saw bob leave.
	gone := recv[*PeerDisconnected](t, x)
	assert.Equal(t, y.PeerID, gone.PeerID)
	assert.Equal(t, "general", gone.RoomID)

	h.do(func() {
		rec, ok := h.registry.Get(y.PeerID)
		require.True(t, ok)
		assert.Equal(t, "music", rec.RoomID)
	})
}

func TestMuteAndSpeakingBroadcast(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)
	join(t, h, x, "general", "alice")
	join(t, h, y, "general", "bob")
	recv[*NewPeer](t, x)

	h.inbound <- inboundMessage{client: y, msg: &MuteState{Type: TypeUserMuted, RoomID: "general", Muted: false}}
	muted := recv[*MuteState](t, x)
	assert.Equal(t, y.PeerID, muted.PeerID)
	assert.False(t, muted.Muted)
	assert.Equal(t, "general", muted.RoomID)

	h.inbound <- inboundMessage{client: y, msg: &SpeakingState{Type: TypeUserSpeaking, RoomID: "general", Speaking: true}}
	speaking := recv[*SpeakingState](t, x)
	assert.Equal(t, y.PeerID, speaking.PeerID)
	assert.True(t, speaking.Speaking)

	// The reporter itself gets no echo.
	requireNoPending(t, h, y)

	h.do(func() {
		rec, _ := h.registry.Get(y.PeerID)
		assert.False(t, rec.IsMuted)
		assert.True(t, rec.IsSpeaking)
	})
}

func TestPong(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)

	sent := time.Now().UnixMilli() - 40
	h.inbound <- inboundMessage{client: x, msg: &Ping{Type: TypePing, Timestamp: sent}}

	pong := recv[*Pong](t, x)
	assert.Equal(t, sent, pong.Timestamp)
	assert.GreaterOrEqual(t, pong.Ping, int64(40))
}

// Registry and room index stay in lock-step through joins, switches and
// disconnects.
func TestRegistryIndexConsistency(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)
	y := connect(t, h)
	z := connect(t, h)

	join(t, h, x, "general", "alice")
	join(t, h, y, "general", "bob")
	recv[*NewPeer](t, x)
	join(t, h, z, "music", "carol")
	join(t, h, y, "music", "bob") // switch
	recv[*PeerDisconnected](t, x)
	recv[*NewPeer](t, z)
	h.Unregister <- x

	h.do(func() {
		for _, roomID := range h.rooms.Rooms() {
			for _, peerID := range h.rooms.MembersOf(roomID) {
				rec, ok := h.registry.Get(peerID)
				require.True(t, ok, "room member %s missing from registry", peerID)
				assert.Equal(t, roomID, rec.RoomID)
			}
		}
		for _, peerID := range []string{y.PeerID, z.PeerID} {
			rec, ok := h.registry.Get(peerID)
			require.True(t, ok)
			assert.Contains(t, h.rooms.MembersOf(rec.RoomID), peerID)
		}
		_, ok := h.registry.Get(x.PeerID)
		assert.False(t, ok)
	})
}

func TestDisconnectBeforeJoin(t *testing.T) {
	h := newTestHub(t)
	x := connect(t, h)

	h.Unregister <- x

	// Send channel is closed by the hub; only the registry was touched.
	_, ok := <-x.Send
	assert.False(t, ok)
	h.do(func() {
		assert.Zero(t, h.registry.Len())
	})
}
