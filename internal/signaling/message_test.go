package signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJoinRoom(t *testing.T) {
	msg, err := decode([]byte(`{"type":"join-room","roomId":"general","userId":"u1","username":"alice","avatar":"a.png"}`))
	require.NoError(t, err)

	join, ok := msg.(*JoinRoom)
	require.True(t, ok)
	assert.Equal(t, "general", join.RoomID)
	assert.Equal(t, "alice", join.Username)
	assert.Equal(t, "a.png", join.Avatar)
}

func TestDecodeRelayKeepsPayloadOpaque(t *testing.T) {
	raw := `{"type":"offer","targetPeerId":"p2","roomId":"general","sdp":{"type":"offer","sdp":"v=0\r\nm=audio 9 UDP/TLS/RTP/SAVPF 111\r\n"}}`
	msg, err := decode([]byte(raw))
	require.NoError(t, err)

	relay, ok := msg.(*Relay)
	require.True(t, ok)
	assert.Equal(t, TypeOffer, relay.Type)
	assert.Equal(t, "p2", relay.TargetPeerID)
	// The SDP body is not interpreted, only carried.
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0\r\nm=audio 9 UDP/TLS/RTP/SAVPF 111\r\n"}`, string(relay.SDP))
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"type":`},
		{"unknown type", `{"type":"self-destruct"}`},
		{"join without room", `{"type":"join-room","username":"alice"}`},
		{"offer without target", `{"type":"offer","roomId":"general","sdp":{}}`},
		{"empty frame", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodePing(t *testing.T) {
	msg, err := decode([]byte(`{"type":"ping","timestamp":1700000000000}`))
	require.NoError(t, err)

	ping, ok := msg.(*Ping)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), ping.Timestamp)
}

func TestDecodeStateFlags(t *testing.T) {
	msg, err := decode([]byte(`{"type":"user-muted","roomId":"general","muted":false}`))
	require.NoError(t, err)
	mute, ok := msg.(*MuteState)
	require.True(t, ok)
	assert.False(t, mute.Muted)

	msg, err = decode([]byte(`{"type":"user-speaking","roomId":"general","speaking":true}`))
	require.NoError(t, err)
	speaking, ok := msg.(*SpeakingState)
	require.True(t, ok)
	assert.True(t, speaking.Speaking)
}
