package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinhatch/coinhatch/internal/config"
)

func newTestHub() *Hub {
	h := NewHub()
	go h.Run()
	return h
}

// newTestClient builds a client with no underlying connection; tests
// read broadcasts straight off the Send channel.
func newTestClient(h *Hub, id string) *Client {
	c := NewClient(id, h, nil, config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	})
	h.Register(c)
	return c
}

func recvMessage(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("client %s unexpectedly received %s", c.ID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRoomTracksMembership(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.JoinRoom(bob, "bitcoin")

	assert.Equal(t, 2, h.RoomClientCount("bitcoin"))
	assert.True(t, h.InRoom("alice", "bitcoin"))
	assert.True(t, h.InRoom("bob", "bitcoin"))
	assert.False(t, h.InRoom("alice", "ethereum"))
}

func TestLeaveRoomRemovesEmptyRoom(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")

	h.JoinRoom(alice, "bitcoin")
	require.Equal(t, 1, h.RoomClientCount("bitcoin"))

	h.LeaveRoom(alice, "bitcoin")
	assert.Equal(t, 0, h.RoomClientCount("bitcoin"))
	assert.False(t, h.InRoom("alice", "bitcoin"))
}

func TestLeaveRoomNotMemberIsNoop(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.LeaveRoom(bob, "bitcoin")

	assert.Equal(t, 1, h.RoomClientCount("bitcoin"))
	assert.True(t, h.InRoom("alice", "bitcoin"))
}

func TestBroadcastReachesAllMembers(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.JoinRoom(bob, "bitcoin")

	payload := map[string]string{"type": "message", "content": "to the moon"}
	require.NoError(t, h.BroadcastToRoom("bitcoin", payload, ""))

	for _, c := range []*Client{alice, bob} {
		var got map[string]string
		require.NoError(t, json.Unmarshal(recvMessage(t, c), &got))
		assert.Equal(t, payload, got)
	}
}

func TestBroadcastExcludesOneClient(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.JoinRoom(bob, "bitcoin")

	require.NoError(t, h.BroadcastToRoom("bitcoin", map[string]string{"type": "user_joined"}, "alice"))

	recvMessage(t, bob)
	assertNoMessage(t, alice)
}

func TestBroadcastDoesNotCrossRooms(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.JoinRoom(bob, "ethereum")

	require.NoError(t, h.BroadcastToRoom("bitcoin", map[string]string{"type": "message"}, ""))

	recvMessage(t, alice)
	assertNoMessage(t, bob)
}

func TestUnregisterDropsRoomMembership(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.JoinRoom(alice, "bitcoin")
	h.JoinRoom(bob, "bitcoin")

	h.Unregister(alice)

	require.Eventually(t, func() bool {
		return h.RoomClientCount("bitcoin") == 1
	}, time.Second, 10*time.Millisecond)
	assert.False(t, h.InRoom("alice", "bitcoin"))
	assert.True(t, h.InRoom("bob", "bitcoin"))
}
