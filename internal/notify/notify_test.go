package notify

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	require.NoError(t, err)
	return addr
}

func TestRegistryRegisterAndRemove(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", udpAddr(t, "127.0.0.1:9000"))
	r.Register("u2", udpAddr(t, "127.0.0.1:9001"))
	assert.Len(t, r.Snapshot(), 2)

	// re-registering moves the user's address, no duplicate entry
	r.Register("u1", udpAddr(t, "127.0.0.1:9002"))
	snap := r.Snapshot()
	assert.Len(t, snap, 2)
	for _, c := range snap {
		if c.UserID == "u1" {
			assert.Equal(t, 9002, c.Addr.Port)
		}
	}

	r.Remove("u1")
	assert.Len(t, r.Snapshot(), 1)
}

func TestRegistryIgnoresInvalidRegistrations(t *testing.T) {
	r := NewRegistry()

	r.Register("", udpAddr(t, "127.0.0.1:9000"))
	r.Register("u1", nil)

	assert.Empty(t, r.Snapshot())
}

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "register", msg.Type)
	assert.Equal(t, "u1", msg.UserID)

	_, err = parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`{"user_id":"u1"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestBroadcastBeforeRunIsSafe(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewRegistry(), nil)

	// no UDP socket yet; must not panic
	srv.BroadcastNewEpisode("mai", "Mai", "Tập 13")
}
