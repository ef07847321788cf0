package devicesync

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeReader drains newline-delimited JSON from one end of a pipe into a
// channel so broadcasts never block on an unread connection.
func pipeReader(conn net.Conn) <-chan string {
	out := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			out <- sc.Text()
		}
		close(out)
	}()
	return out
}

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line := <-ch:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return ""
	}
}

func assertSilent(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case line := <-ch:
		t.Fatalf("unexpected event: %s", line)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcastUserScopesDelivery(t *testing.T) {
	hub := NewHub()

	aServer, aClient := net.Pipe()
	bServer, bClient := net.Pipe()
	fireServer, fireClient := net.Pipe()
	defer aClient.Close()
	defer bClient.Close()
	defer fireClient.Close()

	hub.Add(aServer, "user-a")
	hub.Add(bServer, "user-b")
	hub.Add(fireServer, "")

	chA := pipeReader(aClient)
	chB := pipeReader(bClient)
	chFire := pipeReader(fireClient)

	hub.BroadcastUser("user-a", HistoryEvent{
		Type:      "history.update",
		UserID:    "user-a",
		MovieSlug: "mai",
	})

	var ev HistoryEvent
	require.NoError(t, json.Unmarshal([]byte(recvLine(t, chA)), &ev))
	assert.Equal(t, "history.update", ev.Type)
	assert.Equal(t, "mai", ev.MovieSlug)

	// firehose listeners see every user's events
	require.NoError(t, json.Unmarshal([]byte(recvLine(t, chFire)), &ev))
	assert.Equal(t, "user-a", ev.UserID)

	// other users' devices see nothing
	assertSilent(t, chB)
}

func TestSubscribeRebindsConnection(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server, "")
	ch := pipeReader(client)

	hub.Subscribe(server, "user-b")

	hub.BroadcastUser("user-a", LibraryEvent{Type: "library.update", UserID: "user-a", MovieSlug: "mai"})
	assertSilent(t, ch)

	hub.BroadcastUser("user-b", LibraryEvent{Type: "library.update", UserID: "user-b", MovieSlug: "dao"})
	var ev LibraryEvent
	require.NoError(t, json.Unmarshal([]byte(recvLine(t, ch)), &ev))
	assert.Equal(t, "dao", ev.MovieSlug)
}

func TestSubscribeUnknownConnIsIgnored(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()

	// never added; Subscribe must not register it
	hub.Subscribe(server, "user-a")
	assert.Equal(t, 0, hub.Count())
}

func TestRemoveDropsConnection(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server, "user-a")
	require.Equal(t, 1, hub.Count())

	hub.Remove(server)
	assert.Equal(t, 0, hub.Count())
}

func TestStatsCountsBothTransports(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server, "user-a")

	stats := hub.Stats()
	assert.Equal(t, 1, stats.TCPClients)
	assert.Equal(t, 0, stats.WSClients)
}
