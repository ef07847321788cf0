package watchparty

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPartyServer(t *testing.T, historySize int) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(historySize)

	router := gin.New()
	router.GET("/party", WSHandler(hub))
	router.GET("/party/history", HistoryHandler(hub))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialParty(t *testing.T, srv *httptest.Server, room, user string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/party?room=" + room + "&user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Frame
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntilType drains join/leave noise until a message of the wanted
// type arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, msgType string) Frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %q message received", msgType)
	return Frame{}
}

func TestChatMessageRoundTrip(t *testing.T) {
	srv, hub := newPartyServer(t, 10)
	conn := dialParty(t, srv, "mai", "linh")

	join := readMessage(t, conn)
	assert.Equal(t, "user_join", join.Type)
	assert.Equal(t, "linh", join.User)

	require.NoError(t, conn.WriteJSON(clientFrame{Text: "phim hay quá"}))

	msg := readUntilType(t, conn, "message")
	assert.Equal(t, "mai", msg.Room)
	assert.Equal(t, "linh", msg.User)
	assert.Equal(t, "phim hay quá", msg.Text)

	history := hub.History("mai")
	require.Len(t, history, 1)
	assert.Equal(t, "phim hay quá", history[0].Text)
}

func TestPositionFramesAreTransient(t *testing.T) {
	srv, hub := newPartyServer(t, 10)
	conn := dialParty(t, srv, "mai", "linh")
	readMessage(t, conn) // own user_join

	require.NoError(t, conn.WriteJSON(clientFrame{PositionSeconds: 2530}))

	msg := readUntilType(t, conn, "position")
	assert.Equal(t, int64(2530), msg.PositionSeconds)

	assert.Empty(t, hub.History("mai"))
}

func TestHistoryIsBoundedAndReplayedToLateJoiners(t *testing.T) {
	srv, hub := newPartyServer(t, 3)
	first := dialParty(t, srv, "mai", "linh")
	readMessage(t, first)

	for _, text := range []string{"one", "two", "three", "four"} {
		require.NoError(t, first.WriteJSON(clientFrame{Text: text}))
		readUntilType(t, first, "message")
	}

	history := hub.History("mai")
	require.Len(t, history, 3)
	assert.Equal(t, "two", history[0].Text)
	assert.Equal(t, "four", history[2].Text)

	// a late joiner gets the bounded history replayed
	second := dialParty(t, srv, "mai", "thao")
	readUntilType(t, second, "user_join")
	replayed := readUntilType(t, second, "message")
	assert.Equal(t, "two", replayed.Text)
}

func TestRoomsAreIsolated(t *testing.T) {
	srv, hub := newPartyServer(t, 10)
	conn := dialParty(t, srv, "mai", "linh")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(clientFrame{Text: "hello"}))
	readUntilType(t, conn, "message")

	assert.Empty(t, hub.History("dao-pho-va-piano"))
}

func TestBareTextFramesBecomeChat(t *testing.T) {
	srv, _ := newPartyServer(t, 10)
	conn := dialParty(t, srv, "mai", "linh")
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("xin chào")))

	msg := readUntilType(t, conn, "message")
	assert.Equal(t, "xin chào", msg.Text)
	assert.Equal(t, "linh", msg.User)
}
