package watchparty

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientFrame is what members send up: a chat line, a position ping, or
// both.
type clientFrame struct {
	Text            string `json:"text"`
	User            string `json:"user"`
	PositionSeconds int64  `json:"position_seconds"`
}

func HistoryHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := strings.TrimSpace(c.Query("room"))
		if room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room is required"})
			return
		}

		c.JSON(http.StatusOK, hub.History(room))
	}
}

func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := strings.TrimSpace(c.Query("room"))
		if room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room is required"})
			return
		}

		user := strings.TrimSpace(c.Query("user"))
		if user == "" {
			user = "anon"
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		for _, f := range hub.Join(room, ws, user) {
			_ = ws.WriteJSON(f)
		}

		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				break
			}

			var incoming clientFrame
			if err := json.Unmarshal(payload, &incoming); err != nil {
				// bare text frames become chat messages
				if text := strings.TrimSpace(string(payload)); text != "" {
					hub.Chat(room, hub.User(room, ws), text)
				}
				continue
			}

			sender := strings.TrimSpace(incoming.User)
			if sender == "" {
				sender = hub.User(room, ws)
			}

			text := strings.TrimSpace(incoming.Text)
			switch {
			case text != "":
				hub.Chat(room, sender, text)
			case incoming.PositionSeconds > 0:
				// position-only ping: "I'm at 42:10", not stored
				hub.Announce(positionFrame(room, sender, incoming.PositionSeconds))
			}
		}

		hub.Leave(room, ws)
	}
}
