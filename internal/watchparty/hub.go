// Package watchparty hosts lightweight rooms keyed by movie slug so
// people watching the same title together can talk and announce where
// they are in the stream. Rooms are in-memory and vanish with the server.
package watchparty

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHistorySize = 50

// Frame is one event on a room's stream. Chat frames carry text and are
// replayed to late joiners; position and presence frames are transient.
type Frame struct {
	Type            string    `json:"type"`
	Room            string    `json:"room"` // movie slug
	User            string    `json:"user"`
	Text            string    `json:"text,omitempty"`
	PositionSeconds int64     `json:"position_seconds,omitempty"`
	At              time.Time `json:"at"`
}

func chatFrame(room, user, text string) Frame {
	return Frame{Type: "message", Room: room, User: user, Text: text, At: time.Now().UTC()}
}

func positionFrame(room, user string, seconds int64) Frame {
	return Frame{Type: "position", Room: room, User: user, PositionSeconds: seconds, At: time.Now().UTC()}
}

func presenceFrame(kind, room, user string) Frame {
	return Frame{Type: kind, Room: room, User: user, At: time.Now().UTC()}
}

// room tracks who is watching together and the chat log worth replaying.
type room struct {
	members map[*websocket.Conn]string
	log     []Frame
}

func (r *room) remember(f Frame, keep int) {
	r.log = append(r.log, f)
	if len(r.log) > keep {
		r.log = r.log[len(r.log)-keep:]
	}
}

// send writes the payload to every member, dropping connections that
// fail mid-write.
func (r *room) send(payload []byte) {
	for ws := range r.members {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(r.members, ws)
		}
	}
}

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	keep  int
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		rooms: make(map[string]*room),
		keep:  historySize,
	}
}

// Join adds the connection to the room, announces it, and returns the
// chat log the caller should replay to the new member.
func (h *Hub) Join(slug string, ws *websocket.Conn, user string) []Frame {
	h.mu.Lock()
	r := h.rooms[slug]
	if r == nil {
		r = &room{members: make(map[*websocket.Conn]string)}
		h.rooms[slug] = r
	}
	r.members[ws] = user
	replay := append([]Frame(nil), r.log...)
	h.mu.Unlock()

	h.Announce(presenceFrame("user_join", slug, user))
	return replay
}

func (h *Hub) Leave(slug string, ws *websocket.Conn) {
	var user string
	h.mu.Lock()
	if r, ok := h.rooms[slug]; ok {
		user = r.members[ws]
		delete(r.members, ws)
	}
	h.mu.Unlock()

	_ = ws.Close()

	if user != "" {
		h.Announce(presenceFrame("user_leave", slug, user))
	}
}

// Chat appends to the room's replayed log and fans the frame out.
func (h *Hub) Chat(slug, user, text string) {
	f := chatFrame(slug, user, text)
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[slug]
	if !ok {
		return
	}
	r.remember(f, h.keep)
	r.send(payload)
}

// Announce fans a transient frame out without touching the log.
func (h *Hub) Announce(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[f.Room]; ok {
		r.send(payload)
	}
}

func (h *Hub) History(slug string) []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[slug]; ok {
		return append([]Frame(nil), r.log...)
	}
	return nil
}

func (h *Hub) User(slug string, ws *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[slug]; ok {
		return r.members[ws]
	}
	return ""
}
