package devicesync

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
)

// Server is the TCP side of the hub. Clients connect, optionally send a
// subscribe line, and then read newline-delimited JSON events.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

type subscribeMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Printf("[tcp-sync] listening on %s", s.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		s.Hub.Add(conn, "")
		s.Hub.Welcome(conn)
		log.Printf("[tcp-sync] client connected: %s", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				log.Printf("[tcp-sync] client disconnected: %s", c.RemoteAddr())
			}()

			// A subscribe line narrows the stream to one user's events;
			// anything else from the client is consumed and ignored.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				var msg subscribeMsg
				if err := json.Unmarshal([]byte(line), &msg); err != nil {
					continue
				}
				if msg.Type == "subscribe" && msg.UserID != "" {
					s.Hub.Subscribe(c, msg.UserID)
					log.Printf("[tcp-sync] %s subscribed to user %s", c.RemoteAddr(), msg.UserID)
				}
			}
		}(conn)
	}
}

// Close stops accepting new connections. Existing connections are
// dropped as their reads fail.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
