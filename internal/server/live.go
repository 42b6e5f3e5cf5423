package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linkdoctor/internal/session"
)

const (
	liveWriteTimeout = 5 * time.Second
	liveRefresh      = 30 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s.serveLiveConnection(conn)
}

// serveLiveConnection pushes a snapshot on connect, after every session
// change and on a slow refresh so idle clients see environment updates.
func (s *Server) serveLiveConnection(conn *websocket.Conn) {
	defer conn.Close()

	changes, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	if err := writeLivePayload(conn, s.session.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(liveRefresh)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-changes:
		case <-ticker.C:
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(liveWriteTimeout))
			return
		case <-done:
			return
		}
		if err := writeLivePayload(conn, s.session.Snapshot()); err != nil {
			return
		}
	}
}

func writeLivePayload(conn *websocket.Conn, payload session.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(payload)
}
