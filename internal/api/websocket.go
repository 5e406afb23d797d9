package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"binary-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams telemetry and trade events to the front end until the
// client disconnects.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	telemetry, unsubTel := s.Bus.Subscribe(events.EventSessionTelemetry, 100)
	defer unsubTel()
	settled, unsubSettled := s.Bus.Subscribe(events.EventTradeSettled, 100)
	defer unsubSettled()
	stopped, unsubStopped := s.Bus.Subscribe(events.EventSessionStopped, 16)
	defer unsubStopped()

	for {
		var (
			msg  events.Message
			open bool
		)
		select {
		case msg, open = <-telemetry:
		case msg, open = <-settled:
		case msg, open = <-stopped:
		}
		if !open {
			return
		}
		if err := conn.WriteJSON(msg); err != nil {
			s.Log.WithError(err).Debug("ws write failed, closing")
			return
		}
	}
}
