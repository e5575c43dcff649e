package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sumatoshi-tech/codeatlas/pkg/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 << 10
)

// handleWebSocket binds one connection to one session. Text frames carry
// protocol requests in and responses out.
func (s *Server) handleWebSocket(rw http.ResponseWriter, hr *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, hr, nil)
	if err != nil {
		s.logger.WarnContext(hr.Context(), "server: websocket upgrade failed", "error", err)

		return
	}
	defer conn.Close()

	// Clear deadlines inherited from the HTTP server.
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(hr.Context())
	defer cancel()

	sess, err := s.manager.Open(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "server: open session failed", "error", err)
		s.writeClose(conn, websocket.CloseInternalServerErr, err.Error())

		return
	}
	defer sess.Close()

	s.logger.InfoContext(ctx, "server: session opened", "session", sess.ID(), "remote", hr.RemoteAddr)

	rejected := make(chan session.Response, 1)
	written := make(chan struct{})

	go func() {
		defer close(written)
		s.writeLoop(conn, sess, rejected)
	}()

	s.readLoop(ctx, conn, sess, rejected)

	sess.Close()
	<-written

	s.logger.InfoContext(context.WithoutCancel(ctx), "server: session closed", "session", sess.ID())
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, rejected chan<- session.Response) {
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.DebugContext(ctx, "server: websocket read ended", "session", sess.ID(), "error", err)
			}

			return
		}

		if kind != websocket.TextMessage {
			continue
		}

		err = sess.SendRaw(ctx, raw)

		switch {
		case err == nil:
		case errors.Is(err, session.ErrInvalidMessage):
			select {
			case rejected <- session.Response{Command: session.CommandError, Index: -1, Error: err.Error()}:
			case <-sess.Done():
				return
			}
		default:
			return
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, sess *session.Session, rejected <-chan session.Response) {
	for {
		var resp session.Response

		select {
		case r, ok := <-sess.Responses():
			if !ok {
				s.writeClose(conn, websocket.CloseNormalClosure, "")
				_ = conn.Close()

				return
			}

			resp = r
		case r := <-rejected:
			resp = r
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		err := conn.WriteJSON(resp)
		if err != nil {
			_ = conn.Close()

			return
		}
	}
}

func (s *Server) writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
