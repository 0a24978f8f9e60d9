package calculatorapplication

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

const (
	wsReadLimit  = 1024
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type pressMessage struct {
	Button string `json:"button"`
}

type wsReply struct {
	State *structs.Snapshot `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}

// websocketHandler: каждое сообщение {"button": ...} нажимает кнопку, в ответ уходит снимок состояния
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	// cookie новой сессии нужно передать в ответ на upgrade явно
	conn, err := s.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	snapshot := ws.Snapshot()
	if err := s.writeReply(conn, wsReply{State: &snapshot}); err != nil {
		return
	}

	for {
		var msg pressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket closed", "session", ws.ID(), "error", err)
			}
			return
		}

		reply := wsReply{}
		snapshot, err := ws.Press(r.Context(), msg.Button)
		switch {
		case err == nil:
			reply.State = &snapshot
		case errors.Is(err, locerr.ErrUnknownButton):
			reply.Error = err.Error()
		default:
			s.log.Error("press failed", "session", ws.ID(), "error", err)
			reply.Error = err.Error()
		}
		if err := s.writeReply(conn, reply); err != nil {
			return
		}
	}
}

// писатель в соединение один, пинги идут через WriteControl
func (s *Server) writeReply(conn *websocket.Conn, reply wsReply) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(reply)
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
