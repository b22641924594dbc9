package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"wayfarer.game/internal/protocol"
	"wayfarer.game/internal/sim/session"
)

// Runtime is the part of session.Runtime the server drives.
type Runtime interface {
	Join(ctx context.Context, playerName string) (session.JoinResponse, error)
	Leave(sessionID string)
	Do(ctx context.Context, sessionID string, fn func(s *session.Session) any) (any, error)
}

type Server struct {
	rt       Runtime
	catalogs map[string]string
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(rt Runtime, catalogDigests map[string]string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		rt:       rt,
		catalogs: catalogDigests,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// actReply is what one ACT produces on the runtime goroutine.
type actReply struct {
	result protocol.ActionResultMsg
	cause  error
	state  session.View
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID := s.handshake(ctx, conn)
		if sessionID == "" {
			return
		}
		defer s.rt.Leave(sessionID)

		out := make(chan any, 8)
		writerDone := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-out:
					if err := writeJSON(conn, m); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAct {
				s.send(ctx, out, protocol.NewActionResult("", false, protocol.ErrProtoBadRequest, "expected ACT"))
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				s.send(ctx, out, protocol.NewActionResult("", false, protocol.ErrProtoBadRequest, "bad protocol_version"))
				continue
			}
			act, err := protocol.DecodeAct(msg)
			if err != nil {
				s.send(ctx, out, protocol.NewActionResult(refOf(msg), false, protocol.ErrMalformed, err.Error()))
				continue
			}
			v, err := s.rt.Do(ctx, sessionID, func(sess *session.Session) any {
				res, cause := sess.Act(act)
				return actReply{result: res, cause: cause, state: sess.View()}
			})
			if err != nil {
				s.log.Printf("session %s: %s: %v", sessionID, act.Action, err)
				// Stop the writer before taking over the conn for the last result.
				cancel()
				<-writerDone
				_ = writeJSON(conn, protocol.NewActionResult(act.ID, false, protocol.ErrInternal, "session unavailable"))
				return
			}
			reply := v.(actReply)
			if reply.cause != nil {
				s.log.Printf("session %s: %s %s: %v", sessionID, act.Action, reply.result.Code, reply.cause)
			}
			s.send(ctx, out, reply.result)
			s.send(ctx, out, protocol.NewState(reply.state))
		}
	}
}

func (s *Server) send(ctx context.Context, out chan<- any, m any) {
	select {
	case out <- m:
	case <-ctx.Done():
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return ""
	}
	name := strings.TrimSpace(hello.PlayerName)
	if name == "" {
		name = "wayfarer"
	}

	resp, err := s.rt.Join(ctx, name)
	if err != nil {
		s.log.Printf("join %q: %v", name, err)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "join failed"), time.Now().Add(time.Second))
		return ""
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       resp.SessionID,
		Catalogs:        s.catalogs,
		State:           resp.View,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.rt.Leave(resp.SessionID)
		return ""
	}
	return resp.SessionID
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

// refOf pulls the id out of an ACT that failed validation.
func refOf(raw []byte) string {
	var m struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &m)
	return m.ID
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
