package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/persistence/snapshot"
	"ntwtf.ai/internal/protocol"
	"ntwtf.ai/internal/save"
)

type Server struct {
	sess  *save.Session
	roots []string
	log   *log.Logger

	upgrader websocket.Upgrader
}

// NewServer serves sess to websocket clients. roots are the directories
// DISCOVER lists saves under.
func NewServer(sess *save.Session, roots []string, logger *log.Logger) *Server {
	return &Server{
		sess:  sess,
		roots: roots,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local UI
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := s.handshake(conn)
		if out == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Commands run one at a time; the session lock orders
		// them against other connections.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			reply := s.Dispatch(msg)
			b, err := json.Marshal(reply)
			if err != nil {
				s.log.Printf("ws: marshal reply: %v", err)
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		}
		<-done
	}
}

func (s *Server) handshake(conn *websocket.Conn) chan []byte {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.sess.ID(),
		Catalogs:        protocol.CatalogDigests(s.sess.Catalogs().Digests),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	if hello.ClientName != "" {
		s.log.Printf("ws: client %q attached to session %s", hello.ClientName, s.sess.ID())
	}
	return make(chan []byte, maxQ)
}

// Dispatch runs one command message and returns the RESULT or ERROR reply.
func (s *Server) Dispatch(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError("", "", protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(base.ID, base.Type, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	if !protocol.IsCommand(base.Type) {
		return protocol.NewError(base.ID, base.Type, protocol.ErrProtoBadRequest, "unknown type")
	}

	data, err := s.run(base.Type, msg)
	if err != nil {
		code := errorCode(err)
		if code == protocol.ErrInternal || code == protocol.ErrIO {
			s.log.Printf("ws: %s %s: %v", base.Type, base.ID, err)
		}
		return protocol.NewError(base.ID, base.Type, code, err.Error())
	}
	return protocol.NewResult(base.ID, base.Type, data)
}

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

type schemaViolation struct{ err error }

func (e schemaViolation) Error() string { return e.err.Error() }
func (e schemaViolation) Unwrap() error { return e.err }

func (s *Server) run(typ string, msg []byte) (any, error) {
	switch typ {
	case protocol.TypeDiscover:
		return archive.Discover(s.roots), nil

	case protocol.TypeLoad:
		var m protocol.LoadMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.Path == "" {
			return nil, badRequest{"LOAD needs a path"}
		}
		return s.sess.Load(m.Path)

	case protocol.TypeState:
		return s.sess.State()

	case protocol.TypeSave:
		if err := protocol.ValidateSaveRequest(msg); err != nil {
			return nil, schemaViolation{err}
		}
		var m protocol.SaveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest{err.Error()}
		}
		var u save.Update
		if err := json.Unmarshal(m.Update, &u); err != nil {
			return nil, badRequest{err.Error()}
		}
		return s.sess.Save(u)

	case protocol.TypeQuery:
		var m protocol.QueryMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return nil, badRequest{err.Error()}
		}
		return s.sess.Query(m.Query, m.Limit)

	case protocol.TypeSnapshots:
		return s.sess.Snapshots()

	case protocol.TypeRestore:
		var m protocol.RestoreMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.Path == "" || m.SnapshotID == "" {
			return nil, badRequest{"RESTORE needs path and snapshot_id"}
		}
		return s.sess.Restore(m.Path, m.SnapshotID)
	}
	return nil, badRequest{"unknown type"}
}

func errorCode(err error) string {
	var (
		bad   badRequest
		viol  schemaViolation
		pe    *save.PayloadError
		pathE *fs.PathError
	)
	switch {
	case errors.As(err, &bad):
		return protocol.ErrBadRequest
	case errors.As(err, &viol):
		return protocol.ErrSchema
	case errors.Is(err, save.ErrStateKey):
		return protocol.ErrBadRequest
	case errors.Is(err, save.ErrNoSession):
		return protocol.ErrNoSession
	case errors.Is(err, save.ErrPathMismatch):
		return protocol.ErrConflict
	case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, archive.ErrNotSave):
		return protocol.ErrNotFound
	case errors.As(err, &pe):
		if pe.Op == "parse" || pe.Op == "decode" {
			return protocol.ErrSchema
		}
		return protocol.ErrInternal
	case errors.As(err, &pathE):
		return protocol.ErrIO
	}
	return protocol.ErrInternal
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
