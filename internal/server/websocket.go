package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pogo-pad/internal/files"
	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types understood on /ws.
const (
	MsgSession = "session"
	MsgOpen    = "open"
	MsgDrop    = "drop"
	MsgClick   = "click"
	MsgOCR     = "ocr"
	MsgDump    = "dump"
	MsgClear   = "clear"
	MsgSave    = "save"
	MsgState   = "state"
)

// Response statuses.
const (
	StatusOK      = "ok"
	StatusPending = "pending"
	StatusError   = "error"
)

// ClientMessage is one request from the UI.
type ClientMessage struct {
	Type string `json:"type"`

	// open
	Path string `json:"path,omitempty"`
	// drop: explicit paths, or a raw drop list as delivered by the desktop
	Paths []string `json:"paths,omitempty"`
	Data  string   `json:"data,omitempty"`
	// click
	X int `json:"x"`
	Y int `json:"y"`
	// save
	Name string `json:"name,omitempty"`
}

// ServerMessage is one reply or notification to the UI. Buffer always
// carries the full editor contents.
type ServerMessage struct {
	Type      string           `json:"type"`
	Status    string           `json:"status"`
	Session   string           `json:"session,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
	Outcome   string           `json:"outcome,omitempty"`
	Accepted  int              `json:"accepted,omitempty"`
	Hit       bool             `json:"hit,omitempty"`
	Text      string           `json:"text,omitempty"`
	Count     int              `json:"count,omitempty"`
	Location  string           `json:"location,omitempty"`
	Current   string           `json:"current,omitempty"`
	Files     []string         `json:"files,omitempty"`
	Regions   []regions.Region `json:"regions,omitempty"`
	Suggested string           `json:"suggested_name,omitempty"`
	Buffer    string           `json:"buffer"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// sessionWebSocketHandler upgrades the connection and runs one session on it.
func (s *Server) sessionWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	id := s.register()
	defer s.unregister(id)
	s.logger.Info("WebSocket session started", "session", id, "remote_addr", r.RemoteAddr)

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	incoming := make(chan []byte)
	go func() {
		defer close(incoming)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("WebSocket read error", "session", id, "error", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			select {
			case incoming <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.runSession(ctx, id, conn, incoming)
	s.logger.Info("WebSocket session ended", "session", id)
}

// runSession is the owning goroutine of one session. It handles client
// messages and applies recognition results in arrival order until incoming
// closes or ctx ends.
func (s *Server) runSession(ctx context.Context, id string, conn WebSocketConnWriter, incoming <-chan []byte) {
	sess := s.newSession()
	results := make(chan session.Result)

	s.publish(id, sess)
	s.send(conn, ServerMessage{Type: MsgSession, Status: StatusOK, Session: id})

	start := func() {
		ch := sess.StartRecognize(ctx)
		go func() {
			for res := range ch {
				select {
				case results <- res:
				case <-ctx.Done():
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-incoming:
			if !ok {
				return
			}
			reply, recognize := s.handleMessage(ctx, sess, data)
			if recognize {
				start()
			}
			s.publish(id, sess)
			s.send(conn, reply)
		case res := <-results:
			out := sess.Apply(res)
			if out.Status == session.StatusStale {
				continue
			}
			s.publish(id, sess)
			s.send(conn, recognitionMessage(sess, out))
		}
	}
}

// handleMessage applies one client message. The bool asks the caller to
// start a recognition of the current file.
func (s *Server) handleMessage(ctx context.Context, sess *session.Session, data []byte) (ServerMessage, bool) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		websocketMessagesTotal.WithLabelValues("received", "invalid").Inc()
		return errorMessage(sess, "", "invalid_request", fmt.Errorf("failed to parse request: %w", err)), false
	}
	websocketMessagesTotal.WithLabelValues("received", metricType(msg.Type)).Inc()

	reply := ServerMessage{Type: msg.Type, Status: StatusOK}
	recognize := false

	switch msg.Type {
	case MsgOpen:
		if sess.Push(msg.Path) == 0 {
			return errorMessage(sess, msg.Type, "unsupported_file", fmt.Errorf("unsupported file: %s", msg.Path)), false
		}
		sess.Clear()
		reply.Accepted, reply.Status, recognize = 1, StatusPending, true
	case MsgDrop:
		paths := msg.Paths
		if len(paths) == 0 && msg.Data != "" {
			paths = files.SplitDropList(msg.Data)
		}
		reply.Accepted = sess.Push(paths...)
		if reply.Accepted > 0 {
			reply.Status, recognize = StatusPending, true
		}
	case MsgOCR:
		if _, ok := sess.Current(); ok {
			reply.Status, recognize = StatusPending, true
		} else {
			reply.Outcome = sess.Recognize(ctx).Status.String()
		}
	case MsgClick:
		reply.Text, reply.Hit = sess.Click(msg.X, msg.Y)
	case MsgDump:
		reply.Count = sess.DumpAll()
	case MsgClear:
		sess.Clear()
	case MsgSave:
		loc, err := sess.Save(ctx, msg.Name)
		if err != nil {
			return errorMessage(sess, msg.Type, "save_failed", err), false
		}
		reply.Location = loc
	case MsgState:
		reply.Current, _ = sess.Current()
		reply.Files = sess.Files()
		_, reply.Regions = sess.Regions()
		reply.Suggested = sess.SuggestedName()
	default:
		return errorMessage(sess, msg.Type, "unknown_type", fmt.Errorf("unknown message type %q", msg.Type)), false
	}

	reply.Buffer = sess.Text()
	if reply.Current == "" && recognize {
		reply.Current, _ = sess.Current()
	}
	return reply, recognize
}

func recognitionMessage(sess *session.Session, out session.Outcome) ServerMessage {
	msg := ServerMessage{
		Type:    MsgOCR,
		Status:  StatusOK,
		Outcome: out.Status.String(),
		Current: out.Path,
		Count:   out.Regions,
		Buffer:  sess.Text(),
	}
	if out.Err != nil {
		msg.Status = StatusError
		msg.Error = out.Err.Error()
		msg.ErrorType = errorType(out.Err)
	}
	_, msg.Regions = sess.Regions()
	return msg
}

func errorMessage(sess *session.Session, msgType, errType string, err error) ServerMessage {
	if msgType == "" {
		msgType = "error"
	}
	return ServerMessage{
		Type:      msgType,
		Status:    StatusError,
		Error:     err.Error(),
		ErrorType: errType,
		Buffer:    sess.Text(),
	}
}

func errorType(err error) string {
	var decErr *recognition.DecodeError
	var recErr *recognition.RecognitionError
	switch {
	case errors.As(err, &decErr):
		return "decode_failed"
	case errors.As(err, &recErr):
		return "recognition_failed"
	default:
		return "internal_error"
	}
}

// send writes msg as a JSON text frame.
func (s *Server) send(conn WebSocketConnWriter, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("Failed to write WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent", metricType(msg.Type)).Inc()
}

// metricType keeps client-chosen message types out of metric labels.
func metricType(t string) string {
	switch t {
	case MsgSession, MsgOpen, MsgDrop, MsgClick, MsgOCR, MsgDump, MsgClear, MsgSave, MsgState, "error":
		return t
	default:
		return "unknown"
	}
}
