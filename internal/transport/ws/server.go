package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
	"github.com/AbhigyanVE/ScrumMaster/internal/logging"
)

// Querier answers chat queries.
type Querier interface {
	Handle(ctx context.Context, query, sessionID string) (*domain.Response, error)
	ResetContext(ctx context.Context, sessionID string) error
}

// Settings are the connection timings.
type Settings struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// DefaultSettings returns the timings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 65536,
	}
}

// Server handles WebSocket connections.
type Server struct {
	settings Settings
	hub      *Hub
	querier  Querier
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// base is cancelled by Close; in-flight queries run under it.
	base     context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// NewServer creates a new WebSocket server.
func NewServer(settings Settings, h *Hub, q Querier, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		settings: settings,
		hub:      h,
		querier:  q,
		logger:   logger,
		base:     base,
		cancel:   cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Close cancels in-flight queries and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.inflight.Wait()
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
// GET /ws
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	if !s.hub.Register(conn) {
		ws.Close()
		return nil
	}
	ws.SetReadLimit(s.settings.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.settings.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, base)
	case TypeQuery:
		s.handleQuery(conn, data)
	case TypeReset:
		s.handleReset(conn, base)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

func (s *Server) handleHello(conn *Connection, msg BaseMessage) {
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()[:8]
	}
	s.hub.BindSession(conn, sessionID)

	s.hub.SendJSONToConnection(conn, BaseMessage{
		Type:      TypeHelloAck,
		Ts:        time.Now().UnixMilli(),
		RequestID: msg.RequestID,
		SessionID: sessionID,
	})
	s.logger.Info("hello handshake completed", zap.String("session_id", sessionID))
}

// handleQuery answers a query off the read loop; answers go to every
// connection bound to the session.
func (s *Server) handleQuery(conn *Connection, data []byte) {
	var msg QueryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid query message")
		return
	}
	sessionID := conn.SessionID
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	requestID := msg.RequestID
	if requestID == "" {
		requestID = "req_" + uuid.New().String()[:8]
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx := logging.WithRequestID(s.base, requestID)
		resp, err := s.querier.Handle(ctx, msg.Query, sessionID)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			code := ErrorCodeInternal
			if errors.Is(err, domain.ErrInvalidRequest) {
				code = ErrorCodeInvalidMessage
			}
			s.hub.SendJSONToConnection(conn, errorMessage(sessionID, requestID, code, err.Error()))
			return
		}
		s.hub.BroadcastJSON(sessionID, ResponseMessage{
			BaseMessage: BaseMessage{
				Type:      TypeResponse,
				Ts:        time.Now().UnixMilli(),
				RequestID: requestID,
				SessionID: sessionID,
			},
			Response: resp,
		})
	}()
}

func (s *Server) handleReset(conn *Connection, msg BaseMessage) {
	sessionID := conn.SessionID
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	if err := s.querier.ResetContext(s.base, sessionID); err != nil {
		s.logger.Error("failed to reset session", zap.String("session_id", sessionID), zap.Error(err))
		s.sendError(conn, msg.RequestID, ErrorCodeInternal, "failed to reset session")
		return
	}
	s.hub.BroadcastJSON(sessionID, BaseMessage{
		Type:      TypeResetAck,
		Ts:        time.Now().UnixMilli(),
		RequestID: msg.RequestID,
		SessionID: sessionID,
	})
}

// sendError sends an error message to a connection. Call it from the
// connection's read loop only.
func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.hub.SendJSONToConnection(conn, errorMessage(conn.SessionID, requestID, code, message))
}

func errorMessage(sessionID, requestID, code, message string) ErrorMessage {
	return ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: sessionID,
		},
		Code:    code,
		Message: message,
	}
}
