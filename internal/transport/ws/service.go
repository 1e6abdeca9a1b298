// Package ws streams assistant answers over a websocket. Each
// connection runs its own activity monitor: the client gets a warning
// frame after sustained inactivity and is disconnected on timeout.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/assistant"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/eventbus"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// Client frame types.
const (
	TypeAsk  = "ask"
	TypePing = "ping"
)

// Server frame types.
const (
	TypeChunk   = "chunk"
	TypeDone    = "done"
	TypeError   = "error"
	TypeWarning = "warning"
	TypeTimeout = "timeout"
)

// ClientFrame is what the browser sends.
type ClientFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Question  string `json:"question,omitempty"`
}

// ServerFrame is what the server sends back.
type ServerFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Service owns the websocket chat endpoint.
type Service struct {
	assistant *assistant.Service
	auth      *auth.Service
	guardCfg  config.GuardConfig
	logger    *logging.Logger
	upgrader  websocket.Upgrader
}

// NewService builds the websocket service.
func NewService(assistantService *assistant.Service, authService *auth.Service, guardCfg config.GuardConfig, logger *logging.Logger) *Service {
	return &Service{
		assistant: assistantService,
		auth:      authService,
		guardCfg:  guardCfg,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The JSON API already allows any origin; the socket matches it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register wires the websocket route. Browsers cannot set headers on
// upgrade requests, so the token travels as a query parameter.
func (s *Service) Register(engine *gin.Engine) {
	engine.GET("/ws/chat", s.handleChat)
}

// conn serializes writes; the chat loop and the monitor callbacks both
// send frames.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) send(frame ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(frame)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session timed out"),
		time.Now().Add(time.Second))
	_ = c.ws.Close()
}

func (s *Service) handleChat(c *gin.Context) {
	token := c.Query("token")
	userID, username, err := s.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
		return
	}

	raw, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WarnTag("WS", "upgrade failed", "error", err.Error())
		return
	}
	client := &conn{ws: raw}
	defer func() { _ = raw.Close() }()

	s.logger.InfoTag("WS", "client connected", "username", username)

	monitor := guard.NewActivityMonitor(guard.MonitorConfig{
		WarningAfter:  s.guardCfg.WarningAfter.Std(),
		TimeoutAfter:  s.guardCfg.TimeoutAfter.Std(),
		CheckInterval: s.guardCfg.CheckInterval.Std(),
	})
	err = monitor.Start(
		func() {
			_ = client.send(ServerFrame{Type: TypeWarning, Content: "session idle, disconnect soon"})
			eventbus.PublishAsync(eventbus.TopicSessionWarning, eventbus.SessionEvent{UserID: userID})
		},
		func() {
			_ = client.send(ServerFrame{Type: TypeTimeout, Content: "session timed out"})
			eventbus.PublishAsync(eventbus.TopicSessionTimeout, eventbus.SessionEvent{UserID: userID})
			client.close()
		},
	)
	if err != nil {
		s.logger.ErrorTag("WS", "monitor start failed", "error", err.Error())
		return
	}
	defer monitor.Stop()

	for {
		var frame ClientFrame
		if err := raw.ReadJSON(&frame); err != nil {
			s.logger.InfoTag("WS", "client disconnected", "username", username)
			return
		}
		monitor.UpdateActivity()

		switch frame.Type {
		case TypePing:
			// Activity refresh only.
		case TypeAsk:
			s.streamAnswer(c.Request.Context(), client, userID, frame)
		default:
			_ = client.send(ServerFrame{Type: TypeError, Content: "unknown frame type"})
		}
	}
}

func (s *Service) streamAnswer(ctx context.Context, client *conn, userID uint, frame ClientFrame) {
	chunks, err := s.assistant.StreamAsk(ctx, userID, frame.SessionID, frame.Question)
	if err != nil {
		_ = client.send(ServerFrame{Type: TypeError, Content: "assistant request failed"})
		return
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			_ = client.send(ServerFrame{Type: TypeError, Content: "stream interrupted"})
			return
		}
		if chunk.Content != "" {
			if err := client.send(ServerFrame{Type: TypeChunk, Content: chunk.Content}); err != nil {
				return
			}
		}
	}
	_ = client.send(ServerFrame{Type: TypeDone})
}
