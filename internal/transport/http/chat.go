package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/assistant"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// ChatService exposes the assistant's sessions over plain JSON. The
// streaming variant lives on the websocket transport.
type ChatService struct {
	assistant *assistant.Service
	logger    *logging.Logger
}

// NewChatService builds the chat transport service.
func NewChatService(assistantService *assistant.Service, logger *logging.Logger) *ChatService {
	return &ChatService{assistant: assistantService, logger: logger}
}

// Register wires the secured chat routes.
func (s *ChatService) Register(secured *gin.RouterGroup) {
	secured.POST("/chat/sessions", s.handleCreate)
	secured.GET("/chat/sessions", s.handleList)
	secured.GET("/chat/sessions/:id", s.handleGet)
	secured.DELETE("/chat/sessions/:id", s.handleDelete)
	secured.POST("/chat/sessions/:id/messages", s.handleAsk)
}

type createSessionRequest struct {
	ProjectID uint   `json:"projectId"`
	Title     string `json:"title"`
}

func (s *ChatService) handleCreate(c *gin.Context) {
	var req createSessionRequest
	_ = c.ShouldBindJSON(&req)

	session, err := s.assistant.CreateSession(c.Request.Context(), CurrentUserID(c), req.ProjectID, req.Title)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to create session", nil)
		return
	}
	RespondSuccess(c, http.StatusCreated, session, "session created")
}

func (s *ChatService) handleList(c *gin.Context) {
	sessions, err := s.assistant.ListSessions(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to list sessions", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, sessions, "")
}

func (s *ChatService) handleGet(c *gin.Context) {
	session, err := s.assistant.GetSession(c.Request.Context(), CurrentUserID(c), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "session not found", nil)
		return
	}
	dialog, err := assistant.Dialog(session)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to decode dialog", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"session": session, "dialog": dialog}, "")
}

func (s *ChatService) handleDelete(c *gin.Context) {
	if err := s.assistant.DeleteSession(c.Request.Context(), CurrentUserID(c), c.Param("id")); err != nil {
		RespondError(c, http.StatusNotFound, "session not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "session deleted")
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *ChatService) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "question is required", nil)
		return
	}

	answer, err := s.assistant.Ask(c.Request.Context(), CurrentUserID(c), c.Param("id"), req.Question)
	if err != nil {
		RespondError(c, http.StatusBadGateway, "assistant request failed", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"answer": answer}, "")
}
