// Package assistant runs question-and-answer conversations over a
// user's uploaded project. Dialog history is persisted per session so a
// conversation survives reconnects.
package assistant

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/eventbus"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/llm"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

// ChatMessage is one persisted turn of a session's dialog.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// historyLimit bounds how many past turns are replayed into the prompt.
const historyLimit = 20

// Service answers questions about a project's code.
type Service struct {
	db       *gorm.DB
	provider llm.Provider
	logger   *logging.Logger
}

// NewService builds the assistant service.
func NewService(db *gorm.DB, provider llm.Provider, logger *logging.Logger) *Service {
	return &Service{db: db, provider: provider, logger: logger}
}

// CreateSession starts a new conversation, optionally tied to a project.
func (s *Service) CreateSession(ctx context.Context, userID, projectID uint, title string) (*storage.ChatSession, error) {
	if title == "" {
		title = "New conversation"
	}
	session := storage.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Title:     title,
		Dialog:    datatypes.JSON([]byte("[]")),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "assistant.create", "create session", err)
	}
	return &session, nil
}

// ListSessions returns the user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID uint) ([]storage.ChatSession, error) {
	var sessions []storage.ChatSession
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "assistant.list", "list sessions", err)
	}
	return sessions, nil
}

// GetSession loads one session, enforcing ownership.
func (s *Service) GetSession(ctx context.Context, userID uint, sessionID string) (*storage.ChatSession, error) {
	var session storage.ChatSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "assistant.get", "session not found", err)
	}
	return &session, nil
}

// DeleteSession removes a session and its history.
func (s *Service) DeleteSession(ctx context.Context, userID uint, sessionID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Delete(&storage.ChatSession{})
	if result.Error != nil {
		return errors.Wrap(errors.KindStorage, "assistant.delete", "delete session", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.KindStorage, "assistant.delete", "session not found")
	}
	return nil
}

// Dialog decodes a session's message history.
func Dialog(session *storage.ChatSession) ([]ChatMessage, error) {
	if len(session.Dialog) == 0 {
		return nil, nil
	}
	var messages []ChatMessage
	if err := sonic.Unmarshal(session.Dialog, &messages); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "assistant.dialog", "decode dialog", err)
	}
	return messages, nil
}

// Ask answers a question synchronously and records the exchange.
func (s *Service) Ask(ctx context.Context, userID uint, sessionID, question string) (string, error) {
	session, history, prompt, err := s.prepareTurn(ctx, userID, sessionID, question)
	if err != nil {
		return "", err
	}

	answer, usage, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if usage != nil {
		s.logger.DebugTag("LLM", "completion finished",
			"session", sessionID, "totalTokens", usage.TotalTokens)
	}

	if err := s.recordTurn(ctx, session, history, question, answer); err != nil {
		return "", err
	}
	return answer, nil
}

// StreamAsk answers a question as a chunk stream. The exchange is
// persisted once the stream completes without error; an aborted stream
// leaves the dialog untouched.
func (s *Service) StreamAsk(ctx context.Context, userID uint, sessionID, question string) (<-chan llm.Chunk, error) {
	session, history, prompt, err := s.prepareTurn(ctx, userID, sessionID, question)
	if err != nil {
		return nil, err
	}

	upstream, err := s.provider.Stream(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.Chunk, 10)
	go func() {
		defer close(out)
		var answer []byte
		for chunk := range upstream {
			answer = append(answer, chunk.Content...)
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Consumer is gone; drop the turn instead of blocking
				// on a send nobody receives.
				return
			}
			if chunk.Err != nil {
				return
			}
		}
		if err := s.recordTurn(context.Background(), session, history, question, string(answer)); err != nil {
			s.logger.ErrorTag("LLM", "failed to persist streamed turn",
				"session", sessionID, "error", err.Error())
		}
	}()
	return out, nil
}

func (s *Service) prepareTurn(ctx context.Context, userID uint, sessionID, question string) (*storage.ChatSession, []ChatMessage, []llm.Message, error) {
	if question == "" {
		return nil, nil, nil, errors.New(errors.KindTransport, "assistant.ask", "question is required")
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	history, err := Dialog(session)
	if err != nil {
		return nil, nil, nil, err
	}

	var project *storage.Project
	if session.ProjectID != 0 {
		var p storage.Project
		err := s.db.WithContext(ctx).
			Preload("Files").
			Where("id = ? AND user_id = ?", session.ProjectID, userID).
			First(&p).Error
		if err != nil {
			return nil, nil, nil, errors.Wrap(errors.KindStorage, "assistant.ask", "load project", err)
		}
		project = &p
	}

	prompt := make([]llm.Message, 0, len(history)+2)
	prompt = append(prompt, llm.Message{Role: llm.RoleSystem, Content: buildSystemMessage(project)})
	recent := history
	if len(recent) > historyLimit {
		recent = recent[len(recent)-historyLimit:]
	}
	for _, msg := range recent {
		prompt = append(prompt, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	prompt = append(prompt, llm.Message{Role: llm.RoleUser, Content: question})

	return session, history, prompt, nil
}

func (s *Service) recordTurn(ctx context.Context, session *storage.ChatSession, history []ChatMessage, question, answer string) error {
	now := time.Now()
	history = append(history,
		ChatMessage{Role: llm.RoleUser, Content: question, Timestamp: now},
		ChatMessage{Role: llm.RoleAssistant, Content: answer, Timestamp: now},
	)
	encoded, err := sonic.Marshal(history)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "assistant.record", "encode dialog", err)
	}

	updates := map[string]interface{}{"dialog": datatypes.JSON(encoded)}
	if session.Title == "New conversation" {
		updates["title"] = truncateTitle(question)
	}
	err = s.db.WithContext(ctx).
		Model(&storage.ChatSession{}).
		Where("id = ?", session.ID).
		Updates(updates).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "assistant.record", "persist dialog", err)
	}

	eventbus.PublishAsync(eventbus.TopicChatMessage, eventbus.SessionEvent{
		UserID:    session.UserID,
		SessionID: session.ID,
	})
	return nil
}

func truncateTitle(question string) string {
	const limit = 60
	runes := []rune(question)
	if len(runes) <= limit {
		return question
	}
	return string(runes[:limit]) + "..."
}
