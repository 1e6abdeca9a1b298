// Package diagram turns a project's source into Mermaid architecture
// diagrams via the LLM.
package diagram

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/llm"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

const systemPrompt = `You generate Mermaid diagrams describing software
architecture. Reply with exactly one fenced code block tagged "mermaid"
containing valid Mermaid syntax and nothing else. Use a flowchart unless
the request names another diagram type.`

// Kinds accepted by Generate.
const (
	KindFlow     = "flow"
	KindSequence = "sequence"
	KindClass    = "class"
)

// Result carries the extracted diagram plus the model's surrounding
// commentary, if any.
type Result struct {
	Mermaid string `json:"mermaid"`
	Notes   string `json:"notes,omitempty"`
}

// KeyResolver decrypts a user's stored API key for a provider. A nil
// resolver means every request uses the server-wide key.
type KeyResolver interface {
	Reveal(ctx context.Context, userID uint, provider string) (string, error)
}

// Service generates diagrams for stored projects.
type Service struct {
	db       *gorm.DB
	provider llm.Provider
	keys     KeyResolver
	llmCfg   config.LLMConfig
	logger   *logging.Logger
}

// NewService builds the diagram service.
func NewService(db *gorm.DB, provider llm.Provider, keys KeyResolver, llmCfg config.LLMConfig, logger *logging.Logger) *Service {
	return &Service{db: db, provider: provider, keys: keys, llmCfg: llmCfg, logger: logger}
}

// providerFor prefers the user's own stored key over the server-wide
// one. An unreadable stored key falls back to the server key rather
// than failing the request.
func (s *Service) providerFor(ctx context.Context, userID uint) llm.Provider {
	if s.keys == nil {
		return s.provider
	}

	name := s.llmCfg.Type
	if name == "" {
		name = "openai"
	}
	key, err := s.keys.Reveal(ctx, userID, name)
	if err != nil {
		if vault.IsDecryptionError(err) {
			s.logger.WarnTag("VAULT", "stored key unreadable, using server key",
				"userID", userID, "provider", name)
		}
		return s.provider
	}
	if key == "" {
		return s.provider
	}

	cfg := s.llmCfg
	cfg.APIKey = key
	userProvider, err := llm.New(cfg)
	if err != nil {
		return s.provider
	}
	return userProvider
}

// Generate asks the model for a diagram of the given kind. The model
// reply must contain a mermaid code fence; anything else is an error
// rather than a best-effort guess.
func (s *Service) Generate(ctx context.Context, userID, projectID uint, kind, focus string) (*Result, error) {
	var project storage.Project
	err := s.db.WithContext(ctx).
		Preload("Files").
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "diagram.generate", "project not found", err)
	}
	if len(project.Files) == 0 {
		return nil, errors.New(errors.KindTransport, "diagram.generate", "project has no files")
	}

	reply, usage, err := s.providerFor(ctx, userID).Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildRequest(&project, kind, focus)},
	})
	if err != nil {
		return nil, err
	}
	if usage != nil {
		s.logger.DebugTag("LLM", "diagram generated",
			"project", project.Name, "totalTokens", usage.TotalTokens)
	}

	mermaid, notes := ExtractMermaid(reply)
	if mermaid == "" {
		return nil, errors.New(errors.KindLLM, "diagram.generate", "model reply contained no mermaid block")
	}
	return &Result{Mermaid: mermaid, Notes: notes}, nil
}

func buildRequest(project *storage.Project, kind, focus string) string {
	var b strings.Builder
	switch kind {
	case KindSequence:
		b.WriteString("Draw a sequence diagram")
	case KindClass:
		b.WriteString("Draw a class diagram")
	default:
		b.WriteString("Draw a flowchart of the architecture")
	}
	b.WriteString(" for the project below.")
	if focus != "" {
		b.WriteString(" Focus on: ")
		b.WriteString(focus)
	}

	b.WriteString("\n\nProject: ")
	b.WriteString(project.Name)
	for _, file := range project.Files {
		b.WriteString("\n\n--- ")
		b.WriteString(file.Name)
		b.WriteString(" ---\n")
		b.WriteString(file.Content)
	}
	return b.String()
}

// ExtractMermaid pulls the first mermaid code fence out of a model
// reply. Text outside the fence is returned as notes.
func ExtractMermaid(reply string) (mermaid, notes string) {
	const open = "```mermaid"
	start := strings.Index(reply, open)
	if start < 0 {
		return "", ""
	}
	rest := reply[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", ""
	}

	mermaid = strings.TrimSpace(rest[:end])
	notes = strings.TrimSpace(reply[:start] + rest[end+3:])
	return mermaid, notes
}
