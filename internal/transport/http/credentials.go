package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/credentials"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// CredentialService exposes the encrypted API-key store.
type CredentialService struct {
	creds  *credentials.Service
	logger *logging.Logger
}

// NewCredentialService builds the credential transport service.
func NewCredentialService(creds *credentials.Service, logger *logging.Logger) *CredentialService {
	return &CredentialService{creds: creds, logger: logger}
}

// Register wires the secured credential routes.
func (s *CredentialService) Register(secured *gin.RouterGroup) {
	secured.GET("/credentials", s.handleList)
	secured.POST("/credentials", s.handleStore)
	secured.GET("/credentials/:provider", s.handleReveal)
	secured.DELETE("/credentials/:provider", s.handleDelete)
}

type storeCredentialRequest struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"apiKey" binding:"required"`
}

func (s *CredentialService) handleStore(c *gin.Context) {
	var req storeCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "provider and apiKey are required", nil)
		return
	}

	if err := s.creds.Store(c.Request.Context(), CurrentUserID(c), req.Provider, req.APIKey); err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to store credential", nil)
		return
	}
	RespondSuccess(c, http.StatusCreated, gin.H{"provider": req.Provider}, "credential stored")
}

func (s *CredentialService) handleList(c *gin.Context) {
	infos, err := s.creds.List(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to list credentials", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, infos, "")
}

func (s *CredentialService) handleReveal(c *gin.Context) {
	key, err := s.creds.Reveal(c.Request.Context(), CurrentUserID(c), c.Param("provider"))
	if err != nil {
		if vault.IsDecryptionError(err) {
			// The blob cannot be opened on this machine; the client must
			// collect the key again.
			RespondError(c, http.StatusConflict, "stored credential is unreadable, please re-enter it", nil)
			return
		}
		RespondError(c, http.StatusNotFound, "credential not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"apiKey": key}, "")
}

func (s *CredentialService) handleDelete(c *gin.Context) {
	if err := s.creds.Delete(c.Request.Context(), CurrentUserID(c), c.Param("provider")); err != nil {
		RespondError(c, http.StatusNotFound, "credential not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "credential deleted")
}
