package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// UserService exposes registration, login and identity endpoints.
type UserService struct {
	auth   *auth.Service
	logger *logging.Logger
}

// NewUserService builds the user transport service.
func NewUserService(authService *auth.Service, logger *logging.Logger) *UserService {
	return &UserService{auth: authService, logger: logger}
}

// Register wires the public and secured user routes.
func (s *UserService) Register(public, secured *gin.RouterGroup) {
	public.POST("/user/register", s.handleRegister)
	public.POST("/user/login", s.handleLogin)
	secured.GET("/user/me", s.handleMe)
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (s *UserService) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "username and password are required", nil)
		return
	}

	user, err := s.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			RespondError(c, http.StatusConflict, "username or email already registered", nil)
			return
		}
		RespondError(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	RespondSuccess(c, http.StatusCreated, user, "registered")
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *UserService) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "username and password are required", nil)
		return
	}

	ctx := c.Request.Context()
	token, user, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLockedOut):
			remaining, lockErr := s.auth.RemainingLockout(ctx, req.Username)
			if lockErr == nil && remaining > 0 {
				c.Header("Retry-After", strconv.Itoa(int(remaining.Seconds())))
			}
			RespondError(c, http.StatusTooManyRequests,
				"too many failed attempts, try again later",
				gin.H{"retryAfterSeconds": int(remaining.Seconds())})
		case errors.Is(err, auth.ErrInvalidCredentials):
			RespondError(c, http.StatusUnauthorized, "invalid username or password", nil)
		default:
			RespondError(c, http.StatusInternalServerError, "login failed", nil)
		}
		return
	}

	RespondSuccess(c, http.StatusOK, gin.H{"token": token, "user": user}, "login ok")
}

func (s *UserService) handleMe(c *gin.Context) {
	RespondSuccess(c, http.StatusOK, gin.H{
		"userID":   CurrentUserID(c),
		"username": c.GetString(ContextUsername),
	}, "")
}
