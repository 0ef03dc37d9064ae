package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/library"
)

// Auditor records authentication events. Implementations must not block.
type Auditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// AuthController serves the JSON identity endpoints under /api/auth.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	rateLimiter    *RateLimiter
	auditor        Auditor
}

// NewAuthController creates a new authentication controller. auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, auditor Auditor) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		rateLimiter:    rateLimiter,
		auditor:        auditor,
	}
}

// Stop cleans up the rate limiter's background goroutine.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func respondServiceError(c *gin.Context, err error) {
	var validation *library.ValidationError
	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   validation.Error(),
			"code":    "validation_error",
			"details": gin.H{validation.Field: validation.Message},
		})
	case errors.Is(err, ErrUserExists):
		respondError(c, http.StatusConflict, "user_exists", err.Error())
	case errors.Is(err, ErrUserNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalidPassword):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid password")
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// CSRF hands the current CSRF token to cookie clients. The token is also set
// on the X-CSRF-Token response header by CSRFMiddleware.
func (ac *AuthController) CSRF(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c)})
}

// Signup creates an account and logs it in. The first account is an admin.
func (ac *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "username, email and password are required")
		return
	}

	user, err := ac.service.Signup(req.Username, req.Email, req.Password)
	if err != nil {
		ac.audit(c, 0, "signup", false)
		respondServiceError(c, err)
		return
	}
	ac.audit(c, user.ID, "signup", true)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			respondError(c, http.StatusInternalServerError, "internal_error", "failed to create session")
			return
		}
	}

	c.JSON(http.StatusCreated, user)
}

// Login authenticates by username or email and starts a session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "username and password are required")
		return
	}
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Username); !allowed {
		c.Header("Retry-After", RetryAfterSeconds(retryAfter))
		respondError(c, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, req.Username)
		ac.audit(c, 0, "login", false)

		if errors.Is(err, ErrAccountLocked) {
			respondError(c, http.StatusLocked, "account_locked", err.Error())
			return
		}
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, req.Username)
	ac.audit(c, user.ID, "login", true)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			respondError(c, http.StatusInternalServerError, "internal_error", "failed to create session")
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	ac.audit(c, GetUserID(c), "logout", true)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated account.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"auth_type": GetAuthType(c),
	})
}

// ChangePassword verifies the current password and stores a new one.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "new_password is required")
		return
	}

	userID := GetUserID(c)
	if err := ac.service.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		ac.audit(c, userID, "password_change", false)
		respondServiceError(c, err)
		return
	}
	ac.audit(c, userID, "password_change", true)

	c.Status(http.StatusNoContent)
}

// GenerateToken creates a new API token for the authenticated user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	token, err := ac.service.GenerateToken(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	ac.audit(c, userID, "token_generate", true)

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.service.RevokeToken(userID); err != nil {
		respondServiceError(c, err)
		return
	}
	ac.audit(c, userID, "token_revoke", true)

	c.Status(http.StatusNoContent)
}

// RegisterRoutes mounts the identity endpoints on a group that already runs
// the auth middleware. requireAuth guards the endpoints that need a user.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	group.GET("/csrf", ac.CSRF)
	group.POST("/signup", ac.Signup)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/me", requireAuth, ac.Me)
	group.POST("/token", requireAuth, ac.GenerateToken)
	group.DELETE("/token", requireAuth, ac.RevokeToken)
}
