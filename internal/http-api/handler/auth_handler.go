package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/dto"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
	"bookshare/internal/session"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// RegisterRoutes mounts the public sign-up and login endpoints plus the
// profile endpoints guarded by requireAuth.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.PUT("/profile", requireAuth, h.CompleteProfile)
	rg.GET("/me", requireAuth, h.Me)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.RegisterResponse{UserID: user.ID, Email: user.Email})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, exp, user, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		UserID:      user.ID,
		Email:       user.Email,
	})
}

// CompleteProfile is sign-up step 2. It is open to sessions whose profile
// is still pending as well as to ready ones editing theirs.
func (h *AuthHandler) CompleteProfile(c *gin.Context) {
	userID := c.GetString(middleware.KeyUserID)

	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.svc.CompleteProfile(ctx, userID, session.ProfileInput{
		FullName:        req.FullName,
		Phone:           req.Phone,
		ChapterLocation: req.ChapterLocation,
		Role:            req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{
		Phase:   sess.Phase.String(),
		UserID:  sess.UID,
		Email:   sess.Email,
		Profile: sess.Profile,
	})
}
