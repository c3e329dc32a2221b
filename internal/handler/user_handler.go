package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理注册、登录、登出和个人信息接口。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CredentialsRequest 是注册和登录共用的请求体。
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 处理用户注册请求。
func (h *UserHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Register: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Register: registration failed for '%s', error: %v", req.Email, err)
		jsonError(c, err, "Failed to create user")
		return
	}

	log.Infof("User '%s' registered successfully", user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "User registered successfully",
		"data":    user,
	})
}

// Login 处理用户登录请求。
func (h *UserHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	tokens, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("Login: authentication failed for '%s', error: %v", req.Email, err)
		jsonError(c, err, "Invalid credentials")
		return
	}

	log.Infof("User '%s' logged in successfully", req.Email)
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Login successful",
		"data":    tokens,
	})
}

// GetProfile 返回当前登录用户。需要在 RequireAuth 之后使用。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.userService.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		jsonError(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": profile, "message": "success"})
}

// Logout 使当前 access token 失效。
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		log.Error("Logout: Failed to logout", err)
		jsonError(c, err, "Failed to logout")
		return
	}

	log.Infof("User '%s' logged out successfully", middleware.CurrentUser(c).Email)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "Logged out"})
}
