package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/auth"
	jwtpkg "taskboard/backend/internal/auth/jwt"
	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/storage"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	jwtManager  *jwtpkg.Manager
	users       storage.UserRepository
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, jwtManager *jwtpkg.Manager, users storage.UserRepository, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		users:       users,
		log:         log,
	}
}

type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func toUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
	}
}

// Register 处理用户注册请求
//
// 公开注册只能创建客户角色账号，管理员账号由 create-admin 命令创建。
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	// 强制客户角色，角色字段不接受外部输入
	req.Role = domain.RoleClient

	user, err := h.authService.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, MsgEmailExists)
		case errors.Is(err, auth.ErrUsernameExists):
			Conflict(c, MsgUsernameExists)
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("register failed", zap.Error(err))
			InternalError(c, MsgInternalError)
		}
		return
	}

	token, err := h.jwtManager.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Created(c, authResponse{
		User:        toUserResponse(user),
		AccessToken: token.AccessToken,
		ExpiresIn:   token.ExpiresIn,
	})
}

// Login 处理用户登录请求
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserInactive):
			Forbidden(c, GetErrorMessage(err))
		default:
			Unauthorized(c, MsgInvalidCredentials)
		}
		return
	}

	token, err := h.jwtManager.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.Error("token generation failed", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, authResponse{
		User:        toUserResponse(user),
		AccessToken: token.AccessToken,
		ExpiresIn:   token.ExpiresIn,
	})
}

// Me 返回当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.GetUserByID(middleware.UserID(c))
	if err != nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}
	Success(c, toUserResponse(user))
}
