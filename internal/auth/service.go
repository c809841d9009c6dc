package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskboard/backend/internal/domain"
	"taskboard/backend/internal/storage"
)

var (
	// ErrInvalidEmail 无效的邮箱格式
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword 密码强度不足
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrEmailExists 邮箱已存在
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive 用户已被禁用
	ErrUserInactive = errors.New("user is inactive")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Service 认证服务
type Service struct {
	users storage.UserRepository
}

// NewService 创建认证服务
func NewService(users storage.UserRepository) *Service {
	return &Service{users: users}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Email    string          `json:"email" binding:"required"`
	Username string          `json:"username" binding:"required,min=2,max=100"`
	Password string          `json:"password" binding:"required"`
	Role     domain.UserRole `json:"role"`
}

// LoginInput 登录输入
type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"` // 邮箱或用户名
	Password   string `json:"password" binding:"required"`
}

// Register 用户注册
//
// 未指定角色时默认为客户角色；管理员账号由 create-admin 命令或
// 既有管理员创建。
func (s *Service) Register(input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}

	if user, err := s.users.GetUserByEmail(email); err == nil && user != nil {
		return nil, ErrEmailExists
	}
	if user, err := s.users.GetUserByUsername(input.Username); err == nil && user != nil {
		return nil, ErrUsernameExists
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role != domain.RoleAdmin {
		role = domain.RoleClient
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     input.Username,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login 用户登录，identifier 可以是邮箱或用户名
func (s *Service) Login(input LoginInput) (*domain.User, error) {
	identifier := strings.TrimSpace(input.Identifier)

	user, err := s.users.GetUserByEmail(strings.ToLower(identifier))
	if err != nil {
		user, err = s.users.GetUserByUsername(identifier)
	}
	if err != nil {
		// 统一返回凭证错误，避免可探测的用户枚举
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := CheckPassword(user.PasswordHash, input.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	_ = s.users.UpdateLastLogin(user.ID)

	return user, nil
}

// HashPassword 生成密码的 bcrypt 哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验密码与哈希是否匹配
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
