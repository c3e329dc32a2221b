// Package service 包含了应用的业务逻辑层。
package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/pkg/hash"
	"ai-chatbot-go/pkg/log"
	"ai-chatbot-go/pkg/token"
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// TokenPair 是登录或刷新后签发的令牌。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	// Authenticate 校验 access token 并返回对应用户。
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
	rdb        *redis.Client
}

// NewUserService 创建一个新的 UserService 实例。rdb 为 nil 时登出不会使 token 失效。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager, rdb *redis.Client) UserService {
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		rdb:        rdb,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(KindBadRequest, "Invalid email", err)
	}
	if len(password) < minPasswordLength {
		return nil, newError(KindBadRequest, "Password must be at least 6 characters", nil)
	}

	// 1. 检查邮箱是否已注册
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, newError(KindBadRequest, "User already exists", nil)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindInternal, "Failed to create user", err)
	}

	// 2. 对密码进行哈希处理
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, newError(KindInternal, "Failed to create user", err)
	}

	// 3. 存储用户
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashed,
		CreatedAt: time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Errorf("[UserService] 创建用户失败, email: %s, error: %v", email, err)
		return nil, newError(KindInternal, "Failed to create user", err)
	}
	return user, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindUnauthorized, "Invalid credentials", nil)
		}
		return nil, newError(KindInternal, "Failed to sign in", err)
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, newError(KindUnauthorized, "Invalid credentials", nil)
	}
	return s.issue(user)
}

// RefreshToken 验证 refresh token 并签发新的令牌对。
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyToken(refreshToken)
	if err != nil || claims.Type != token.TypeRefresh {
		return nil, newError(KindUnauthorized, "Invalid refresh token", err)
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, newError(KindUnauthorized, "User not found", err)
	}
	return s.issue(user)
}

func (s *userService) issue(user *model.User) (*TokenPair, error) {
	access, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, newError(KindInternal, "Failed to issue token", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, newError(KindInternal, "Failed to issue token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout 将 token 加入 Redis 黑名单，过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.VerifyToken(accessToken)
	if err != nil {
		return newError(KindUnauthorized, "Unauthorized", err)
	}
	if s.rdb == nil {
		return nil
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	return s.rdb.Set(ctx, blacklistKey(accessToken), "true", expiration).Err()
}

func (s *userService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.jwtManager.VerifyToken(accessToken)
	if err != nil || claims.Type != token.TypeAccess {
		return nil, ErrUnauthorized
	}
	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, blacklistKey(accessToken)).Result()
		if err != nil {
			log.Warnw("token blacklist lookup failed", "error", err)
		} else if n > 0 {
			return nil, ErrUnauthorized
		}
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "Not Found", err)
		}
		return nil, newError(KindInternal, "Failed to load user", err)
	}
	return user, nil
}

func blacklistKey(tok string) string {
	return "blacklist:" + tok
}
