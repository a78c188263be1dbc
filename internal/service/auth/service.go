// Package auth 实现用户认证：登录、注册、访客令牌与 JWT 校验。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("auth: username already registered")
	// ErrInvalidToken 令牌无效或过期
	ErrInvalidToken = errors.New("auth: invalid token")
)

// UserStore 用户数据访问能力
type UserStore interface {
	Create(user *model.User) error
	GetByUsername(username string) (*model.User, error)
	Exists(username string) (bool, error)
}

// Service 认证服务
type Service struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
}

// NewService 创建认证服务
func NewService(users UserStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{users: users, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Token 一次登录的结果
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

// Identity 解析令牌得到的身份
type Identity struct {
	Username string
	Role     string
}

// Login 用户名密码登录
func (s *Service) Login(username, password string) (*Token, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueToken(user.Username, user.Role)
}

// Register 注册新用户并自动登录。admin 用户名保留，角色固定为 user。
func (s *Service) Register(username, password string) (*Token, error) {
	if username == model.RoleAdmin {
		return nil, fmt.Errorf("%w: reserved username", ErrUsernameTaken)
	}
	exists, err := s.users.Exists(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Username:       username,
		HashedPassword: string(hashed),
		Role:           model.RoleUser,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.issueToken(user.Username, user.Role)
}

// GuestToken 创建一个随机访客账号并签发令牌
func (s *Service) GuestToken() (*Token, error) {
	guestID := "guest_" + uuid.NewString()[:8]

	randomPwd, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash guest password: %w", err)
	}
	user := &model.User{
		Username:       guestID,
		HashedPassword: string(randomPwd),
		Role:           model.RoleGuest,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}
	return s.issueToken(guestID, model.RoleGuest)
}

// ValidateToken 校验 JWT 并还原身份
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return nil, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{Username: username, Role: role}, nil
}

// issueToken 签发带角色声明的访问令牌
func (s *Service) issueToken(username, role string) (*Token, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  username,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tokenObj.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "bearer",
		Role:        role,
		Username:    username,
	}, nil
}
