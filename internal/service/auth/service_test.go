// Package auth 提供认证服务单元测试
package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) Create(user *model.User) error {
	user.ID = int64(len(f.users) + 1)
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserStore) GetByUsername(username string) (*model.User, error) {
	return f.users[username], nil
}

func (f *fakeUserStore) Exists(username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func newTestService(users *fakeUserStore) *Service {
	return NewService(users, "test-secret", time.Hour)
}

func seedUser(t *testing.T, users *fakeUserStore, username, password, role string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	users.users[username] = &model.User{Username: username, HashedPassword: string(hashed), Role: role}
}

// ========== 登录测试 ==========

func TestLogin(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "ops", "secret123", model.RoleUser)
	svc := newTestService(users)

	token, err := svc.Login("ops", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token.Role != model.RoleUser || token.Username != "ops" {
		t.Errorf("token = %+v", token)
	}
	if token.AccessToken == "" {
		t.Error("AccessToken is empty")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "ops", "secret123", model.RoleUser)
	svc := newTestService(users)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "ops", "wrong"},
		{"unknown user", "nobody", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(tt.username, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

// ========== 注册测试 ==========

func TestRegister(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users)

	token, err := svc.Register("newbie", "password1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token.Role != model.RoleUser {
		t.Errorf("Role = %q, want user", token.Role)
	}

	stored := users.users["newbie"]
	if stored == nil {
		t.Fatal("user not created")
	}
	if stored.HashedPassword == "password1" {
		t.Error("password stored in plain text")
	}
}

func TestRegister_ReservedAndDuplicate(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "taken", "x", model.RoleUser)
	svc := newTestService(users)

	if _, err := svc.Register("admin", "pwd"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register(admin) error = %v, want ErrUsernameTaken", err)
	}
	if _, err := svc.Register("taken", "pwd"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register(taken) error = %v, want ErrUsernameTaken", err)
	}
}

// ========== 访客令牌测试 ==========

func TestGuestToken(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestService(users)

	token, err := svc.GuestToken()
	if err != nil {
		t.Fatalf("GuestToken() error = %v", err)
	}
	if token.Role != model.RoleGuest {
		t.Errorf("Role = %q, want guest", token.Role)
	}
	if !strings.HasPrefix(token.Username, "guest_") {
		t.Errorf("Username = %q, want guest_ prefix", token.Username)
	}
	if users.users[token.Username] == nil {
		t.Error("guest user not persisted")
	}
}

// ========== 令牌校验测试 ==========

func TestValidateToken_RoundTrip(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "ops", "secret123", model.RoleAdmin)
	svc := newTestService(users)

	token, err := svc.Login("ops", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	identity, err := svc.ValidateToken(token.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if identity.Username != "ops" || identity.Role != model.RoleAdmin {
		t.Errorf("identity = %+v", identity)
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	svc := newTestService(newFakeUserStore())

	tests := []string{
		"",
		"not-a-jwt",
		"eyJhbGciOiJIUzI1NiJ9.e30.bogus",
	}
	for _, tokenString := range tests {
		if _, err := svc.ValidateToken(tokenString); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken(%q) error = %v, want ErrInvalidToken", tokenString, err)
		}
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "ops", "secret123", model.RoleUser)

	issuer := NewService(users, "secret-a", time.Hour)
	verifier := NewService(users, "secret-b", time.Hour)

	token, err := issuer.Login("ops", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := verifier.ValidateToken(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	users := newFakeUserStore()
	seedUser(t, users, "ops", "secret123", model.RoleUser)
	svc := NewService(users, "test-secret", -time.Minute)

	token, err := svc.Login("ops", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := svc.ValidateToken(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}
