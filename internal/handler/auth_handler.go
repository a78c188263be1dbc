package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leiqy-max/zz-agent-out/internal/service"
	"github.com/leiqy-max/zz-agent-out/internal/service/auth"
	"github.com/leiqy-max/zz-agent-out/internal/service/challenge"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Captcha 签发一次性验证码。
// 图片渲染交给前端，这里只返回挑战 ID 与明文验证码。
func (h *AuthHandler) Captcha(c *gin.Context) {
	id, code, err := h.svc.Challenge.Issue(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"captcha_id": id, "captcha_code": code})
}

// Login 用户名密码登录，必须携带有效验证码
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	captchaID := c.PostForm("captcha_id")
	captchaCode := c.PostForm("captcha_code")

	if captchaID == "" || captchaCode == "" {
		badRequest(c, "验证码不能为空")
		return
	}
	if err := h.svc.Challenge.Verify(c.Request.Context(), captchaID, captchaCode); err != nil {
		switch {
		case errors.Is(err, challenge.ErrExpired):
			badRequest(c, "验证码已过期")
		case errors.Is(err, challenge.ErrMismatch):
			badRequest(c, "验证码错误")
		default:
			serverError(c, err)
		}
		return
	}

	token, err := h.svc.Auth.Login(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册并自动登录，角色固定为 user
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	token, err := h.svc.Auth.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			badRequest(c, err.Error())
			return
		}
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// GuestToken 生成访客账号并签发令牌
func (h *AuthHandler) GuestToken(c *gin.Context) {
	token, err := h.svc.Auth.GuestToken()
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}
