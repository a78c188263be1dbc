package handler

import (
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leiqy-max/zz-agent-out/internal/middleware"
	"github.com/leiqy-max/zz-agent-out/internal/service"
	"github.com/leiqy-max/zz-agent-out/internal/service/answer"
)

// AnswerHandler 问答处理器
type AnswerHandler struct {
	svc *service.Services
}

// NewAnswerHandler 创建问答处理器
func NewAnswerHandler(svc *service.Services) *AnswerHandler {
	return &AnswerHandler{svc: svc}
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
	Image    string `json:"image"` // base64 data URL，可选
}

// Ask 回答一个问题
func (h *AnswerHandler) Ask(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	// 图片存盘失败不阻断问答
	imagePath := ""
	if req.Image != "" {
		imagePath = h.saveImage(req.Image)
	}

	resp, err := h.svc.Answer.Ask(c.Request.Context(), &answer.Request{
		Question:  req.Question,
		Image:     req.Image,
		ImagePath: imagePath,
		Username:  middleware.CurrentUsername(c),
		Role:      middleware.CurrentRole(c),
	})
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":      resp.Answer,
		"sources":     resp.Sources,
		"question_id": resp.QuestionID,
	})
}

// saveImage 把 base64 图片落到图片目录，返回落盘文件名
func (h *AnswerHandler) saveImage(dataURL string) string {
	encoded := dataURL
	if i := strings.Index(dataURL, ","); i >= 0 {
		encoded = dataURL[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Printf("[handler] failed to decode user image: %v", err)
		return ""
	}

	dir := h.svc.Config.KB.ImageDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[handler] failed to create image dir: %v", err)
		return ""
	}
	filename := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		log.Printf("[handler] failed to save user image: %v", err)
		return ""
	}
	return filename
}

type feedbackRequest struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Status     string `json:"status" binding:"required"` // solved / unsolved
}

// Feedback 记录用户对某次回答的反馈
func (h *AnswerHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ok, err := h.svc.Repo.ChatLog.UpdateFeedback(req.QuestionID, req.Status)
	if err != nil {
		serverError(c, err)
		return
	}
	if !ok {
		notFound(c, "question not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback received"})
}

// HotQuestions 返回热门问题，不足时用默认问题补齐
func (h *AnswerHandler) HotQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": h.svc.Hot.Questions()})
}

type polishRequest struct {
	Question    string `json:"question" binding:"required"`
	DraftAnswer string `json:"draft_answer" binding:"required"`
}

// Polish 用大模型对草稿答案做轻微润色
func (h *AnswerHandler) Polish(c *gin.Context) {
	var req polishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	polished, err := h.svc.Answer.Polish(c.Request.Context(), req.Question, req.DraftAnswer)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "polished_answer": polished})
}
