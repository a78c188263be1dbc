package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leiqy-max/zz-agent-out/internal/middleware"
	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/service"
	"github.com/leiqy-max/zz-agent-out/internal/service/approval"
)

// QAHandler 问答学习处理器
type QAHandler struct {
	svc *service.Services
}

// NewQAHandler 创建问答学习处理器
func NewQAHandler(svc *service.Services) *QAHandler {
	return &QAHandler{svc: svc}
}

type manualQARequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

// AddQA 人工录入问答对。管理员直接生效，普通用户提交待审批。
func (h *QAHandler) AddQA(c *gin.Context) {
	var req manualQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	qa, err := h.svc.Approval.AddQA(c.Request.Context(), req.Question, req.Answer,
		middleware.CurrentUsername(c), middleware.CurrentRole(c))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	message := "Q&A added"
	if qa.Status == model.StatusPending {
		message = "Q&A submitted for approval"
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}

type learnRequest struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// Learn 把一条会话记录沉淀为学习问答
func (h *QAHandler) Learn(c *gin.Context) {
	var req learnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	role := middleware.CurrentRole(c)
	err := h.svc.Approval.LearnFromChatLog(c.Request.Context(), req.QuestionID, req.Answer,
		middleware.CurrentUsername(c), role)
	if err != nil {
		h.learnError(c, err)
		return
	}

	message := "Question submitted for approval"
	if role == model.RoleAdmin {
		message = "Question learned and ingested"
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message})
}

// DiscardUnknown 丢弃一条未解答问题
func (h *QAHandler) DiscardUnknown(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Approval.DiscardUnknown(id); err != nil {
		h.learnError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Question discarded"})
}

// PendingQA 列出待审批的问答对
func (h *QAHandler) PendingQA(c *gin.Context) {
	page, limit, offset := getPagination(c)

	items, total, err := h.svc.Repo.QA.ListByStatus(model.StatusPending, offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "page": page, "limit": limit})
}

// ApproveQA 批准一条待审批问答并入库
func (h *QAHandler) ApproveQA(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Approval.ApproveQA(c.Request.Context(), id); err != nil {
		h.learnError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "QA approved and added to KB"})
}

// RejectQA 拒绝一条待审批问答
func (h *QAHandler) RejectQA(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Approval.RejectQA(id); err != nil {
		h.learnError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "QA rejected"})
}

// LearningRecords 学习台账，全量分页
func (h *QAHandler) LearningRecords(c *gin.Context) {
	_, limit, offset := getPagination(c)

	records, total, err := h.svc.Repo.QA.List(offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": total})
}

// ChatLogs 全量会话记录
func (h *QAHandler) ChatLogs(c *gin.Context) {
	page, limit, offset := getPagination(c)

	logs, total, err := h.svc.Repo.ChatLog.List(offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total, "page": page, "limit": limit})
}

// UnknownQuestions 未解答问题列表
func (h *QAHandler) UnknownQuestions(c *gin.Context) {
	page, limit, offset := getPagination(c)

	logs, total, err := h.svc.Repo.ChatLog.ListByStatus(model.ChatStatusUnknown, offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": total, "page": page, "limit": limit})
}

// learnError 学习类错误到 HTTP 状态码的映射
func (h *QAHandler) learnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		notFound(c, err.Error())
	case errors.Is(err, approval.ErrState):
		fail(c, http.StatusConflict, err.Error())
	default:
		serverError(c, err)
	}
}
