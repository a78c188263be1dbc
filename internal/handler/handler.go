// Package handler 提供 HTTP 接入层，只做参数解析与响应编排，业务都在 service。
package handler

import (
	"github.com/leiqy-max/zz-agent-out/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth     *AuthHandler
	Answer   *AnswerHandler
	Document *DocumentHandler
	QA       *QAHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:     NewAuthHandler(svc),
		Answer:   NewAnswerHandler(svc),
		Document: NewDocumentHandler(svc),
		QA:       NewQAHandler(svc),
	}
}
