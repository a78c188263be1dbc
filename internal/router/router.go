// Package router 定义 HTTP 路由
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/leiqy-max/zz-agent-out/internal/handler"
	"github.com/leiqy-max/zz-agent-out/internal/middleware"
	"github.com/leiqy-max/zz-agent-out/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 公开接口：登录前可达
	r.GET("/captcha", h.Auth.Captcha)
	r.POST("/token", h.Auth.Login)
	r.POST("/register", h.Auth.Register)
	r.POST("/guest-token", h.Auth.GuestToken)
	r.GET("/hot_questions", h.Answer.HotQuestions)

	// 登录后接口
	authed := r.Group("", middleware.RequireAuth(svc.Auth))
	{
		authed.POST("/get_answer", h.Answer.Ask)
		authed.POST("/feedback", h.Answer.Feedback)

		// 知识文档浏览
		docs := authed.Group("/documents")
		{
			docs.GET("/search", h.Document.Search)
			docs.GET("/hot", h.Document.Hot)
			docs.GET("/:id", h.Document.Download)
		}
		authed.GET("/download_source/:id", h.Document.DownloadSource)

		// 上传与学习：访客不可用
		registered := authed.Group("", middleware.RequireRegistered())
		{
			registered.POST("/upload_doc", h.Document.Upload)
			registered.POST("/admin/learn", h.QA.Learn)
			registered.POST("/admin/add_qa", h.QA.AddQA)
			registered.POST("/admin/discard_unknown/:id", h.QA.DiscardUnknown)
			registered.GET("/admin/chat_logs", h.QA.ChatLogs)
			registered.GET("/admin/unknown_questions", h.QA.UnknownQuestions)
			registered.GET("/admin/learning_records", h.QA.LearningRecords)
		}

		// 管理员接口
		admin := authed.Group("", middleware.RequireAdmin())
		{
			admin.GET("/pending_docs", h.Document.Pending)
			admin.POST("/approve_doc/:id", h.Document.Approve)
			admin.POST("/reject_doc/:id", h.Document.Reject)
			admin.GET("/download_doc/:id", h.Document.DownloadRaw)
			admin.DELETE("/documents/:id", h.Document.Delete)
			admin.POST("/reprocess_docs", h.Document.Reprocess)

			admin.POST("/admin/polish_answer", h.Answer.Polish)
			admin.GET("/admin/pending_qa", h.QA.PendingQA)
			admin.POST("/admin/approve_qa/:id", h.QA.ApproveQA)
			admin.POST("/admin/reject_qa/:id", h.QA.RejectQA)
		}
	}

	return r
}
