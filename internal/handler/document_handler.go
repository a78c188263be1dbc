package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leiqy-max/zz-agent-out/internal/middleware"
	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/service"
	"github.com/leiqy-max/zz-agent-out/internal/service/approval"
)

// DocumentHandler 文档处理器
type DocumentHandler struct {
	svc *service.Services
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(svc *service.Services) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// uploadResult 单个文件的上传结果
type uploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Upload 上传一批文档。管理员直接入库，普通用户进入待审批队列。
// 单个文件失败不影响其余文件。
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		badRequest(c, "no files uploaded")
		return
	}

	targetKB := c.PostForm("target_kb")
	username := middleware.CurrentUsername(c)
	role := middleware.CurrentRole(c)

	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			results = append(results, uploadResult{Filename: fh.Filename, Status: "error", Message: err.Error()})
			continue
		}

		rec, err := h.svc.Approval.CreateUpload(c.Request.Context(), &approval.UploadRequest{
			Filename: fh.Filename,
			Reader:   src,
			Size:     fh.Size,
			Uploader: username,
			Role:     role,
			TargetKB: targetKB,
		})
		src.Close()

		switch {
		case err != nil:
			results = append(results, uploadResult{Filename: fh.Filename, Status: "error", Message: err.Error()})
		case rec.Status == model.StatusApproved:
			results = append(results, uploadResult{Filename: fh.Filename, Status: "success", Message: fmt.Sprintf("上传并入库成功 (%s 库)", rec.KBType)})
		default:
			results = append(results, uploadResult{Filename: fh.Filename, Status: "pending", Message: "上传成功，等待管理员审批"})
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Pending 列出待审批文档
func (h *DocumentHandler) Pending(c *gin.Context) {
	page, limit, offset := getPagination(c)

	docs, total, err := h.svc.Repo.File.ListByStatus(model.StatusPending, offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": docs, "total": total, "page": page, "limit": limit})
}

// Approve 批准待审批文档并入库
func (h *DocumentHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Approval.ApproveUpload(c.Request.Context(), id); err != nil {
		h.approvalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document approved and ingested"})
}

// Reject 拒绝待审批文档
func (h *DocumentHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Approval.RejectUpload(id); err != nil {
		h.approvalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document rejected"})
}

// approvalError 审批类错误到 HTTP 状态码的映射
func (h *DocumentHandler) approvalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		notFound(c, "document not found")
	case errors.Is(err, approval.ErrState):
		fail(c, http.StatusConflict, err.Error())
	default:
		serverError(c, err)
	}
}

// Search 按文件名搜索已批准文档
func (h *DocumentHandler) Search(c *gin.Context) {
	page, limit, offset := getPagination(c)

	docs, total, err := h.svc.Repo.File.SearchApproved(c.Query("q"), offset, limit)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": docs, "total": total, "page": page, "limit": limit})
}

// Hot 按下载量列出已批准文档
func (h *DocumentHandler) Hot(c *gin.Context) {
	docs, err := h.svc.Repo.File.HotDocuments(10)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": docs})
}

// Download 下载已批准文档并累计下载量，preview=true 时内联展示
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Repo.File.GetByID(id)
	if err != nil {
		serverError(c, err)
		return
	}
	if rec == nil || rec.Status != model.StatusApproved {
		notFound(c, "document not found or not approved")
		return
	}

	if err := h.svc.Repo.File.IncrementDownloadCount(id); err != nil {
		serverError(c, err)
		return
	}
	h.serveFile(c, rec.FilePath, rec.Filename, c.Query("preview") == "true")
}

// DownloadRaw 管理员下载任意状态的文档原件，审批时预览用
func (h *DocumentHandler) DownloadRaw(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Repo.File.GetByID(id)
	if err != nil {
		serverError(c, err)
		return
	}
	if rec == nil {
		notFound(c, "document not found")
		return
	}
	h.serveFile(c, rec.FilePath, rec.Filename, false)
}

// DownloadSource 按语料分块 ID 下载它引用的原始文档
func (h *DocumentHandler) DownloadSource(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	chunk, err := h.svc.Repo.Corpus.GetChunkByID(id)
	if err != nil {
		notFound(c, "document not found")
		return
	}

	source := chunk.Metadata.GetString(model.MetaSource)
	if source == "" {
		notFound(c, "chunk has no source file")
		return
	}
	filename := chunk.Metadata.GetString(model.MetaFilename)
	if filename == "" {
		filename = path.Base(source)
	}
	h.serveFile(c, source, filename, false)
}

// Delete 删除文档：记录、语料与文件一并清除
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.svc.Approval.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		h.approvalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Document '%s' deleted from database and knowledge base.", rec.Filename),
	})
}

// Reprocess 以存储目录为准对齐语料库，force=true 时全量重新入库
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	result, err := h.svc.Approval.Reconcile(c.Request.Context(), c.Query("force") == "true")
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// serveFile 从存储读出文件并流式返回
func (h *DocumentHandler) serveFile(c *gin.Context, filePath, filename string, preview bool) {
	size, err := h.svc.Storage.Size(c.Request.Context(), filePath)
	if err != nil {
		notFound(c, "file not found in storage")
		return
	}
	reader, err := h.svc.Storage.Open(c.Request.Context(), filePath)
	if err != nil {
		notFound(c, "file not found in storage")
		return
	}
	defer reader.Close()

	disposition := "attachment"
	if preview {
		disposition = "inline"
	}
	c.DataFromReader(http.StatusOK, size, contentTypeFor(filename, preview), reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`%s; filename="%s"`, disposition, filename),
	})
}

// contentTypeFor 预览时按扩展名给出媒体类型，下载一律二进制流
func contentTypeFor(filename string, preview bool) string {
	if !preview {
		return "application/octet-stream"
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
