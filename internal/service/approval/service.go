// Package approval 实现知识库的增改审批：文件上传审批、问答学习审批与语料对账。
package approval

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/service/file"
)

// Ingestor 审批通过后写语料库的能力
type Ingestor interface {
	IngestFile(ctx context.Context, path string, kbType string) (int, error)
	IngestText(ctx context.Context, content string, metadata model.JSON) (int, error)
	RemoveSource(source string) (int64, error)
}

// FileStore 上传记录访问能力
type FileStore interface {
	Create(f *model.UploadedFile) error
	GetByID(id int64) (*model.UploadedFile, error)
	GetByPath(path string) (*model.UploadedFile, error)
	TransitionStatus(id int64, from, to string) (bool, error)
	Delete(id int64) error
	DeleteByPath(path string) error
}

// QAStore 问答记录访问能力
type QAStore interface {
	Create(qa *model.LearnedQA) error
	GetByID(id int64) (*model.LearnedQA, error)
	TransitionStatus(id int64, from, to string) (bool, error)
}

// ChatLogStore 会话记录访问能力
type ChatLogStore interface {
	GetByID(id int64) (*model.ChatLog, error)
	UpdateStatus(id int64, status string) (bool, error)
}

// CorpusSources 语料库来源查询能力，对账用
type CorpusSources interface {
	DistinctSources(prefix string) ([]string, error)
}

// Service 审批服务
type Service struct {
	storage       file.Storage
	files         FileStore
	qa            QAStore
	chatLogs      ChatLogStore
	corpus        CorpusSources
	ingestor      Ingestor
	uploadDir     string
	maxUploadSize int64
}

// NewService 创建审批服务
func NewService(storage file.Storage, files FileStore, qa QAStore, chatLogs ChatLogStore, corpus CorpusSources, ingestor Ingestor, uploadDir string, maxUploadSize int64) *Service {
	return &Service{
		storage:       storage,
		files:         files,
		qa:            qa,
		chatLogs:      chatLogs,
		corpus:        corpus,
		ingestor:      ingestor,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
	}
}

// UploadRequest 一次文件上传
type UploadRequest struct {
	Filename string
	Reader   io.Reader
	Size     int64
	Uploader string
	Role     string
	TargetKB string // 管理员可指定目标分区，默认 admin
}

// CreateUpload 保存上传文件并建档。
// 管理员上传直接批准并立即入库；普通用户上传挂起等待审批，不入库。
func (s *Service) CreateUpload(ctx context.Context, req *UploadRequest) (*model.UploadedFile, error) {
	if s.maxUploadSize > 0 && req.Size > s.maxUploadSize {
		return nil, fmt.Errorf("文件大小超过%dMB限制", s.maxUploadSize/(1024*1024))
	}

	isAdmin := req.Role == model.RoleAdmin
	kbType := model.KBTypeUser
	if isAdmin {
		kbType = req.TargetKB
		if kbType == "" {
			kbType = model.KBTypeAdmin
		}
	}
	status := model.StatusPending
	if isAdmin {
		status = model.StatusApproved
	}

	filePath := path.Join(s.uploadDir, req.Filename)
	if err := s.storage.Save(ctx, filePath, req.Reader, req.Size); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", req.Filename, err)
	}

	record := &model.UploadedFile{
		Filename: req.Filename,
		FilePath: filePath,
		Uploader: req.Uploader,
		KBType:   kbType,
		Status:   status,
		FileSize: req.Size,
	}
	if err := s.files.Create(record); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	if isAdmin {
		if _, err := s.ingestor.IngestFile(ctx, filePath, kbType); err != nil {
			return record, fmt.Errorf("upload saved but ingestion failed: %w", err)
		}
	}
	return record, nil
}

// ApproveUpload 批准一个挂起的上传：先入库，成功后才翻状态。
// 入库失败时记录保持 pending，可重试；已终态的记录返回 ErrState。
func (s *Service) ApproveUpload(ctx context.Context, id int64) error {
	record, err := s.files.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to load upload %d: %w", id, err)
	}
	if record == nil {
		return ErrNotFound
	}
	if record.Status != model.StatusPending {
		return fmt.Errorf("%w: upload %d is %s", ErrState, id, record.Status)
	}

	// 用户上传审批通过后进 user 分区
	if _, err := s.ingestor.IngestFile(ctx, record.FilePath, model.KBTypeUser); err != nil {
		return fmt.Errorf("ingestion failed for %s: %w", record.FilePath, err)
	}

	ok, err := s.files.TransitionStatus(id, model.StatusPending, model.StatusApproved)
	if err != nil {
		return fmt.Errorf("failed to approve upload %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: upload %d changed state during approval", ErrState, id)
	}
	return nil
}

// DeleteDocument 删除文档：上传记录、同源语料分块与存储文件一并清除。
// 语料或文件清理失败只记日志，记录本身已删，对账器会兜底收敛。
func (s *Service) DeleteDocument(ctx context.Context, id int64) (*model.UploadedFile, error) {
	record, err := s.files.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload %d: %w", id, err)
	}
	if record == nil {
		return nil, ErrNotFound
	}

	if err := s.files.Delete(id); err != nil {
		return nil, fmt.Errorf("failed to delete upload %d: %w", id, err)
	}
	if _, err := s.ingestor.RemoveSource(record.FilePath); err != nil {
		log.Printf("[approval] failed to remove chunks for %s: %v", record.FilePath, err)
	}
	if err := s.storage.Delete(ctx, record.FilePath); err != nil {
		log.Printf("[approval] failed to delete file %s: %v", record.FilePath, err)
	}
	return record, nil
}

// RejectUpload 拒绝一个挂起的上传，不触碰语料库
func (s *Service) RejectUpload(id int64) error {
	ok, err := s.files.TransitionStatus(id, model.StatusPending, model.StatusRejected)
	if err != nil {
		return fmt.Errorf("failed to reject upload %d: %w", id, err)
	}
	if ok {
		return nil
	}

	record, err := s.files.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrNotFound
	}
	return fmt.Errorf("%w: upload %d is %s", ErrState, id, record.Status)
}

// AddQA 人工录入问答对。管理员直接批准并入库，普通用户挂起待审批。
func (s *Service) AddQA(ctx context.Context, question, answer, username, role string) (*model.LearnedQA, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer cannot be empty")
	}

	isAdmin := role == model.RoleAdmin
	status := model.StatusPending
	if isAdmin {
		status = model.StatusApproved
	}

	qa := &model.LearnedQA{
		Question: question,
		Answer:   answer,
		Username: username,
		Status:   status,
	}
	if err := s.qa.Create(qa); err != nil {
		return nil, fmt.Errorf("failed to create qa: %w", err)
	}

	if isAdmin {
		if err := s.ingestQA(ctx, question, answer, username, model.SourceManualQA); err != nil {
			log.Printf("[approval] manual qa ingestion failed: %v", err)
		}
	}
	return qa, nil
}

// LearnFromChatLog 把一条会话沉淀为学习答案。
// 管理员直接生效并入库；普通用户提交待审批，会话转挂起状态后不再出现在未知列表。
func (s *Service) LearnFromChatLog(ctx context.Context, chatLogID int64, answer, username, role string) error {
	chatLog, err := s.chatLogs.GetByID(chatLogID)
	if err != nil {
		return fmt.Errorf("failed to load chat log %d: %w", chatLogID, err)
	}
	if chatLog == nil {
		return ErrNotFound
	}

	isAdmin := role == model.RoleAdmin
	chatStatus := model.ChatStatusPendingLearn
	qaStatus := model.StatusPending
	if isAdmin {
		chatStatus = model.ChatStatusLearned
		qaStatus = model.StatusApproved
	}

	if _, err := s.chatLogs.UpdateStatus(chatLogID, chatStatus); err != nil {
		return fmt.Errorf("failed to update chat log %d: %w", chatLogID, err)
	}
	qa := &model.LearnedQA{
		Question: chatLog.Question,
		Answer:   answer,
		Username: username,
		Status:   qaStatus,
	}
	if err := s.qa.Create(qa); err != nil {
		return fmt.Errorf("failed to create learned qa: %w", err)
	}

	if isAdmin {
		if err := s.ingestQA(ctx, chatLog.Question, answer, username, model.SourceLearnedQA); err != nil {
			log.Printf("[approval] learned qa ingestion failed: %v", err)
		}
	}
	return nil
}

// ApproveQA 批准一条挂起的问答：先入库，成功后才翻状态
func (s *Service) ApproveQA(ctx context.Context, id int64) error {
	qa, err := s.qa.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to load qa %d: %w", id, err)
	}
	if qa == nil {
		return ErrNotFound
	}
	if qa.Status != model.StatusPending {
		return fmt.Errorf("%w: qa %d is %s", ErrState, id, qa.Status)
	}

	if err := s.ingestQA(ctx, qa.Question, qa.Answer, qa.Username, model.SourceLearnedQA); err != nil {
		return fmt.Errorf("ingestion failed for qa %d: %w", id, err)
	}

	ok, err := s.qa.TransitionStatus(id, model.StatusPending, model.StatusApproved)
	if err != nil {
		return fmt.Errorf("failed to approve qa %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: qa %d changed state during approval", ErrState, id)
	}
	return nil
}

// RejectQA 拒绝一条挂起的问答
func (s *Service) RejectQA(id int64) error {
	ok, err := s.qa.TransitionStatus(id, model.StatusPending, model.StatusRejected)
	if err != nil {
		return fmt.Errorf("failed to reject qa %d: %w", id, err)
	}
	if ok {
		return nil
	}

	qa, err := s.qa.GetByID(id)
	if err != nil {
		return err
	}
	if qa == nil {
		return ErrNotFound
	}
	return fmt.Errorf("%w: qa %d is %s", ErrState, id, qa.Status)
}

// DiscardUnknown 丢弃一条未知问题，不再参与学习
func (s *Service) DiscardUnknown(id int64) error {
	ok, err := s.chatLogs.UpdateStatus(id, model.ChatStatusDiscarded)
	if err != nil {
		return fmt.Errorf("failed to discard chat log %d: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ingestQA 问答对拼成一段文本追加入库，问与答同块便于整体召回。
// 元数据不带 kb_type：学习问答对所有分区可见；
// 不带 filename：召回时参与生成但不列入出处。
func (s *Service) ingestQA(ctx context.Context, question, answer, username, source string) error {
	content := fmt.Sprintf("问题：%s\n答案：%s", question, answer)
	metadata := model.JSON{
		model.MetaSource: source,
		"question":       question,
		"added_by":       username,
	}
	_, err := s.ingestor.IngestText(ctx, content, metadata)
	return err
}
