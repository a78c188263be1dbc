// Package approval 提供审批流程单元测试
package approval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/testutil"
)

// ========== 测试替身 ==========

// fakeIngestor 同时扮演入库器与语料库来源视图，入库与剔除直接改 sources
type fakeIngestor struct {
	sources map[string]bool

	ingestedFiles []string
	ingestedKBs   []string
	ingestedTexts []string
	textMetas     []model.JSON
	removed       []string

	failOn map[string]bool
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{sources: make(map[string]bool), failOn: make(map[string]bool)}
}

func (f *fakeIngestor) IngestFile(_ context.Context, path string, kbType string) (int, error) {
	if f.failOn[path] {
		return 0, errors.New("ingest failed")
	}
	f.ingestedFiles = append(f.ingestedFiles, path)
	f.ingestedKBs = append(f.ingestedKBs, kbType)
	f.sources[path] = true
	return 1, nil
}

func (f *fakeIngestor) IngestText(_ context.Context, content string, metadata model.JSON) (int, error) {
	source := metadata.GetString(model.MetaSource)
	if f.failOn[source] {
		return 0, errors.New("ingest failed")
	}
	f.ingestedTexts = append(f.ingestedTexts, content)
	f.textMetas = append(f.textMetas, metadata)
	f.sources[source] = true
	return 1, nil
}

func (f *fakeIngestor) RemoveSource(source string) (int64, error) {
	delete(f.sources, source)
	f.removed = append(f.removed, source)
	return 1, nil
}

func (f *fakeIngestor) DistinctSources(prefix string) ([]string, error) {
	var out []string
	for src := range f.sources {
		if strings.HasPrefix(src, prefix) {
			out = append(out, src)
		}
	}
	return out, nil
}

type fakeFileStore struct {
	nextID  int64
	records map[int64]*model.UploadedFile
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{nextID: 1, records: make(map[int64]*model.UploadedFile)}
}

func (f *fakeFileStore) Create(rec *model.UploadedFile) error {
	rec.ID = f.nextID
	f.nextID++
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeFileStore) GetByID(id int64) (*model.UploadedFile, error) {
	return f.records[id], nil
}

func (f *fakeFileStore) GetByPath(path string) (*model.UploadedFile, error) {
	for _, rec := range f.records {
		if rec.FilePath == path {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeFileStore) TransitionStatus(id int64, from, to string) (bool, error) {
	rec, ok := f.records[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	return true, nil
}

func (f *fakeFileStore) Delete(id int64) error {
	delete(f.records, id)
	return nil
}

func (f *fakeFileStore) DeleteByPath(path string) error {
	for id, rec := range f.records {
		if rec.FilePath == path {
			delete(f.records, id)
		}
	}
	return nil
}

type fakeQAStore struct {
	nextID  int64
	records map[int64]*model.LearnedQA
}

func newFakeQAStore() *fakeQAStore {
	return &fakeQAStore{nextID: 1, records: make(map[int64]*model.LearnedQA)}
}

func (f *fakeQAStore) Create(qa *model.LearnedQA) error {
	qa.ID = f.nextID
	f.nextID++
	f.records[qa.ID] = qa
	return nil
}

func (f *fakeQAStore) GetByID(id int64) (*model.LearnedQA, error) {
	return f.records[id], nil
}

func (f *fakeQAStore) TransitionStatus(id int64, from, to string) (bool, error) {
	qa, ok := f.records[id]
	if !ok || qa.Status != from {
		return false, nil
	}
	qa.Status = to
	return true, nil
}

type fakeChatLogStore struct {
	records map[int64]*model.ChatLog
}

func (f *fakeChatLogStore) GetByID(id int64) (*model.ChatLog, error) {
	return f.records[id], nil
}

func (f *fakeChatLogStore) UpdateStatus(id int64, status string) (bool, error) {
	rec, ok := f.records[id]
	if !ok {
		return false, nil
	}
	rec.Status = status
	return true, nil
}

type fixture struct {
	storage  *testutil.MemStorage
	files    *fakeFileStore
	qa       *fakeQAStore
	chatLogs *fakeChatLogStore
	ingestor *fakeIngestor
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		storage:  testutil.NewMemStorage(),
		files:    newFakeFileStore(),
		qa:       newFakeQAStore(),
		chatLogs: &fakeChatLogStore{records: make(map[int64]*model.ChatLog)},
		ingestor: newFakeIngestor(),
	}
	f.svc = NewService(f.storage, f.files, f.qa, f.chatLogs, f.ingestor, f.ingestor, "uploads", 100*1024*1024)
	return f
}

// ========== 上传建档测试 ==========

func TestCreateUpload_AdminDirectIngest(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.CreateUpload(context.Background(), &UploadRequest{
		Filename: "manual.txt",
		Reader:   strings.NewReader("磁盘处理手册"),
		Size:     18,
		Uploader: "admin",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUpload() error = %v", err)
	}

	if rec.Status != model.StatusApproved {
		t.Errorf("Status = %q, want approved", rec.Status)
	}
	if rec.FilePath != "uploads/manual.txt" {
		t.Errorf("FilePath = %q", rec.FilePath)
	}
	if len(f.ingestor.ingestedFiles) != 1 || f.ingestor.ingestedFiles[0] != "uploads/manual.txt" {
		t.Errorf("ingested = %v, want [uploads/manual.txt]", f.ingestor.ingestedFiles)
	}
	if f.ingestor.ingestedKBs[0] != model.KBTypeAdmin {
		t.Errorf("ingest kbType = %q, want admin", f.ingestor.ingestedKBs[0])
	}
}

func TestCreateUpload_AdminTargetKB(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateUpload(context.Background(), &UploadRequest{
		Filename: "faq.txt",
		Reader:   strings.NewReader("常见问题"),
		Size:     12,
		Uploader: "admin",
		Role:     model.RoleAdmin,
		TargetKB: model.KBTypeUser,
	})
	if err != nil {
		t.Fatalf("CreateUpload() error = %v", err)
	}
	if f.ingestor.ingestedKBs[0] != model.KBTypeUser {
		t.Errorf("ingest kbType = %q, want user", f.ingestor.ingestedKBs[0])
	}
}

func TestCreateUpload_UserPending(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.CreateUpload(context.Background(), &UploadRequest{
		Filename: "notes.txt",
		Reader:   strings.NewReader("用户笔记"),
		Size:     12,
		Uploader: "u1",
		Role:     model.RoleUser,
		TargetKB: model.KBTypeAdmin, // 普通用户无视目标分区
	})
	if err != nil {
		t.Fatalf("CreateUpload() error = %v", err)
	}

	if rec.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
	if rec.KBType != model.KBTypeUser {
		t.Errorf("KBType = %q, want user", rec.KBType)
	}
	if len(f.ingestor.ingestedFiles) != 0 {
		t.Errorf("pending upload should not ingest, got %v", f.ingestor.ingestedFiles)
	}
}

func TestCreateUpload_TooLarge(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateUpload(context.Background(), &UploadRequest{
		Filename: "huge.bin",
		Reader:   strings.NewReader("x"),
		Size:     200 * 1024 * 1024,
		Uploader: "u1",
		Role:     model.RoleUser,
	})
	if err == nil {
		t.Error("CreateUpload() should reject oversized file")
	}
}

// ========== 上传审批测试 ==========

func pendingUpload(t *testing.T, f *fixture, filename, content string) *model.UploadedFile {
	t.Helper()
	f.storage.Put("uploads/"+filename, content)
	rec := &model.UploadedFile{
		Filename: filename,
		FilePath: "uploads/" + filename,
		Uploader: "u1",
		KBType:   model.KBTypeUser,
		Status:   model.StatusPending,
	}
	if err := f.files.Create(rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return rec
}

func TestApproveUpload(t *testing.T) {
	f := newFixture()
	rec := pendingUpload(t, f, "doc.txt", "内容")

	if err := f.svc.ApproveUpload(context.Background(), rec.ID); err != nil {
		t.Fatalf("ApproveUpload() error = %v", err)
	}

	if rec.Status != model.StatusApproved {
		t.Errorf("Status = %q, want approved", rec.Status)
	}
	if len(f.ingestor.ingestedFiles) != 1 {
		t.Errorf("ingested %d files, want 1", len(f.ingestor.ingestedFiles))
	}
	if f.ingestor.ingestedKBs[0] != model.KBTypeUser {
		t.Errorf("ingest kbType = %q, want user", f.ingestor.ingestedKBs[0])
	}
}

// 入库失败时状态保持 pending，可重试
func TestApproveUpload_IngestFailureKeepsPending(t *testing.T) {
	f := newFixture()
	rec := pendingUpload(t, f, "bad.txt", "内容")
	f.ingestor.failOn["uploads/bad.txt"] = true

	err := f.svc.ApproveUpload(context.Background(), rec.ID)
	if err == nil {
		t.Fatal("ApproveUpload() should fail when ingestion fails")
	}
	if rec.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending after failed ingest", rec.Status)
	}

	// 修复后重试成功
	delete(f.ingestor.failOn, "uploads/bad.txt")
	if err := f.svc.ApproveUpload(context.Background(), rec.ID); err != nil {
		t.Fatalf("retry ApproveUpload() error = %v", err)
	}
	if rec.Status != model.StatusApproved {
		t.Errorf("Status = %q, want approved after retry", rec.Status)
	}
}

// 审批决定是终态，重复审批不会再次入库
func TestApproveUpload_Terminal(t *testing.T) {
	f := newFixture()
	rec := pendingUpload(t, f, "doc.txt", "内容")

	if err := f.svc.ApproveUpload(context.Background(), rec.ID); err != nil {
		t.Fatalf("ApproveUpload() error = %v", err)
	}
	ingested := len(f.ingestor.ingestedFiles)

	if err := f.svc.ApproveUpload(context.Background(), rec.ID); !errors.Is(err, ErrState) {
		t.Errorf("second ApproveUpload() error = %v, want ErrState", err)
	}
	if len(f.ingestor.ingestedFiles) != ingested {
		t.Error("second approval must not re-ingest")
	}
}

func TestApproveUpload_NotFound(t *testing.T) {
	f := newFixture()
	if err := f.svc.ApproveUpload(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("ApproveUpload() error = %v, want ErrNotFound", err)
	}
}

func TestRejectUpload(t *testing.T) {
	f := newFixture()
	rec := pendingUpload(t, f, "doc.txt", "内容")

	if err := f.svc.RejectUpload(rec.ID); err != nil {
		t.Fatalf("RejectUpload() error = %v", err)
	}
	if rec.Status != model.StatusRejected {
		t.Errorf("Status = %q, want rejected", rec.Status)
	}
	if len(f.ingestor.ingestedFiles) != 0 {
		t.Error("rejection must not touch the corpus")
	}

	// 已拒绝的记录不能再批准
	if err := f.svc.ApproveUpload(context.Background(), rec.ID); !errors.Is(err, ErrState) {
		t.Errorf("ApproveUpload() after reject error = %v, want ErrState", err)
	}
}

func TestRejectUpload_NotFound(t *testing.T) {
	f := newFixture()
	if err := f.svc.RejectUpload(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("RejectUpload() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.CreateUpload(context.Background(), &UploadRequest{
		Filename: "旧手册.docx",
		Reader:   strings.NewReader("内容"),
		Size:     6,
		Uploader: "admin",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUpload() error = %v", err)
	}

	deleted, err := f.svc.DeleteDocument(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if deleted.Filename != "旧手册.docx" {
		t.Errorf("Filename = %q, want 旧手册.docx", deleted.Filename)
	}
	if got, _ := f.files.GetByID(rec.ID); got != nil {
		t.Error("upload record should be gone")
	}
	if f.ingestor.sources[rec.FilePath] {
		t.Error("corpus chunks should be removed")
	}
	if _, err := f.storage.Size(context.Background(), rec.FilePath); err == nil {
		t.Error("stored file should be deleted")
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.DeleteDocument(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument() error = %v, want ErrNotFound", err)
	}
}

// ========== 问答录入与学习测试 ==========

func TestAddQA_Admin(t *testing.T) {
	f := newFixture()

	qa, err := f.svc.AddQA(context.Background(), " 如何扩容 ", " 提交工单 ", "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("AddQA() error = %v", err)
	}

	if qa.Status != model.StatusApproved {
		t.Errorf("Status = %q, want approved", qa.Status)
	}
	if qa.Question != "如何扩容" || qa.Answer != "提交工单" {
		t.Errorf("qa = {%q, %q}, want trimmed", qa.Question, qa.Answer)
	}
	if len(f.ingestor.ingestedTexts) != 1 {
		t.Fatalf("ingested %d texts, want 1", len(f.ingestor.ingestedTexts))
	}
	if f.ingestor.ingestedTexts[0] != "问题：如何扩容\n答案：提交工单" {
		t.Errorf("ingested content = %q", f.ingestor.ingestedTexts[0])
	}
	if got := f.ingestor.textMetas[0].GetString(model.MetaSource); got != model.SourceManualQA {
		t.Errorf("source = %q, want manual_qa", got)
	}
}

func TestAddQA_UserPending(t *testing.T) {
	f := newFixture()

	qa, err := f.svc.AddQA(context.Background(), "问题", "答案", "u1", model.RoleUser)
	if err != nil {
		t.Fatalf("AddQA() error = %v", err)
	}
	if qa.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", qa.Status)
	}
	if len(f.ingestor.ingestedTexts) != 0 {
		t.Error("pending qa must not ingest")
	}
}

func TestAddQA_Empty(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.AddQA(context.Background(), "  ", "答案", "u1", model.RoleUser); err == nil {
		t.Error("AddQA() should reject empty question")
	}
}

func TestLearnFromChatLog_Admin(t *testing.T) {
	f := newFixture()
	f.chatLogs.records[7] = &model.ChatLog{ID: 7, Question: "新故障怎么处理", Status: model.ChatStatusUnknown}

	if err := f.svc.LearnFromChatLog(context.Background(), 7, "按新预案处理", "admin", model.RoleAdmin); err != nil {
		t.Fatalf("LearnFromChatLog() error = %v", err)
	}

	if got := f.chatLogs.records[7].Status; got != model.ChatStatusLearned {
		t.Errorf("chat log status = %q, want learned", got)
	}
	if qa := f.qa.records[1]; qa.Status != model.StatusApproved || qa.Question != "新故障怎么处理" {
		t.Errorf("qa = %+v", qa)
	}
	if got := f.ingestor.textMetas[0].GetString(model.MetaSource); got != model.SourceLearnedQA {
		t.Errorf("source = %q, want learned_qa", got)
	}
}

func TestLearnFromChatLog_UserPending(t *testing.T) {
	f := newFixture()
	f.chatLogs.records[7] = &model.ChatLog{ID: 7, Question: "新故障", Status: model.ChatStatusUnknown}

	if err := f.svc.LearnFromChatLog(context.Background(), 7, "答案草稿", "u1", model.RoleUser); err != nil {
		t.Fatalf("LearnFromChatLog() error = %v", err)
	}

	if got := f.chatLogs.records[7].Status; got != model.ChatStatusPendingLearn {
		t.Errorf("chat log status = %q, want pending_learn", got)
	}
	if qa := f.qa.records[1]; qa.Status != model.StatusPending {
		t.Errorf("qa status = %q, want pending", qa.Status)
	}
	if len(f.ingestor.ingestedTexts) != 0 {
		t.Error("pending learn must not ingest")
	}
}

func TestLearnFromChatLog_NotFound(t *testing.T) {
	f := newFixture()
	err := f.svc.LearnFromChatLog(context.Background(), 404, "a", "admin", model.RoleAdmin)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LearnFromChatLog() error = %v, want ErrNotFound", err)
	}
}

// ========== 问答审批测试 ==========

func TestApproveQA_Terminal(t *testing.T) {
	f := newFixture()
	qa := &model.LearnedQA{Question: "q", Answer: "a", Username: "u1", Status: model.StatusPending}
	if err := f.qa.Create(qa); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.ApproveQA(context.Background(), qa.ID); err != nil {
		t.Fatalf("ApproveQA() error = %v", err)
	}
	if qa.Status != model.StatusApproved {
		t.Errorf("Status = %q, want approved", qa.Status)
	}
	if len(f.ingestor.ingestedTexts) != 1 {
		t.Fatalf("ingested %d texts, want 1", len(f.ingestor.ingestedTexts))
	}

	if err := f.svc.ApproveQA(context.Background(), qa.ID); !errors.Is(err, ErrState) {
		t.Errorf("second ApproveQA() error = %v, want ErrState", err)
	}
	if len(f.ingestor.ingestedTexts) != 1 {
		t.Error("second approval must not re-ingest")
	}
}

func TestRejectQA(t *testing.T) {
	f := newFixture()
	qa := &model.LearnedQA{Question: "q", Answer: "a", Status: model.StatusPending}
	if err := f.qa.Create(qa); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := f.svc.RejectQA(qa.ID); err != nil {
		t.Fatalf("RejectQA() error = %v", err)
	}
	if qa.Status != model.StatusRejected {
		t.Errorf("Status = %q, want rejected", qa.Status)
	}

	if err := f.svc.RejectQA(qa.ID); !errors.Is(err, ErrState) {
		t.Errorf("second RejectQA() error = %v, want ErrState", err)
	}
	if err := f.svc.RejectQA(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("RejectQA(404) error = %v, want ErrNotFound", err)
	}
}

// ========== 未知问题丢弃测试 ==========

func TestDiscardUnknown(t *testing.T) {
	f := newFixture()
	f.chatLogs.records[3] = &model.ChatLog{ID: 3, Question: "q", Status: model.ChatStatusUnknown}

	if err := f.svc.DiscardUnknown(3); err != nil {
		t.Fatalf("DiscardUnknown() error = %v", err)
	}
	if got := f.chatLogs.records[3].Status; got != model.ChatStatusDiscarded {
		t.Errorf("status = %q, want discarded", got)
	}

	if err := f.svc.DiscardUnknown(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("DiscardUnknown(404) error = %v, want ErrNotFound", err)
	}
}
