package approval

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// ReconcileResult 一次对账的汇总
type ReconcileResult struct {
	Processed int      `json:"processed"`
	Deleted   int      `json:"deleted"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
	Message   string   `json:"message"`
}

// Reconcile 以存储目录为权威集合对齐语料库。
// 磁盘有而语料库没有的文件入库；语料库有而磁盘没有的来源连同上传记录一并剔除；
// force 为真时磁盘上的所有文件重新入库。重复执行收敛到同一结果。
func (s *Service) Reconcile(ctx context.Context, force bool) (*ReconcileResult, error) {
	prefix := s.uploadDir + "/"

	diskFiles, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.uploadDir, err)
	}
	indexed, err := s.corpus.DistinctSources(prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed sources: %w", err)
	}

	onDisk := make(map[string]bool, len(diskFiles))
	for _, p := range diskFiles {
		onDisk[p] = true
	}
	inCorpus := make(map[string]bool, len(indexed))
	for _, src := range indexed {
		inCorpus[src] = true
	}

	result := &ReconcileResult{Errors: []string{}}

	// 剔除：语料库里有但磁盘上已不存在的来源
	var stale []string
	for _, src := range indexed {
		if !onDisk[src] {
			stale = append(stale, src)
		}
	}
	sort.Strings(stale)
	for _, src := range stale {
		if _, err := s.ingestor.RemoveSource(src); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path.Base(src), err))
			continue
		}
		if err := s.files.DeleteByPath(src); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path.Base(src), err))
			continue
		}
		result.Deleted++
	}

	// 新增：磁盘上有但语料库里没有的文件；force 时全量重入
	var toProcess []string
	for _, p := range diskFiles {
		if force || !inCorpus[p] {
			toProcess = append(toProcess, p)
		} else {
			result.Skipped++
		}
	}
	sort.Strings(toProcess)
	for _, filePath := range toProcess {
		if err := s.reconcileFile(ctx, filePath); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path.Base(filePath), err))
			continue
		}
		result.Processed++
	}

	result.Message = fmt.Sprintf("已同步：新增 %d 个，剔除 %d 个", result.Processed, result.Deleted)
	if result.Skipped > 0 {
		result.Message += fmt.Sprintf("，跳过 %d 个现有文件", result.Skipped)
	}
	if len(result.Errors) > 0 {
		result.Message += fmt.Sprintf(" (有 %d 个错误)", len(result.Errors))
	}
	log.Printf("[approval] reconcile done: %s", result.Message)
	return result, nil
}

// ScanUploader 对账补建记录的归属者标记
const ScanUploader = "system_scan"

// reconcileFile 入库单个文件并补齐上传记录
func (s *Service) reconcileFile(ctx context.Context, filePath string) error {
	// 对账扫描默认进 user 分区
	if _, err := s.ingestor.IngestFile(ctx, filePath, model.KBTypeUser); err != nil {
		return err
	}

	record, err := s.files.GetByPath(filePath)
	if err != nil {
		return err
	}
	if record != nil {
		return nil
	}

	size, err := s.storage.Size(ctx, filePath)
	if err != nil {
		size = 0
	}
	return s.files.Create(&model.UploadedFile{
		Filename: path.Base(filePath),
		FilePath: filePath,
		Uploader: ScanUploader,
		KBType:   model.KBTypeUser,
		Status:   model.StatusApproved,
		FileSize: size,
	})
}
