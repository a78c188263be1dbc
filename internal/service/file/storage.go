// Package file 提供上传文件的持久存储抽象。
// 语料库中的 source 就是这里的逻辑路径（如 uploads/手册.docx），
// 对账器以 List 的结果为权威集合。
package file

import (
	"context"
	"io"
)

// Storage 文件存储接口
type Storage interface {
	// Save 按逻辑路径保存文件，同名覆盖
	Save(ctx context.Context, path string, reader io.Reader, size int64) error
	// Open 读取文件内容
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete 删除文件
	Delete(ctx context.Context, path string) error
	// List 列出指定前缀下的全部逻辑路径
	List(ctx context.Context, prefix string) ([]string, error)
	// Size 返回文件大小，文件不存在时返回错误
	Size(ctx context.Context, path string) (int64, error)
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)
