// Package ingest 实现入库管线：格式抽取、分块、向量化、写入语料库。
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/xuri/excelize/v2"
)

// 格式抽取的哨兵错误
var (
	// ErrUnsupportedFormat 内容无法按文本解码且无专用解析器
	ErrUnsupportedFormat = errors.New("ingest: unsupported file format")
	// ErrEmptyContent 抽取结果为空或全空白，该来源跳过入库
	ErrEmptyContent = errors.New("ingest: empty content")
)

// ExtractText 按扩展名从文件内容抽取纯文本。
// 表格逐 sheet 展平成文本表示；word 文档按段落展平；
// 其余内容按 UTF-8 文本读取，解码失败视为不支持的格式。
func ExtractText(ctx context.Context, filename string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		content string
		err     error
	)
	switch ext {
	case ".docx":
		content, err = extractDocx(ctx, reader)
	case ".xlsx", ".xls":
		content, err = extractExcel(reader)
	case ".csv":
		content, err = extractCSV(reader)
	default:
		content, err = extractPlainText(reader)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyContent, filename)
	}
	return content, nil
}

// extractPlainText 按原样读取文本（txt/md 及其他可解码内容）
func extractPlainText(reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid text", ErrUnsupportedFormat)
	}
	return string(data), nil
}

// extractDocx 把 word 文档展平为按换行连接的段落文本
func extractDocx(ctx context.Context, reader io.Reader) (string, error) {
	parser, err := docx.NewDocxParser(ctx, &docx.Config{
		ToSections:      false,
		IncludeComments: false,
		IncludeHeaders:  true,
		IncludeFooters:  false,
		IncludeTables:   true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	docs, err := parser.Parse(ctx, reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n"), nil
}

// extractExcel 逐 sheet 展平为文本表格
func extractExcel(reader io.Reader) (string, error) {
	x, err := excelize.OpenReader(reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer x.Close()

	var sb strings.Builder
	for i, sheet := range x.GetSheetList() {
		rows, err := x.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractCSV 展平为制表符分隔的文本表格
func extractCSV(reader io.Reader) (string, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	var sb strings.Builder
	for _, record := range records {
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
