// Package ingest 提供入库管线单元测试
package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ========== 纯文本抽取测试 ==========

func TestExtractText_Txt(t *testing.T) {
	content := "磁盘告警处理手册\n处理步骤\n1. 登录告警主机"
	got, err := ExtractText(context.Background(), "manual.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != content {
		t.Errorf("ExtractText() = %q, want %q", got, content)
	}
}

func TestExtractText_Markdown(t *testing.T) {
	content := "# 值班手册\n\n内容"
	got, err := ExtractText(context.Background(), "runbook.md", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != content {
		t.Errorf("ExtractText() = %q, want %q", got, content)
	}
}

// 没有专用解析器的扩展名，内容可按 UTF-8 解码时按文本处理
func TestExtractText_UnknownExtensionValidText(t *testing.T) {
	got, err := ExtractText(context.Background(), "notes.log", strings.NewReader("some log line"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "some log line" {
		t.Errorf("ExtractText() = %q", got)
	}
}

func TestExtractText_BinaryContent(t *testing.T) {
	binary := []byte{0xff, 0xfe, 0x00, 0x80, 0x01}
	_, err := ExtractText(context.Background(), "dump.bin", bytes.NewReader(binary))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ExtractText() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractText_EmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(context.Background(), "empty.txt", strings.NewReader(tt.content))
			if !errors.Is(err, ErrEmptyContent) {
				t.Errorf("ExtractText() error = %v, want ErrEmptyContent", err)
			}
		})
	}
}

// ========== CSV 抽取测试 ==========

func TestExtractText_CSV(t *testing.T) {
	csvContent := "告警名称,级别\n磁盘使用率过高,P2\nCPU 负载过高,P3\n"
	got, err := ExtractText(context.Background(), "alerts.csv", strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	want := "告警名称\t级别\n磁盘使用率过高\tP2\nCPU 负载过高\tP3\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_CSVRaggedRows(t *testing.T) {
	csvContent := "a,b,c\nd,e\n"
	got, err := ExtractText(context.Background(), "ragged.csv", strings.NewReader(csvContent))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(got, "d\te") {
		t.Errorf("ExtractText() = %q, want ragged row preserved", got)
	}
}

// ========== Excel 抽取测试 ==========

func TestExtractText_Xlsx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "告警清单"); err != nil {
		t.Fatalf("SetSheetName() error = %v", err)
	}
	_ = f.SetCellValue("告警清单", "A1", "告警名称")
	_ = f.SetCellValue("告警清单", "B1", "处理人")
	_ = f.SetCellValue("告警清单", "A2", "磁盘使用率过高")
	_ = f.SetCellValue("告警清单", "B2", "张三")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := ExtractText(context.Background(), "alerts.xlsx", &buf)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	if !strings.Contains(got, "Sheet: 告警清单") {
		t.Errorf("ExtractText() = %q, want sheet header", got)
	}
	if !strings.Contains(got, "告警名称\t处理人") {
		t.Errorf("ExtractText() = %q, want tab-joined row", got)
	}
	if !strings.Contains(got, "磁盘使用率过高\t张三") {
		t.Errorf("ExtractText() = %q, want data row", got)
	}
}

func TestExtractText_XlsxInvalid(t *testing.T) {
	_, err := ExtractText(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ExtractText() error = %v, want ErrUnsupportedFormat", err)
	}
}

// ========== 分块测试 ==========

func TestSplitText_ShortText(t *testing.T) {
	chunks, err := SplitText(context.Background(), "一段不足分块大小的短文本", 500, 100)
	if err != nil {
		t.Fatalf("SplitText() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("SplitText() returned %d chunks, want 1", len(chunks))
	}
}

func TestSplitText_LongText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("告警说明\n主机磁盘使用率超过阈值，需要尽快清理或扩容，否则可能影响业务写入。\n")
		sb.WriteString("处理步骤\n1. 登录告警主机检查磁盘占用\n2. 清理过期日志\n3. 无法释放时申请扩容\n")
	}

	chunks, err := SplitText(context.Background(), sb.String(), 500, 100)
	if err != nil {
		t.Fatalf("SplitText() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("SplitText() returned %d chunks, want multiple", len(chunks))
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}
