package service

import (
	"AskBot/backend/go/internal/models"
	"AskBot/backend/go/internal/qa_service/store"
	"AskBot/backend/go/pkg/logger"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	// MaxImportBytes 是单个导入文件的大小上限。
	MaxImportBytes = 20 << 20

	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// 表头别名，比较前会去掉首尾空白并转为小写。
var (
	questionHeaders = []string{"question", "câu hỏi"}
	answerHeaders   = []string{"answer", "trả lời"}
)

// Archiver 保存导入的原始文件。
type Archiver interface {
	Archive(ctx context.Context, objectName string, data []byte, contentType string) error
}

// Importer 把 xlsx 工作簿导入知识库。
type Importer struct {
	facts    store.FactStore
	archiver Archiver
	now      func() time.Time
	log      *logger.Logger
}

// NewImporter 创建 Importer。archiver 可以为 nil。
func NewImporter(facts store.FactStore, archiver Archiver) *Importer {
	return &Importer{
		facts:    facts,
		archiver: archiver,
		now:      time.Now,
		log:      logger.New("qa_service", "", ""),
	}
}

// ImportXLSX 读取第一个工作表，按表头找到问题列和答案列，逐行写入知识库。
// 结构错误（不是 xlsx、缺少列）返回 *ParseError；单行问题只计入统计。
func (im *Importer) ImportXLSX(ctx context.Context, r io.Reader) (store.BulkResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return store.BulkResult{}, &ParseError{Reason: "cannot read upload", Unreadable: true, Err: err}
	}
	if len(data) > MaxImportBytes {
		return store.BulkResult{}, &ParseError{Reason: fmt.Sprintf("file exceeds %d bytes", MaxImportBytes)}
	}
	if !isWorkbook(data) {
		return store.BulkResult{}, &ParseError{Reason: "file is not an xlsx workbook", Unreadable: true}
	}

	pairs, err := parseWorkbook(data)
	if err != nil {
		return store.BulkResult{}, err
	}
	im.archive(ctx, data)
	return store.BulkUpsert(ctx, im.facts, pairs)
}

// isWorkbook 接受 xlsx，以及被识别为普通 zip 的 xlsx（部分生成工具写出的条目顺序不同）。
func isWorkbook(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return true
		}
	}
	return false
}

func parseWorkbook(data []byte) ([]models.QAPair, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Reason: "cannot open workbook", Unreadable: true, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "workbook has no sheets", Unreadable: true}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: "cannot read first sheet", Unreadable: true, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Reason: "missing question/answer columns"}
	}

	qCol, aCol := findColumn(rows[0], questionHeaders), findColumn(rows[0], answerHeaders)
	if qCol < 0 || aCol < 0 {
		return nil, &ParseError{Reason: "missing question/answer columns"}
	}

	pairs := make([]models.QAPair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		pairs = append(pairs, models.QAPair{Question: cell(row, qCol), Answer: cell(row, aCol)})
	}
	return pairs, nil
}

// findColumn 返回第一个匹配任一别名的列，找不到时返回 -1。
func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, alias := range aliases {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

// cell 取一行中的单元格；GetRows 会省略行尾的空单元格。
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (im *Importer) archive(ctx context.Context, data []byte) {
	if im.archiver == nil {
		return
	}
	name := fmt.Sprintf("imports/%s-%s.xlsx", im.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	if err := im.archiver.Archive(ctx, name, data, xlsxMIME); err != nil {
		im.log.WithErr(err).WithPayload(map[string]interface{}{"object": name}).Warn("归档导入文件失败")
	}
}
