// Package spreadsheet 社团 Excel 导入导出
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidWorkbook 文件无法作为工作簿读取
var ErrInvalidWorkbook = errors.New("无效的 Excel 文件")

// FormulaMode 公式单元格的读取方式
type FormulaMode string

const (
	// FormulaRaw 返回公式原文（不含等号）
	FormulaRaw FormulaMode = "raw"
	// FormulaValue 返回缓存的计算结果，没有缓存时现场计算
	FormulaValue FormulaMode = "value"
)

// ParseFormulaMode 解析配置中的公式模式，空串视为 raw
func ParseFormulaMode(s string) (FormulaMode, error) {
	switch FormulaMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormulaRaw:
		return FormulaRaw, nil
	case FormulaValue:
		return FormulaValue, nil
	default:
		return "", fmt.Errorf("不支持的公式模式: %s", s)
	}
}

// CellKind 单元格类型
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
	CellBool
	CellFormula
)

// Cell 读取出的单元格
type Cell struct {
	Kind   CellKind
	Text   string    // 按类型提取的文本
	Number float64   // CellNumber、CellDate 的原始数值
	Time   time.Time // CellNumber、CellDate 对应的日期时间
}

// Codec Excel 编解码器
type Codec struct {
	formulaMode FormulaMode
}

// New 创建编解码器
func New(mode FormulaMode) *Codec {
	if mode == "" {
		mode = FormulaRaw
	}
	return &Codec{formulaMode: mode}
}

// ReadRows 读取第一个工作表的全部行（含表头）
func (c *Codec) ReadRows(r io.Reader) ([][]Cell, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: 没有工作表", ErrInvalidWorkbook)
	}
	sheet := sheets[0]

	texts, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表 %q 失败: %v", ErrInvalidWorkbook, sheet, err)
	}

	width := minColumns
	for _, row := range texts {
		if len(row) > width {
			width = len(row)
		}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	rows := make([][]Cell, 0, len(texts))
	for i := range texts {
		cells := make([]Cell, width)
		for col := 0; col < width; col++ {
			ref, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return nil, err
			}
			cell, err := c.readCell(f, sheet, ref, date1904)
			if err != nil {
				return nil, fmt.Errorf("%w: 读取单元格 %s 失败: %v", ErrInvalidWorkbook, ref, err)
			}
			cells[col] = cell
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// minColumns 至少读取的列数，覆盖导入与导出两种布局
const minColumns = 8

// readCell 提取单元格内容
// 文本去首尾空白；数值取整，日期格式的数值输出日期时间；布尔输出 true/false；
// 公式按 formulaMode 返回原文或计算值
func (c *Codec) readCell(f *excelize.File, sheet, ref string, date1904 bool) (Cell, error) {
	formula, err := f.GetCellFormula(sheet, ref)
	if err != nil {
		return Cell{}, err
	}
	if formula != "" {
		return c.readFormula(f, sheet, ref, formula)
	}

	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Cell{}, err
	}
	raw, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return Cell{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		b := raw == "1" || strings.EqualFold(raw, "true")
		return Cell{Kind: CellBool, Text: strconv.FormatBool(b)}, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return textCell(raw), nil
	case excelize.CellTypeDate:
		t, err := parseISODateTime(raw)
		if err != nil {
			return textCell(raw), nil
		}
		return Cell{Kind: CellDate, Text: formatDateTime(t), Time: t}, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if strings.TrimSpace(raw) == "" {
			return Cell{Kind: CellEmpty}, nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return textCell(raw), nil
		}
		t, _ := excelize.ExcelDateToTime(n, date1904)
		if isDateCell(f, sheet, ref) {
			return Cell{Kind: CellDate, Text: formatDateTime(t), Number: n, Time: t}, nil
		}
		return Cell{Kind: CellNumber, Text: strconv.FormatInt(int64(n), 10), Number: n, Time: t}, nil
	default:
		return Cell{Kind: CellEmpty}, nil
	}
}

func (c *Codec) readFormula(f *excelize.File, sheet, ref, formula string) (Cell, error) {
	if c.formulaMode != FormulaValue {
		return Cell{Kind: CellFormula, Text: formula}, nil
	}
	value, err := f.GetCellValue(sheet, ref)
	if err != nil {
		return Cell{}, err
	}
	if value == "" {
		// 没有缓存值（例如程序生成的文件）时现场计算
		if calc, err := f.CalcCellValue(sheet, ref); err == nil {
			value = calc
		}
	}
	return Cell{Kind: CellFormula, Text: strings.TrimSpace(value)}, nil
}

func textCell(raw string) Cell {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Kind: CellText, Text: text}
}

// formatDateTime 日期时间格式，秒为 0 时省略秒
func formatDateTime(t time.Time) string {
	if t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04")
	}
	return t.Format("2006-01-02T15:04:05")
}

func parseISODateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", s)
}

// isDateCell 判断单元格的数字格式是否为日期格式
func isDateCell(f *excelize.File, sheet, ref string) bool {
	idx, err := f.GetCellStyle(sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

// isBuiltInDateFormat 内置日期格式编号（含中日韩区域格式）
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode 去掉引号文本与方括号段后，格式中含 y/m/d/h/s 视为日期
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.ToLower(b.String())
	if strings.EqualFold(cleaned, "general") {
		return false
	}
	return strings.ContainsAny(cleaned, "ymdhs")
}

// workbookSheet 待写出的工作表
type workbookSheet struct {
	name       string
	header     []string
	boldHeader bool
	widths     []float64
	rows       [][]interface{}
}

// write 生成 xlsx 字节
func (s *workbookSheet) write() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(s.name)
	if err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("删除默认工作表失败: %w", err)
	}
	f.SetActiveSheet(index)

	header := make([]interface{}, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}

	if s.boldHeader && len(s.header) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("创建表头样式失败: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(s.header), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(s.name, "A1", last, style); err != nil {
			return nil, fmt.Errorf("设置表头样式失败: %w", err)
		}
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(s.name, cell, &values); err != nil {
			return nil, fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}
	}

	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(s.name, col, col, w); err != nil {
			return nil, fmt.Errorf("设置列宽失败: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("写出文件失败: %w", err)
	}
	return buf.Bytes(), nil
}
