package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pu-ac-cn/club-backend/internal/model"
)

const (
	// ExportSheet 导出工作表名
	ExportSheet = "社团列表"
	// TemplateSheet 模板工作表名
	TemplateSheet = "模板"
)

// ExportHeader 导出表头
var ExportHeader = []string{"社团名称", "类别", "负责人", "当前成员数", "成立日期", "状态", "校区", "联系方式"}

// TemplateHeader 导入模板表头
var TemplateHeader = []string{"社团名称*", "类别", "描述", "负责人*", "联系方式", "校区", "成立日期(YYYY-MM-DD)"}

var templateExample = []interface{}{"计算机协会", "academic", "致力于计算机技术学习与交流", "张三", "computer@example.com", "校本部", "2020-09-01"}

// 导入默认值
const (
	defaultMaxMembers = 100
)

// ErrEmptyName 行中缺少社团名称
var ErrEmptyName = errors.New("社团名称不能为空")

// ClubRow 导入的一行，Err 非空时 Club 为 nil
type ClubRow struct {
	Line int // Excel 行号，从 1 开始
	Club *model.Club
	Err  error
}

// columnLayout 各字段所在列，-1 表示该布局没有此列
type columnLayout struct {
	name, category, description, president, contact, campus, date int
}

// 模板布局按位置读取
var templateLayout = columnLayout{name: 0, category: 1, description: 2, president: 3, contact: 4, campus: 5, date: 6}

// 导出布局，成员数与状态列在导入时忽略
var exportLayout = columnLayout{name: 0, category: 1, description: -1, president: 2, contact: 7, campus: 6, date: 4}

// detectLayout 表头与导出表头一致时按导出布局读取，否则按模板位置读取
func detectLayout(header []Cell) columnLayout {
	if len(header) < len(ExportHeader) {
		return templateLayout
	}
	for i, h := range ExportHeader {
		if header[i].Text != h {
			return templateLayout
		}
	}
	return exportLayout
}

// DecodeClubs 解析导入文件，跳过表头行与空行
// 文件级错误直接返回；单行错误记录在 ClubRow.Err 中
func (c *Codec) DecodeClubs(r io.Reader) ([]ClubRow, error) {
	rows, err := c.ReadRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	layout := detectLayout(rows[0])
	now := time.Now()

	result := make([]ClubRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if isBlankRow(cells) {
			continue
		}
		line := i + 2
		club, err := decodeClub(cells, layout, now)
		if err != nil {
			result = append(result, ClubRow{Line: line, Err: fmt.Errorf("第 %d 行: %w", line, err)})
			continue
		}
		result = append(result, ClubRow{Line: line, Club: club})
	}
	return result, nil
}

func decodeClub(cells []Cell, layout columnLayout, now time.Time) (*model.Club, error) {
	name := cellText(cells, layout.name)
	if name == "" {
		return nil, ErrEmptyName
	}

	established, err := cellDate(cells, layout.date)
	if err != nil {
		return nil, err
	}

	club := &model.Club{
		Name:            name,
		Category:        cellText(cells, layout.category),
		Description:     cellText(cells, layout.description),
		President:       cellText(cells, layout.president),
		Contact:         cellText(cells, layout.contact),
		EstablishedDate: established,
		CurrentMembers:  0,
		MaxMembers:      defaultMaxMembers,
		Status:          model.StatusActive,
		ActivitiesCount: 0,
	}
	club.SetCampus(cellText(cells, layout.campus))
	club.CreatedAt = now
	club.UpdatedAt = now
	return club, nil
}

func cellText(cells []Cell, col int) string {
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col].Text
}

// cellDate 数值单元格按序列号换算，文本按 YYYY-MM-DD 解析，空单元格视为无日期
func cellDate(cells []Cell, col int) (model.Date, error) {
	if col < 0 || col >= len(cells) {
		return model.Date{}, nil
	}
	cell := cells[col]
	switch cell.Kind {
	case CellEmpty:
		return model.Date{}, nil
	case CellDate, CellNumber:
		return model.NewDate(cell.Time), nil
	default:
		d, err := model.ParseDate(cell.Text)
		if err != nil {
			return model.Date{}, fmt.Errorf("成立日期格式错误 %q，应为 YYYY-MM-DD", cell.Text)
		}
		return d, nil
	}
}

func isBlankRow(cells []Cell) bool {
	for _, cell := range cells {
		if cell.Kind != CellEmpty {
			return false
		}
	}
	return true
}

// EncodeClubs 生成导出文件
func (c *Codec) EncodeClubs(clubs []*model.Club) ([]byte, error) {
	rows := make([][]interface{}, 0, len(clubs))
	for _, club := range clubs {
		rows = append(rows, []interface{}{
			club.Name,
			club.Category,
			club.President,
			club.CurrentMembers,
			club.EstablishedDate.String(),
			club.Status,
			club.CampusValue(),
			club.Contact,
		})
	}

	sheet := &workbookSheet{
		name:       ExportSheet,
		header:     ExportHeader,
		boldHeader: true,
		widths:     []float64{24, 12, 14, 12, 14, 10, 14, 28},
		rows:       rows,
	}
	return sheet.write()
}

// ImportTemplate 生成导入模板，含一行示例数据
func (c *Codec) ImportTemplate() ([]byte, error) {
	sheet := &workbookSheet{
		name:   TemplateSheet,
		header: TemplateHeader,
		widths: []float64{20, 12, 30, 14, 26, 12, 22},
		rows:   [][]interface{}{templateExample},
	}
	return sheet.write()
}
