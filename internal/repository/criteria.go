package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/pu-ac-cn/club-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidSortField 排序字段不在允许列表中
var ErrInvalidSortField = errors.New("不支持的排序字段")

// ClubCriteria 社团查询条件，各字段均可选
type ClubCriteria struct {
	Keyword    string     // 名称、负责人、简介模糊匹配（忽略大小写）
	Category   string     // 类别精确匹配
	Status     string     // 状态精确匹配
	StartDate  *time.Time // 成立日期下限（含）
	EndDate    *time.Time // 成立日期上限（含）
	MinMembers *int       // 当前成员数下限（含）
	MaxMembers *int       // 当前成员数上限（含）
	President  string     // 负责人模糊匹配（忽略大小写）
	OnlyActive bool       // 仅活跃社团
}

// Condition 单个查询条件
type Condition struct {
	Query string
	Args  []interface{}
}

// Conditions 按固定顺序生成条件列表，条件之间为 AND 关系
// 每个条件独立判断是否生效，值始终以参数方式传入
func (c *ClubCriteria) Conditions() []Condition {
	if c == nil {
		return nil
	}

	var conds []Condition

	if keyword := strings.TrimSpace(c.Keyword); keyword != "" {
		pattern := likePattern(keyword)
		conds = append(conds, Condition{
			Query: "(LOWER(name) LIKE ? OR LOWER(president) LIKE ? OR LOWER(description) LIKE ?)",
			Args:  []interface{}{pattern, pattern, pattern},
		})
	}

	if strings.TrimSpace(c.Category) != "" {
		conds = append(conds, Condition{Query: "category = ?", Args: []interface{}{c.Category}})
	}

	if strings.TrimSpace(c.Status) != "" {
		conds = append(conds, Condition{Query: "status = ?", Args: []interface{}{c.Status}})
	}

	if c.StartDate != nil {
		conds = append(conds, Condition{
			Query: "established_date >= ?",
			Args:  []interface{}{model.NewDate(*c.StartDate)},
		})
	}
	if c.EndDate != nil {
		conds = append(conds, Condition{
			Query: "established_date <= ?",
			Args:  []interface{}{model.NewDate(*c.EndDate)},
		})
	}

	if c.MinMembers != nil {
		conds = append(conds, Condition{Query: "current_members >= ?", Args: []interface{}{*c.MinMembers}})
	}
	if c.MaxMembers != nil {
		conds = append(conds, Condition{Query: "current_members <= ?", Args: []interface{}{*c.MaxMembers}})
	}

	if president := strings.TrimSpace(c.President); president != "" {
		conds = append(conds, Condition{Query: "LOWER(president) LIKE ?", Args: []interface{}{likePattern(president)}})
	}

	if c.OnlyActive {
		conds = append(conds, Condition{Query: "status = ?", Args: []interface{}{model.StatusActive}})
	}

	return conds
}

// Apply 将条件逐个追加到查询上
func (c *ClubCriteria) Apply(db *gorm.DB) *gorm.DB {
	for _, cond := range c.Conditions() {
		db = db.Where(cond.Query, cond.Args...)
	}
	return db
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

// Sort 排序参数
type Sort struct {
	Field string // 对外字段名，如 currentMembers
	Desc  bool
}

// sortableColumns 允许排序的字段及其列名
var sortableColumns = map[string]string{
	"id":              "id",
	"name":            "name",
	"category":        "category",
	"establishedDate": "established_date",
	"currentMembers":  "current_members",
	"maxMembers":      "max_members",
	"activitiesCount": "activities_count",
	"status":          "status",
	"campus":          "campus",
	"president":       "president",
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
}

// SortColumn 返回排序字段对应的列名
func SortColumn(field string) (string, bool) {
	col, ok := sortableColumns[field]
	return col, ok
}

// IsSortable 检查字段是否允许排序
func IsSortable(field string) bool {
	_, ok := sortableColumns[field]
	return ok
}

// orderBy 生成排序子句，追加 id 保证分页稳定
func (s Sort) orderBy() (clause.OrderBy, error) {
	col, ok := SortColumn(s.Field)
	if !ok {
		return clause.OrderBy{}, ErrInvalidSortField
	}
	columns := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: s.Desc}}
	if col != "id" {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return clause.OrderBy{Columns: columns}, nil
}
