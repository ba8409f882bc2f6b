package model

import (
	"strings"
)

// Club 社团模型
type Club struct {
	BaseModel
	Name            string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`      // 社团名称，全局唯一
	Description     string  `gorm:"type:text" json:"description"`                            // 社团简介
	Category        string  `gorm:"type:varchar(50);index" json:"category"`                  // 类别
	EstablishedDate Date    `json:"establishedDate"`                                         // 成立日期
	CurrentMembers  int     `gorm:"default:0" json:"currentMembers"`                         // 当前成员数
	MaxMembers      int     `gorm:"default:100" json:"maxMembers"`                           // 成员上限
	President       string  `gorm:"type:varchar(100)" json:"president"`                      // 负责人
	Contact         string  `gorm:"type:varchar(255)" json:"contact"`                        // 联系方式
	Campus          *string `gorm:"type:varchar(100)" json:"campus"`                         // 校区，可为空
	Status          string  `gorm:"type:varchar(20);default:active;index" json:"status"`     // 状态：active, inactive, closed
	ActivitiesCount int     `gorm:"default:0" json:"activitiesCount"`                        // 活动数量
	LogoURL         string  `gorm:"type:varchar(500)" json:"logoUrl"`                        // Logo 访问地址
	WechatGroup     string  `gorm:"type:varchar(100)" json:"wechatGroup"`                    // 微信群
	QQGroup         string  `gorm:"column:qq_group;type:varchar(100)" json:"qqGroup"`        // QQ 群
	Tags            string  `gorm:"type:varchar(500)" json:"tags"`                           // 逗号分隔的标签
}

// TableName 指定表名
func (Club) TableName() string {
	return "clubs"
}

// IsActive 检查社团是否活跃
func (c *Club) IsActive() bool {
	return c.Status == StatusActive
}

// CampusValue 返回校区，未设置时为空串
func (c *Club) CampusValue() string {
	if c.Campus == nil {
		return ""
	}
	return *c.Campus
}

// SetCampus 设置校区，空串存为 NULL
func (c *Club) SetCampus(campus string) {
	if campus == "" {
		c.Campus = nil
		return
	}
	c.Campus = &campus
}

// TagList 拆分标签
func (c *Club) TagList() []string {
	if c.Tags == "" {
		return nil
	}
	return strings.Split(c.Tags, ",")
}

// JoinTags 将标签列表拼接为逗号分隔的字符串
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
