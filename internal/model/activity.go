package model

import "time"

// Activity 社团活动
// 表结构由其他系统维护，这里只负责建表
type Activity struct {
	BaseModel
	Title               string     `gorm:"type:varchar(255);not null" json:"title"`
	Description         string     `gorm:"type:text" json:"description"`
	ClubID              *uint      `gorm:"index" json:"clubId"`
	ClubName            string     `gorm:"type:varchar(255)" json:"clubName"` // 冗余的社团名称
	ActivityTime        *time.Time `json:"activityTime"`
	Location            string     `gorm:"type:varchar(255)" json:"location"`
	Organizer           string     `gorm:"type:varchar(100)" json:"organizer"`
	CurrentParticipants int        `gorm:"default:0" json:"currentParticipants"`
	MaxParticipants     int        `gorm:"default:50" json:"maxParticipants"`
	ActivityType        string     `gorm:"type:varchar(20)" json:"activityType"` // academic, sports, volunteer, art, workshop
	Status              string     `gorm:"type:varchar(20)" json:"status"`       // preparing, upcoming, ongoing, completed
	CoverImage          string     `gorm:"type:varchar(500)" json:"coverImage"`
}

// TableName 指定表名
func (Activity) TableName() string {
	return "activities"
}
