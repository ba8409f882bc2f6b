// Package model 定义数据模型
package model

import (
	"time"
)

// BaseModel 基础模型，包含自增主键与时间戳
// CreatedAt/UpdatedAt 由 gorm 在插入、更新时自动维护
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// 社团状态常量
const (
	StatusActive   = "active"   // 活跃
	StatusInactive = "inactive" // 停止活动
	StatusClosed   = "closed"   // 已注销
)
