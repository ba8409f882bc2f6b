// Package repository 数据访问层
package repository

import (
	"context"
	"errors"

	"github.com/pu-ac-cn/club-backend/internal/model"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrClubNotFound   = errors.New("社团不存在")
	ErrClubNameExists = errors.New("社团名称已存在")
)

// ClubRepository 社团数据访问接口
type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id uint) (*model.Club, error)
	Save(ctx context.Context, club *model.Club) error
	Delete(ctx context.Context, id uint) error
	ExistsByName(ctx context.Context, name string) (bool, error)

	List(ctx context.Context, criteria *ClubCriteria, sort Sort, page *Pagination) ([]*model.Club, int64, error)
	Find(ctx context.Context, criteria *ClubCriteria, sort Sort) ([]*model.Club, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*model.Club, error)
	SaveAll(ctx context.Context, clubs []*model.Club) error
	DeleteByIDs(ctx context.Context, ids []uint) error

	// 统计
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	SumCurrentMembers(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
	CountByMemberRange(ctx context.Context, lower int, upper *int) (int64, error)
	DistinctCampuses(ctx context.Context) ([]string, error)
}

// Pagination 分页参数
type Pagination struct {
	Page     int // 页码，从 1 开始
	PageSize int // 每页数量
}

// Offset 返回从 0 开始的偏移量
func (p *Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// clubRepository 社团数据访问实现
type clubRepository struct {
	db *gorm.DB
}

// NewClubRepository 创建社团数据访问实例
func NewClubRepository(db *gorm.DB) ClubRepository {
	return &clubRepository{db: db}
}

// translateError 将唯一索引冲突映射为名称冲突
func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrClubNameExists
	}
	return err
}

// Create 创建社团
func (r *clubRepository) Create(ctx context.Context, club *model.Club) error {
	return translateError(r.db.WithContext(ctx).Create(club).Error)
}

// GetByID 根据 ID 获取社团
func (r *clubRepository) GetByID(ctx context.Context, id uint) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&club).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

// Save 全量保存社团
func (r *clubRepository) Save(ctx context.Context, club *model.Club) error {
	return translateError(r.db.WithContext(ctx).Save(club).Error)
}

// Delete 删除社团
func (r *clubRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Club{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClubNotFound
	}
	return nil
}

// ExistsByName 检查名称是否已存在
func (r *clubRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Club{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// List 分页查询社团列表
func (r *clubRepository) List(ctx context.Context, criteria *ClubCriteria, sort Sort, page *Pagination) ([]*model.Club, int64, error) {
	order, err := sort.orderBy()
	if err != nil {
		return nil, 0, err
	}

	var clubs []*model.Club
	var total int64

	query := criteria.Apply(r.db.WithContext(ctx).Model(&model.Club{}))

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	if page != nil && page.PageSize > 0 {
		query = query.Offset(page.Offset()).Limit(page.PageSize)
	}

	if err := query.Clauses(order).Find(&clubs).Error; err != nil {
		return nil, 0, err
	}

	return clubs, total, nil
}

// Find 查询全部匹配的社团（不分页）
func (r *clubRepository) Find(ctx context.Context, criteria *ClubCriteria, sort Sort) ([]*model.Club, error) {
	order, err := sort.orderBy()
	if err != nil {
		return nil, err
	}

	var clubs []*model.Club
	err = criteria.Apply(r.db.WithContext(ctx).Model(&model.Club{})).
		Clauses(order).
		Find(&clubs).Error
	if err != nil {
		return nil, err
	}
	return clubs, nil
}

// FindByIDs 根据 ID 列表查询，不存在的 ID 被忽略
func (r *clubRepository) FindByIDs(ctx context.Context, ids []uint) ([]*model.Club, error) {
	var clubs []*model.Club
	if len(ids) == 0 {
		return clubs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&clubs).Error; err != nil {
		return nil, err
	}
	return clubs, nil
}

// SaveAll 批量保存社团
func (r *clubRepository) SaveAll(ctx context.Context, clubs []*model.Club) error {
	if len(clubs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, club := range clubs {
			if err := tx.Save(club).Error; err != nil {
				return translateError(err)
			}
		}
		return nil
	})
}

// DeleteByIDs 按 ID 列表删除，不存在的 ID 被忽略
func (r *clubRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Club{}).Error
}

// Count 社团总数
func (r *clubRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Club{}).Count(&count).Error
	return count, err
}

// CountByStatus 按状态计数
func (r *clubRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Club{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SumCurrentMembers 当前成员数总和，无记录时为 0
func (r *clubRepository) SumCurrentMembers(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Club{}).
		Select("COALESCE(SUM(current_members), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// categoryCount 按类别分组计数结果
type categoryCount struct {
	Category string
	Total    int64
}

// CountByCategory 按类别分组计数
func (r *clubRepository) CountByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []categoryCount
	err := r.db.WithContext(ctx).Model(&model.Club{}).
		Select("COALESCE(category, '') AS category, COUNT(*) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Category] += row.Total
	}
	return result, nil
}

// CountByMemberRange 统计当前成员数在 [lower, upper] 内的社团数，upper 为 nil 表示无上限
func (r *clubRepository) CountByMemberRange(ctx context.Context, lower int, upper *int) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Club{}).Where("current_members >= ?", lower)
	if upper != nil {
		query = query.Where("current_members <= ?", *upper)
	}
	err := query.Count(&count).Error
	return count, err
}

// DistinctCampuses 库中出现过的非空校区
func (r *clubRepository) DistinctCampuses(ctx context.Context) ([]string, error) {
	campuses := []string{}
	err := r.db.WithContext(ctx).Model(&model.Club{}).
		Where("campus IS NOT NULL").
		Distinct("campus").
		Order("campus").
		Pluck("campus", &campuses).Error
	if err != nil {
		return nil, err
	}
	return campuses, nil
}
