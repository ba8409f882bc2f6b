package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pu-ac-cn/club-backend/internal/config"
	"github.com/pu-ac-cn/club-backend/internal/model"
	"github.com/pu-ac-cn/club-backend/internal/repository"
	"github.com/pu-ac-cn/club-backend/internal/spreadsheet"
	"github.com/pu-ac-cn/club-backend/internal/storage"
	"go.uber.org/zap"
)

// 分页与查询默认值
const (
	defaultPage         = 1
	defaultPageSize     = 10
	maxPageSize         = 100
	defaultSortField    = "name"
	defaultQuickLimit   = 6
	defaultMaxMembers   = 100
	defaultExportSize   = 10
	logoSubDir          = "club_logos"
	sortOrderAscending  = "asc"
	sortOrderDescending = "desc"
)

// 批量操作
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionDelete     = "delete"
)

// FileUpload 随请求上传的文件
type FileUpload struct {
	Filename string
	Reader   io.Reader
}

// ClubInput 创建或更新社团的输入
type ClubInput struct {
	Name            string
	Description     string
	Category        string
	EstablishedDate model.Date
	MaxMembers      int
	President       string
	Contact         string
	Campus          string
	Status          string
	WechatGroup     string
	QQGroup         string
	Tags            []string // nil 表示未提供；非 nil（含空列表）时更新会覆盖
	Logo            *FileUpload
}

// ClubQuery 列表查询条件
type ClubQuery struct {
	Page        int         `json:"page"`
	Size        int         `json:"size"`
	Keyword     string      `json:"keyword"`
	Category    string      `json:"category"`
	Status      string      `json:"status"`
	SortField   string      `json:"sortField"`
	SortOrder   string      `json:"sortOrder"`
	StartDate   *model.Date `json:"startDate"`
	EndDate     *model.Date `json:"endDate"`
	MinMembers  *int        `json:"minMembers"`
	MaxMembers  *int        `json:"maxMembers"`
	President   string      `json:"president"`
	MemberRange string      `json:"memberRange"` // 如 0-50、200+，仅在未指定成员数上下限时生效
	OnlyActive  bool        `json:"onlyActive"`
}

// QuickSearchQuery 快速搜索条件
type QuickSearchQuery struct {
	Keyword  string `form:"keyword"`
	Category string `form:"category"`
	Status   string `form:"status"`
	Sort     string `form:"sort"`  // members, date, activities，其他按名称
	Limit    int    `form:"limit"` // 默认 6
}

// ExportRequest 导出条件
type ExportRequest struct {
	Keyword    string   `json:"keyword"`
	Categories []string `json:"categories"` // 接收但不参与过滤
	Columns    []string `json:"columns"`    // 接收但列固定
}

// ClubPage 分页结果
type ClubPage struct {
	Content       []*model.Club `json:"content"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
}

// Statistics 社团统计
type Statistics struct {
	TotalClubs       int64            `json:"totalClubs"`
	ActiveClubs      int64            `json:"activeClubs"`
	TotalMembers     int64            `json:"totalMembers"`
	CategoryStats    map[string]int64 `json:"categoryStats"`
	SizeDistribution map[string]int64 `json:"sizeDistribution"`
}

// memberBucket 成员规模区间，upper 为 nil 表示无上限
type memberBucket struct {
	label string
	lower int
	upper *int
}

func intPtr(v int) *int { return &v }

// 区间两端均为闭区间，相邻区间在边界上重叠
var memberBuckets = []memberBucket{
	{label: "0-50", lower: 0, upper: intPtr(50)},
	{label: "50-100", lower: 50, upper: intPtr(100)},
	{label: "100-200", lower: 100, upper: intPtr(200)},
	{label: "200+", lower: 200},
}

// ClubService 社团服务接口
type ClubService interface {
	Create(ctx context.Context, input *ClubInput) (*model.Club, error)
	Update(ctx context.Context, id uint, input *ClubInput) (*model.Club, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Club, error)
	List(ctx context.Context, query *ClubQuery) (*ClubPage, error)
	QuickSearch(ctx context.Context, query *QuickSearchQuery) ([]*model.Club, error)
	CheckName(ctx context.Context, name string) (bool, error)

	// Excel
	Import(ctx context.Context, r io.Reader) (int, error)
	Export(ctx context.Context, req *ExportRequest) ([]byte, error)
	ImportTemplate(ctx context.Context) ([]byte, error)

	BatchOperation(ctx context.Context, ids []uint, action string) error
	Statistics(ctx context.Context) (*Statistics, error)

	// 词表
	HotSearchTags() []string
	Categories() []string
	StatusOptions() []string
	MemberRangeOptions() []string
	SortOptions() map[string]string
	Presidents(keyword string) []string
	Classes(grade string) []string
	Campuses(ctx context.Context) ([]string, error)
}

// ClubServiceConfig 社团服务配置
type ClubServiceConfig struct {
	Vocabulary     config.VocabularyConfig
	ExportPageSize int // 导出取第一页的条数，默认 10
}

type clubService struct {
	repo   repository.ClubRepository
	files  storage.FileStore
	codec  *spreadsheet.Codec
	cache  StatsCache // 可为 nil
	config *ClubServiceConfig
	logger *zap.Logger
}

// NewClubService 创建社团服务
func NewClubService(
	repo repository.ClubRepository,
	files storage.FileStore,
	codec *spreadsheet.Codec,
	cache StatsCache,
	cfg *ClubServiceConfig,
	logger *zap.Logger,
) ClubService {
	if cfg == nil {
		cfg = &ClubServiceConfig{}
	}
	if cfg.ExportPageSize <= 0 {
		cfg.ExportPageSize = defaultExportSize
	}
	if codec == nil {
		codec = spreadsheet.New(spreadsheet.FormulaRaw)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clubService{
		repo:   repo,
		files:  files,
		codec:  codec,
		cache:  cache,
		config: cfg,
		logger: logger,
	}
}

// Create 创建社团
func (s *clubService) Create(ctx context.Context, input *ClubInput) (*model.Club, error) {
	name, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrClubNameExists
	}

	club := &model.Club{}
	applyInput(club, input, name)
	club.CurrentMembers = 0
	club.ActivitiesCount = 0
	club.Tags = model.JoinTags(input.Tags)

	if input.Logo != nil {
		url, err := s.saveLogo(input.Logo)
		if err != nil {
			return nil, err
		}
		club.LogoURL = url
	}

	if err := s.repo.Create(ctx, club); err != nil {
		return nil, err
	}
	s.invalidateStatistics(ctx)

	s.logger.Info("社团已创建", zap.Uint("id", club.ID), zap.String("name", club.Name))
	return club, nil
}

// Update 更新社团，成员数与活动数保持不变
func (s *clubService) Update(ctx context.Context, id uint, input *ClubInput) (*model.Club, error) {
	club, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	if name != club.Name {
		exists, err := s.repo.ExistsByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrClubNameExists
		}
	}

	applyInput(club, input, name)
	if input.Tags != nil {
		club.Tags = model.JoinTags(input.Tags)
	}

	// 旧 Logo 文件保留
	if input.Logo != nil {
		url, err := s.saveLogo(input.Logo)
		if err != nil {
			return nil, err
		}
		club.LogoURL = url
	}

	if err := s.repo.Save(ctx, club); err != nil {
		return nil, err
	}
	s.invalidateStatistics(ctx)

	return club, nil
}

// Delete 删除社团
func (s *clubService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateStatistics(ctx)
	s.logger.Info("社团已删除", zap.Uint("id", id))
	return nil
}

// GetByID 根据 ID 获取社团
func (s *clubService) GetByID(ctx context.Context, id uint) (*model.Club, error) {
	return s.repo.GetByID(ctx, id)
}

// List 分页查询社团
func (s *clubService) List(ctx context.Context, query *ClubQuery) (*ClubPage, error) {
	if query == nil {
		query = &ClubQuery{}
	}

	page, size := normalizePage(query.Page, query.Size)

	sort, err := parseSort(query.SortField, query.SortOrder)
	if err != nil {
		return nil, err
	}

	criteria, err := buildCriteria(query)
	if err != nil {
		return nil, err
	}

	clubs, total, err := s.repo.List(ctx, criteria, sort, &repository.Pagination{Page: page, PageSize: size})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSortField) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil, err
	}
	if clubs == nil {
		clubs = []*model.Club{}
	}

	return &ClubPage{
		Content:       clubs,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
		Page:          page,
		Size:          size,
	}, nil
}

// QuickSearch 快速搜索，全量查询后截取前 limit 条
func (s *clubService) QuickSearch(ctx context.Context, query *QuickSearchQuery) ([]*model.Club, error) {
	if query == nil {
		query = &QuickSearchQuery{}
	}

	criteria := &repository.ClubCriteria{
		Keyword:  strings.TrimSpace(query.Keyword),
		Category: strings.TrimSpace(query.Category),
		Status:   strings.TrimSpace(query.Status),
	}

	clubs, err := s.repo.Find(ctx, criteria, quickSearchSort(query.Sort))
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultQuickLimit
	}
	if len(clubs) > limit {
		clubs = clubs[:limit]
	}
	if clubs == nil {
		clubs = []*model.Club{}
	}
	return clubs, nil
}

// CheckName 名称未被占用时返回 true
func (s *clubService) CheckName(ctx context.Context, name string) (bool, error) {
	exists, err := s.repo.ExistsByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Import 导入社团，返回成功写入的条数
// 解析失败或名称重复的行记录日志后跳过
func (s *clubService) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := s.codec.DecodeClubs(r)
	if err != nil {
		s.logger.Error("导入社团失败", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	count := 0
	for _, row := range rows {
		if row.Err != nil {
			s.logger.Warn("跳过无法解析的行", zap.Int("line", row.Line), zap.Error(row.Err))
			continue
		}
		if err := s.repo.Create(ctx, row.Club); err != nil {
			if errors.Is(err, ErrClubNameExists) {
				s.logger.Warn("跳过名称重复的行", zap.Int("line", row.Line), zap.String("name", row.Club.Name))
				continue
			}
			if count > 0 {
				s.invalidateStatistics(ctx)
			}
			return count, err
		}
		count++
	}

	if count > 0 {
		s.invalidateStatistics(ctx)
	}
	s.logger.Info("社团导入完成", zap.Int("imported", count), zap.Int("rows", len(rows)))
	return count, nil
}

// Export 导出第一页匹配关键字的社团
func (s *clubService) Export(ctx context.Context, req *ExportRequest) ([]byte, error) {
	if req == nil {
		req = &ExportRequest{}
	}

	page, err := s.List(ctx, &ClubQuery{
		Page:    defaultPage,
		Size:    s.config.ExportPageSize,
		Keyword: req.Keyword,
	})
	if err != nil {
		return nil, err
	}

	data, err := s.codec.EncodeClubs(page.Content)
	if err != nil {
		s.logger.Error("导出社团失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return data, nil
}

// ImportTemplate 生成导入模板
func (s *clubService) ImportTemplate(ctx context.Context) ([]byte, error) {
	data, err := s.codec.ImportTemplate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return data, nil
}

// BatchOperation 批量启用、停用或删除，不存在的 ID 被忽略
func (s *clubService) BatchOperation(ctx context.Context, ids []uint, action string) error {
	var status string
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionActivate:
		status = model.StatusActive
	case ActionDeactivate:
		status = model.StatusInactive
	case ActionDelete:
		if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		s.invalidateStatistics(ctx)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}

	clubs, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, club := range clubs {
		club.Status = status
	}
	if err := s.repo.SaveAll(ctx, clubs); err != nil {
		return err
	}
	s.invalidateStatistics(ctx)
	return nil
}

// Statistics 统计社团数量、成员数、类别分布与规模分布
func (s *clubService) Statistics(ctx context.Context) (*Statistics, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("读取统计缓存失败", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.computeStatistics(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			s.logger.Warn("写入统计缓存失败", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *clubService) computeStatistics(ctx context.Context) (*Statistics, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountByStatus(ctx, model.StatusActive)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.SumCurrentMembers(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	distribution := make(map[string]int64, len(memberBuckets))
	for _, b := range memberBuckets {
		n, err := s.repo.CountByMemberRange(ctx, b.lower, b.upper)
		if err != nil {
			return nil, err
		}
		distribution[b.label] = n
	}

	return &Statistics{
		TotalClubs:       total,
		ActiveClubs:      active,
		TotalMembers:     members,
		CategoryStats:    byCategory,
		SizeDistribution: distribution,
	}, nil
}

// HotSearchTags 热门搜索标签
func (s *clubService) HotSearchTags() []string {
	return copyStrings(s.config.Vocabulary.HotSearchTags)
}

// Categories 社团类别
func (s *clubService) Categories() []string {
	return copyStrings(s.config.Vocabulary.Categories)
}

// StatusOptions 状态选项
func (s *clubService) StatusOptions() []string {
	return copyStrings(s.config.Vocabulary.StatusOptions)
}

// MemberRangeOptions 成员规模选项
func (s *clubService) MemberRangeOptions() []string {
	return copyStrings(s.config.Vocabulary.MemberRangeOptions)
}

// SortOptions 排序选项
func (s *clubService) SortOptions() map[string]string {
	result := make(map[string]string, len(s.config.Vocabulary.SortOptions))
	for k, v := range s.config.Vocabulary.SortOptions {
		result[k] = v
	}
	return result
}

// Presidents 负责人候选，keyword 非空时按子串过滤
func (s *clubService) Presidents(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	result := make([]string, 0, len(s.config.Vocabulary.Presidents))
	for _, p := range s.config.Vocabulary.Presidents {
		if keyword == "" || strings.Contains(p, keyword) {
			result = append(result, p)
		}
	}
	return result
}

// Classes 班级列表，暂不按年级区分
func (s *clubService) Classes(grade string) []string {
	return copyStrings(s.config.Vocabulary.Classes)
}

// Campuses 库中出现过的校区
func (s *clubService) Campuses(ctx context.Context) ([]string, error) {
	return s.repo.DistinctCampuses(ctx)
}

func (s *clubService) saveLogo(logo *FileUpload) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("%w: 未配置文件存储", ErrUploadFailed)
	}
	url, err := s.files.Save(logo.Reader, logo.Filename, logoSubDir)
	if err != nil {
		s.logger.Error("Logo 上传失败", zap.String("filename", logo.Filename), zap.Error(err))
		return "", err
	}
	return url, nil
}

// invalidateStatistics 数据变更后清除统计缓存，失败只记录日志
func (s *clubService) invalidateStatistics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("清除统计缓存失败", zap.Error(err))
	}
}

// validateInput 校验名称与状态，返回去除空白后的名称
func validateInput(input *ClubInput) (string, error) {
	if input == nil {
		return "", fmt.Errorf("%w: 请求内容不能为空", ErrInvalidArgument)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", fmt.Errorf("%w: 社团名称不能为空", ErrInvalidArgument)
	}
	switch input.Status {
	case "", model.StatusActive, model.StatusInactive, model.StatusClosed:
	default:
		return "", fmt.Errorf("%w: 无效的状态 %s", ErrInvalidArgument, input.Status)
	}
	if input.MaxMembers < 0 {
		return "", fmt.Errorf("%w: 成员上限不能为负数", ErrInvalidArgument)
	}
	return name, nil
}

// applyInput 覆盖可编辑字段，未提供的状态与成员上限取默认值
func applyInput(club *model.Club, input *ClubInput, name string) {
	club.Name = name
	club.Description = input.Description
	club.Category = input.Category
	club.EstablishedDate = input.EstablishedDate
	club.MaxMembers = input.MaxMembers
	if club.MaxMembers == 0 {
		club.MaxMembers = defaultMaxMembers
	}
	club.President = input.President
	club.Contact = input.Contact
	club.SetCampus(strings.TrimSpace(input.Campus))
	club.Status = input.Status
	if club.Status == "" {
		club.Status = model.StatusActive
	}
	club.WechatGroup = input.WechatGroup
	club.QQGroup = input.QQGroup
}

// normalizePage 页码小于 1 取 1，每页数量默认 10、最大 100
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// parseSort 校验排序字段与方向
func parseSort(field, order string) (repository.Sort, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		field = defaultSortField
	}
	if !repository.IsSortable(field) {
		return repository.Sort{}, fmt.Errorf("%w: 不支持的排序字段 %s", ErrInvalidArgument, field)
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", sortOrderAscending:
		return repository.Sort{Field: field}, nil
	case sortOrderDescending:
		return repository.Sort{Field: field, Desc: true}, nil
	default:
		return repository.Sort{}, fmt.Errorf("%w: 不支持的排序方向 %s", ErrInvalidArgument, order)
	}
}

// quickSearchSort 快速搜索排序：members、date、activities 降序，其余按名称升序
func quickSearchSort(key string) repository.Sort {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "members":
		return repository.Sort{Field: "currentMembers", Desc: true}
	case "date":
		return repository.Sort{Field: "establishedDate", Desc: true}
	case "activities":
		return repository.Sort{Field: "activitiesCount", Desc: true}
	default:
		return repository.Sort{Field: "name"}
	}
}

// buildCriteria 将查询条件转换为过滤条件
func buildCriteria(query *ClubQuery) (*repository.ClubCriteria, error) {
	criteria := &repository.ClubCriteria{
		Keyword:    strings.TrimSpace(query.Keyword),
		Category:   strings.TrimSpace(query.Category),
		Status:     strings.TrimSpace(query.Status),
		MinMembers: query.MinMembers,
		MaxMembers: query.MaxMembers,
		President:  strings.TrimSpace(query.President),
		OnlyActive: query.OnlyActive,
	}
	if query.StartDate != nil && !query.StartDate.IsZero() {
		t := query.StartDate.Time
		criteria.StartDate = &t
	}
	if query.EndDate != nil && !query.EndDate.IsZero() {
		t := query.EndDate.Time
		criteria.EndDate = &t
	}

	if query.MemberRange != "" && query.MinMembers == nil && query.MaxMembers == nil {
		lower, upper, err := ParseMemberRange(query.MemberRange)
		if err != nil {
			return nil, err
		}
		criteria.MinMembers = &lower
		criteria.MaxMembers = upper
	}
	return criteria, nil
}

// ParseMemberRange 解析 "50-100" 或 "200+" 形式的成员规模区间
func ParseMemberRange(s string) (int, *int, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "+") {
		lower, err := strconv.Atoi(strings.TrimSuffix(s, "+"))
		if err != nil || lower < 0 {
			return 0, nil, fmt.Errorf("%w: 无效的成员规模 %s", ErrInvalidArgument, s)
		}
		return lower, nil, nil
	}

	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("%w: 无效的成员规模 %s", ErrInvalidArgument, s)
	}
	lower, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	upper, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || lower < 0 || upper < lower {
		return 0, nil, fmt.Errorf("%w: 无效的成员规模 %s", ErrInvalidArgument, s)
	}
	return lower, &upper, nil
}

func copyStrings(src []string) []string {
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
