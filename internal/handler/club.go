// Package handler HTTP 处理器
package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/club-backend/internal/model"
	"github.com/pu-ac-cn/club-backend/internal/service"
	"github.com/pu-ac-cn/club-backend/pkg/response"
	"go.uber.org/zap"
)

// 下载文件的内容类型
const (
	contentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeBinary = "application/octet-stream"
	templateFilename  = "club_import_template.xlsx"
)

// ClubHandler 社团管理处理器
type ClubHandler struct {
	clubService   service.ClubService
	maxUploadSize int64 // 上传请求体上限，0 表示不限制
	logger        *zap.Logger
}

// NewClubHandler 创建社团管理处理器
func NewClubHandler(clubSvc service.ClubService, maxUploadSize int64, logger *zap.Logger) *ClubHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubHandler{
		clubService:   clubSvc,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// RegisterRoutes 注册社团路由
func (h *ClubHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clubs := rg.Group("/clubs")
	{
		clubs.POST("", h.CreateClub)
		clubs.POST("/list", h.ListClubs)
		clubs.GET("/quick-search", h.QuickSearch)
		clubs.GET("/check-name", h.CheckName)
		clubs.POST("/import", h.ImportClubs)
		clubs.GET("/import/template", h.DownloadTemplate)
		clubs.POST("/export", h.ExportClubs)
		clubs.POST("/batch", h.BatchOperation)
		clubs.GET("/statistics", h.GetStatistics)

		// 词表
		clubs.GET("/hot-search-tags", h.GetHotSearchTags)
		clubs.GET("/categories", h.GetCategories)
		clubs.GET("/campuses", h.GetCampuses)
		clubs.GET("/status-options", h.GetStatusOptions)
		clubs.GET("/member-range-options", h.GetMemberRangeOptions)
		clubs.GET("/sort-options", h.GetSortOptions)
		clubs.GET("/presidents", h.GetPresidents)
		clubs.GET("/classes", h.GetClasses)

		clubs.GET("/:id", h.GetClub)
		clubs.PUT("/:id", h.UpdateClub)
		clubs.DELETE("/:id", h.DeleteClub)
	}
}

// ClubRequest 创建、更新社团请求，支持表单与 JSON
type ClubRequest struct {
	Name            string   `form:"name" json:"name"`
	Description     string   `form:"description" json:"description"`
	Category        string   `form:"category" json:"category"`
	EstablishedDate string   `form:"establishedDate" json:"establishedDate"` // YYYY-MM-DD
	MaxMembers      int      `form:"maxMembers" json:"maxMembers"`
	President       string   `form:"president" json:"president"`
	Contact         string   `form:"contact" json:"contact"`
	Campus          string   `form:"campus" json:"campus"`
	Status          string   `form:"status" json:"status"`
	WechatGroup     string   `form:"wechatGroup" json:"wechatGroup"`
	QQGroup         string   `form:"qqGroup" json:"qqGroup"`
	Tags            []string `form:"tags" json:"tags"`
}

// BatchRequest 批量操作请求
type BatchRequest struct {
	ClubIDs []uint `json:"clubIds"`
	Action  string `json:"action" binding:"required"`
}

// CreateClub 创建社团
// POST /clubs
func (h *ClubHandler) CreateClub(c *gin.Context) {
	input, cleanup, ok := h.bindClubInput(c)
	if !ok {
		return
	}
	defer cleanup()

	club, err := h.clubService.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Created(c, "创建成功", club)
}

// UpdateClub 更新社团
// PUT /clubs/:id
func (h *ClubHandler) UpdateClub(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	input, cleanup, ok := h.bindClubInput(c)
	if !ok {
		return
	}
	defer cleanup()

	club, err := h.clubService.Update(c.Request.Context(), id, input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMsg(c, "更新成功", club)
}

// DeleteClub 删除社团
// DELETE /clubs/:id
func (h *ClubHandler) DeleteClub(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.clubService.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMsg(c, "删除成功", nil)
}

// GetClub 获取社团详情
// GET /clubs/:id
func (h *ClubHandler) GetClub(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	club, err := h.clubService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, club)
}

// ListClubs 分页查询社团
// POST /clubs/list
func (h *ClubHandler) ListClubs(c *gin.Context) {
	var query service.ClubQuery
	if err := c.ShouldBindJSON(&query); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorWithMsg(c, response.CodeBadRequest, "参数错误: "+err.Error())
		return
	}

	page, err := h.clubService.List(c.Request.Context(), &query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, page)
}

// QuickSearch 快速搜索
// GET /clubs/quick-search
func (h *ClubHandler) QuickSearch(c *gin.Context) {
	var query service.QuickSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithMsg(c, response.CodeBadRequest, "参数错误: "+err.Error())
		return
	}

	clubs, err := h.clubService.QuickSearch(c.Request.Context(), &query)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, clubs)
}

// CheckName 检查名称是否可用
// GET /clubs/check-name?name=
func (h *ClubHandler) CheckName(c *gin.Context) {
	name, ok := c.GetQuery("name")
	if !ok {
		response.ErrorWithMsg(c, response.CodeBadRequest, "缺少参数 name")
		return
	}

	available, err := h.clubService.CheckName(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, available)
}

// ImportClubs 从 Excel 导入社团
// POST /clubs/import
func (h *ClubHandler) ImportClubs(c *gin.Context) {
	h.limitBody(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.writeUploadError(c, err, "请选择要导入的文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ErrorWithMsg(c, response.CodeBadRequest, "读取上传文件失败")
		return
	}
	defer file.Close()

	count, err := h.clubService.Import(c.Request.Context(), file)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMsg(c, fmt.Sprintf("成功导入 %d 条数据", count), count)
}

// DownloadTemplate 下载导入模板
// GET /clubs/import/template
func (h *ClubHandler) DownloadTemplate(c *gin.Context) {
	data, err := h.clubService.ImportTemplate(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, templateFilename))
	c.Data(http.StatusOK, contentTypeXLSX, data)
}

// ExportClubs 导出社团
// POST /clubs/export
func (h *ClubHandler) ExportClubs(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorWithMsg(c, response.CodeBadRequest, "参数错误: "+err.Error())
		return
	}

	data, err := h.clubService.Export(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("社团列表_%d.xlsx", time.Now().UnixMilli())
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentTypeBinary, data)
}

// BatchOperation 批量操作
// POST /clubs/batch
func (h *ClubHandler) BatchOperation(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeBadRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.clubService.BatchOperation(c.Request.Context(), req.ClubIDs, req.Action); err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMsg(c, "操作成功", nil)
}

// GetStatistics 获取统计数据
// GET /clubs/statistics
func (h *ClubHandler) GetStatistics(c *gin.Context) {
	stats, err := h.clubService.Statistics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, stats)
}

// GetHotSearchTags 热门搜索标签
func (h *ClubHandler) GetHotSearchTags(c *gin.Context) {
	response.Success(c, h.clubService.HotSearchTags())
}

// GetCategories 社团类别
func (h *ClubHandler) GetCategories(c *gin.Context) {
	response.Success(c, h.clubService.Categories())
}

// GetCampuses 校区列表
func (h *ClubHandler) GetCampuses(c *gin.Context) {
	campuses, err := h.clubService.Campuses(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, campuses)
}

func (h *ClubHandler) GetStatusOptions(c *gin.Context) {
	response.Success(c, h.clubService.StatusOptions())
}

func (h *ClubHandler) GetMemberRangeOptions(c *gin.Context) {
	response.Success(c, h.clubService.MemberRangeOptions())
}

func (h *ClubHandler) GetSortOptions(c *gin.Context) {
	response.Success(c, h.clubService.SortOptions())
}

// GetPresidents 负责人候选
// GET /clubs/presidents?keyword=
func (h *ClubHandler) GetPresidents(c *gin.Context) {
	response.Success(c, h.clubService.Presidents(c.Query("keyword")))
}

// GetClasses 班级列表
// GET /clubs/classes?grade=
func (h *ClubHandler) GetClasses(c *gin.Context) {
	response.Success(c, h.clubService.Classes(c.Query("grade")))
}

// bindClubInput 解析请求体与 Logo 文件，cleanup 负责关闭已打开的文件
func (h *ClubHandler) bindClubInput(c *gin.Context) (*service.ClubInput, func(), bool) {
	noop := func() {}
	multipartBody := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipartBody {
		h.limitBody(c)
	}

	var req ClubRequest
	if err := c.ShouldBind(&req); err != nil {
		h.writeUploadError(c, err, "参数错误: "+err.Error())
		return nil, noop, false
	}

	input := &service.ClubInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		MaxMembers:  req.MaxMembers,
		President:   req.President,
		Contact:     req.Contact,
		Campus:      req.Campus,
		Status:      req.Status,
		WechatGroup: req.WechatGroup,
		QQGroup:     req.QQGroup,
		Tags:        req.Tags,
	}

	if req.EstablishedDate != "" {
		date, err := model.ParseDate(strings.TrimSpace(req.EstablishedDate))
		if err != nil {
			response.ErrorWithMsg(c, response.CodeBadRequest, "成立日期格式错误，应为 YYYY-MM-DD")
			return nil, noop, false
		}
		input.EstablishedDate = date
	}

	if !multipartBody {
		return input, noop, true
	}

	// 表单中出现 tags 字段即视为提供了标签列表（可为空）
	if values, present := c.Request.PostForm["tags"]; present {
		input.Tags = splitTags(values)
	}

	fileHeader, err := c.FormFile("logo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return input, noop, true
		}
		h.writeUploadError(c, err, "读取 Logo 失败")
		return nil, noop, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ErrorWithMsg(c, response.CodeBadRequest, "读取 Logo 失败")
		return nil, noop, false
	}
	input.Logo = &service.FileUpload{Filename: fileHeader.Filename, Reader: file}
	return input, func() { closeFile(file) }, true
}

// limitBody 限制上传请求体大小
func (h *ClubHandler) limitBody(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}
}

// writeUploadError 请求体超限返回 413，其余返回 400
func (h *ClubHandler) writeUploadError(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, response.CodeTooLarge)
		return
	}
	response.ErrorWithMsg(c, response.CodeBadRequest, msg)
}

// writeError 将业务错误映射为响应
func (h *ClubHandler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrClubNotFound):
		response.ErrorWithMsg(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrClubNameExists):
		response.ErrorWithMsg(c, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrUnsupportedAction):
		response.ErrorWithMsg(c, response.CodeBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadFailed),
		errors.Is(err, service.ErrImportFailed),
		errors.Is(err, service.ErrExportFailed):
		response.ErrorWithMsg(c, response.CodeServerError, err.Error())
	default:
		h.logger.Error("处理请求失败",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		response.Error(c, response.CodeServerError)
	}
}

// parseID 解析路径中的社团 ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithMsg(c, response.CodeBadRequest, "无效的社团 ID")
		return 0, false
	}
	return uint(id), true
}

// splitTags 兼容重复字段与逗号分隔两种写法，去掉空白项
func splitTags(values []string) []string {
	tags := make([]string, 0, len(values))
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func closeFile(f multipart.File) {
	_ = f.Close()
}
