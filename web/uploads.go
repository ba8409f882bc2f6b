// Package web 提供上传文件的静态访问
package web

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/club-backend/pkg/response"
)

// StaticConfig 静态文件服务配置
type StaticConfig struct {
	// Root 上传根目录
	Root string
	// URLPrefix 访问路径前缀
	URLPrefix string
	// Extensions 允许直接访问的扩展名
	Extensions []string
}

// DefaultConfig 返回默认配置
func DefaultConfig() *StaticConfig {
	return &StaticConfig{
		Root:      "./uploads",
		URLPrefix: "/uploads",
		Extensions: []string{
			".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico",
		},
	}
}

// StaticHandler 上传文件处理器
type StaticHandler struct {
	config *StaticConfig
	fs     http.FileSystem
}

// NewStaticHandler 创建上传文件处理器
func NewStaticHandler(config *StaticConfig) *StaticHandler {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Root == "" {
		config.Root = defaults.Root
	}
	if config.URLPrefix == "" {
		config.URLPrefix = defaults.URLPrefix
	}
	if len(config.Extensions) == 0 {
		config.Extensions = defaults.Extensions
	}
	config.URLPrefix = "/" + strings.Trim(config.URLPrefix, "/")

	return &StaticHandler{
		config: config,
		fs:     http.Dir(config.Root),
	}
}

// IsAllowed 检查扩展名是否在白名单内
func (h *StaticHandler) IsAllowed(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, allowed := range h.config.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ServeFile 返回上传目录下的单个文件
func (h *StaticHandler) ServeFile(c *gin.Context) {
	name := path.Clean("/" + c.Param("filepath"))
	if !h.IsAllowed(name) {
		response.Error(c, response.CodeNotFound)
		return
	}

	file, err := h.fs.Open(name)
	if err != nil {
		response.Error(c, response.CodeNotFound)
		return
	}
	stat, err := file.Stat()
	file.Close()
	if err != nil || stat.IsDir() {
		response.Error(c, response.CodeNotFound)
		return
	}

	c.FileFromFS(name, h.fs)
}

// SetupRoutes 注册上传文件路由
func (h *StaticHandler) SetupRoutes(router gin.IRoutes) {
	pattern := h.config.URLPrefix + "/*filepath"
	router.GET(pattern, h.ServeFile)
	router.HEAD(pattern, h.ServeFile)
}
