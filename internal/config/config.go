package config

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Upload     UploadConfig     `mapstructure:"upload"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Excel      ExcelConfig      `mapstructure:"excel"`
	Log        LogConfig        `mapstructure:"log"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	APIPrefix    string        `mapstructure:"api_prefix"` // 接口路由前缀，默认挂在根路径
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	LogLevel string         `mapstructure:"log_level"` // gorm 日志级别：silent, error, warn, info
	Postgres PostgresConfig `mapstructure:"postgres"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parse_time"`
	Loc       string `mapstructure:"loc"`
}

// RedisConfig Redis 配置
// 未启用时统计缓存与限流均关闭
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UploadConfig 上传文件配置
type UploadConfig struct {
	Dir       string `mapstructure:"dir"`        // 上传根目录
	URLPrefix string `mapstructure:"url_prefix"` // 访问 URL 前缀
	MaxSize   int64  `mapstructure:"max_size"`   // multipart 内存上限（字节）
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // 为空时放行任意来源
}

// RateLimitConfig 限流配置（依赖 Redis）
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	StatisticsTTL time.Duration `mapstructure:"statistics_ttl"` // 0 表示不缓存
}

// ExcelConfig 表格导入导出配置
type ExcelConfig struct {
	FormulaMode    string `mapstructure:"formula_mode"`     // raw: 公式原文；value: 缓存计算值
	ExportPageSize int    `mapstructure:"export_page_size"` // 导出取第一页的条数
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// VocabularyConfig 固定词表，启动时加载一次
type VocabularyConfig struct {
	HotSearchTags      []string          `mapstructure:"hot_search_tags"`
	Categories         []string          `mapstructure:"categories"`
	Presidents         []string          `mapstructure:"presidents"`
	Classes            []string          `mapstructure:"classes"`
	StatusOptions      []string          `mapstructure:"status_options"`
	MemberRangeOptions []string          `mapstructure:"member_range_options"`
	SortOptions        map[string]string `mapstructure:"sort_options"`
}

var (
	global   *Config
	globalMu sync.RWMutex
)

// Load 加载配置
// 依次查找 ./configs/config.yaml 与 ./config.yaml，文件不存在时使用默认值
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// Get 获取最近一次加载的配置
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func newViper() *viper.Viper {
	v := viper.New()

	// 支持环境变量覆盖，例如 CLUB_DATABASE_POSTGRES_HOST
	v.SetEnvPrefix("club")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	globalMu.Lock()
	global = &cfg
	globalMu.Unlock()

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.api_prefix", "")

	// 数据库默认配置
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "club_management")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.user", "root")
	v.SetDefault("database.mysql.dbname", "club_management")
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.parse_time", true)
	v.SetDefault("database.mysql.loc", "Local")

	// Redis 默认配置
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 上传默认配置
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.url_prefix", "/uploads")
	v.SetDefault("upload.max_size", 10<<20)

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("cache.statistics_ttl", "30s")

	v.SetDefault("excel.formula_mode", "raw")
	v.SetDefault("excel.export_page_size", 10)

	v.SetDefault("log.level", "info")

	// 固定词表
	v.SetDefault("vocabulary.hot_search_tags", []string{
		"计算机协会", "篮球社", "志愿者协会", "音乐社",
		"摄影协会", "学术科技", "体育竞技", "文化艺术",
	})
	v.SetDefault("vocabulary.categories", []string{
		"academic", "art", "sports", "volunteer", "interest", "innovation",
	})
	v.SetDefault("vocabulary.presidents", []string{"张三", "李四", "王五", "赵六", "孙七"})
	v.SetDefault("vocabulary.classes", []string{"计算机1班", "计算机2班", "软件工程1班"})
	v.SetDefault("vocabulary.status_options", []string{"active", "inactive", "closed"})
	v.SetDefault("vocabulary.member_range_options", []string{"0-50", "50-100", "100-200", "200+"})
	v.SetDefault("vocabulary.sort_options", map[string]string{
		"name":       "按名称排序",
		"members":    "按成员数排序",
		"date":       "按成立时间排序",
		"activities": "按活动数量排序",
	})
}
