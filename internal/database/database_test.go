package database

import (
	"os"
	"strconv"
	"testing"

	"github.com/pu-ac-cn/club-backend/internal/config"
	"gorm.io/gorm/logger"
)

// 测试用的数据库配置，可通过环境变量指向真实实例
func getTestPostgresConfig() *config.DatabaseConfig {
	port, _ := strconv.Atoi(envOr("CLUB_TEST_PG_PORT", "5432"))
	return &config.DatabaseConfig{
		Driver:   "postgres",
		LogLevel: "silent",
		Postgres: config.PostgresConfig{
			Host:     envOr("CLUB_TEST_PG_HOST", "localhost"),
			Port:     port,
			User:     envOr("CLUB_TEST_PG_USER", "postgres"),
			Password: os.Getenv("CLUB_TEST_PG_PASSWORD"),
			DBName:   envOr("CLUB_TEST_PG_DBNAME", "club_test"),
			SSLMode:  "disable",
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TestInitPostgres 测试 PostgreSQL 初始化
func TestInitPostgres(t *testing.T) {
	err := Init(getTestPostgresConfig())
	if err != nil {
		t.Skipf("跳过测试：无法连接 PostgreSQL: %v", err)
	}
	defer Close()

	if err := Ping(); err != nil {
		t.Skipf("跳过测试：PostgreSQL 不可用: %v", err)
	}
	if GetDB() == nil {
		t.Error("GetDB() 返回 nil")
	}
}

// TestInitUnsupportedDriver 测试不支持的数据库驱动
func TestInitUnsupportedDriver(t *testing.T) {
	err := Init(&config.DatabaseConfig{Driver: "unsupported"})
	if err == nil {
		t.Error("期望返回错误，但没有")
	}
}

// TestDialector 测试方言选择
func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "postgres", name: "postgres"},
		{driver: "mysql", name: "mysql"},
		{driver: "sqlite", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(&config.DatabaseConfig{Driver: tt.driver})
			if tt.wantErr {
				if err == nil {
					t.Error("期望返回错误，但没有")
				}
				return
			}
			if err != nil {
				t.Fatalf("不期望错误，但得到 %v", err)
			}
			if d.Name() != tt.name {
				t.Errorf("方言名称期望 %s, 实际 %s", tt.name, d.Name())
			}
		})
	}
}

// TestParseLogLevel 测试日志级别解析
func TestParseLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"error":  logger.Error,
		"info":   logger.Info,
		"warn":   logger.Warn,
		"":       logger.Warn,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) 期望 %v, 实际 %v", in, want, got)
		}
	}
}

// TestPingNotInitialized 测试未初始化时的 Ping
func TestPingNotInitialized(t *testing.T) {
	db = nil

	if err := Ping(); err == nil {
		t.Error("期望返回错误，但没有")
	}
}

// TestCloseNil 测试关闭未初始化的连接
func TestCloseNil(t *testing.T) {
	db = nil

	if err := Close(); err != nil {
		t.Errorf("Close nil 数据库应该不报错: %v", err)
	}
}

// TestAutoMigrateNotInitialized 测试未初始化时的自动迁移
func TestAutoMigrateNotInitialized(t *testing.T) {
	db = nil

	type TestModel struct {
		ID uint `gorm:"primaryKey"`
	}

	if err := AutoMigrate(&TestModel{}); err == nil {
		t.Error("期望返回错误，但没有")
	}
}
