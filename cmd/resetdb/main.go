package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pu-ac-cn/club-backend/internal/config"
	"github.com/pu-ac-cn/club-backend/internal/database"
	"github.com/pu-ac-cn/club-backend/internal/model"
)

// 清空社团相关表，可选重建，不影响库中其它表
// 用法：
//   go run ./cmd/resetdb -force
// 可选参数：
//   -recreate  重建表（默认 true）
//   -force     必须为 true 才会执行
func main() {
	recreate := flag.Bool("recreate", true, "是否在清空后重建表")
	force := flag.Bool("force", false, "确认执行清空操作")
	flag.Parse()

	if !*force {
		log.Fatal("为避免误操作，请加上 -force 参数：go run ./cmd/resetdb -force")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	m := database.GetDB().Migrator()

	// activities 通过 club_id 引用 clubs，先删活动表
	tables := []any{&model.Activity{}, &model.Club{}}

	fmt.Println("开始清空社团相关表...")
	for _, t := range tables {
		if m.HasTable(t) {
			if err := m.DropTable(t); err != nil {
				log.Fatalf("删除表失败: %v", err)
			}
			fmt.Printf("已删除表: %T\n", t)
		}
	}

	if *recreate {
		for i := len(tables) - 1; i >= 0; i-- {
			if err := m.AutoMigrate(tables[i]); err != nil {
				log.Fatalf("创建表失败: %v", err)
			}
			fmt.Printf("已创建/更新表: %T\n", tables[i])
		}
	}

	fmt.Println("完成。")
}
