// Package repotest 提供基于内存 SQLite 的测试数据库
package repotest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/huangchenwei1/Puzle-Read/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewDB 为每个测试创建独立的内存数据库并完成迁移
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql.DB: %v", err)
	}
	// 内存库只用一个连接，并发测试在连接池上排队
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Article{}, &model.User{}); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}
