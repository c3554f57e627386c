package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"name-smart-go/internal/model"
	"name-smart-go/pkg/log"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 连接，并迁移名字描述表。
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := DB.AutoMigrate(&model.NameDescription{}); err != nil {
		log.Fatal("failed to migrate name_descriptions", err)
	}

	log.Info("MySQL database connected successfully")
}
