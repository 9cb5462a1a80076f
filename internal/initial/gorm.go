package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"OmniAgent/internal/config"
	accountEntity "OmniAgent/internal/modules/account/domain/entity"
	knowledgeEntity "OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitGorm 打开元数据库并迁移表结构。未配置 mysql 时返回 nil, nil
func InitGorm(conf *config.Config) (*gorm.DB, error) {
	if !conf.MetadataConfigured() {
		zlog.Info("mysql 未配置，元数据库不启用")
		return nil, nil
	}
	m := conf.MysqlConfig
	port := m.Port
	if port == 0 {
		port = 3306
	}
	dbName := m.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", m.User, m.Password, m.Host, port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	zlog.Info("mysql connected", zap.String("host", m.Host), zap.String("database", dbName))
	return db, nil
}

// Migrate 自动建表，唯一索引由实体 tag 声明
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&knowledgeEntity.UserSource{},
		&accountEntity.MessagingAccount{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
