// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/bootstrap"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure/relational"
)

// gormWriter 把 gorm 的日志转到 zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// NewGormLogger 只输出慢查询与错误
func NewGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// OpenMySQL 打开共享连接池，按配置执行迁移
func OpenMySQL(cfg bootstrap.MySQLConfig) (*relational.Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{Logger: NewGormLogger()})
	if err != nil {
		return nil, errors.Wrapf(err, "open mysql %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if cfg.AutoMigrate {
		if err := relational.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	log.Info().Str("addr", cfg.Host).Str("database", cfg.Database).Msg("✅ MySQL connected")
	return relational.NewStore(db), nil
}
