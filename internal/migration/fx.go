package migration

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/glazeops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if strings.EqualFold(cfg.DBType, "sqlite") {
			stmts, err := UpStatements(SQLiteRewrite)
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				if err := conn.Exec(stmt).Error; err != nil {
					return fmt.Errorf("apply sqlite schema: %w", err)
				}
			}
			log.Info("sqlite schema applied", zap.Int("statements", len(stmts)))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
