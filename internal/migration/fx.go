package migration

import (
	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/config"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres. Other dialects
		// (sqlite in tests, mysql in small setups) fall back to schema
		// sync from the models.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&capacitydomain.CapacityRecord{},
				&examcodedomain.ExamCode{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
