package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		// Embedded migrations target postgres. Other dialects are used for
		// local development and tests, where the schema is created ad hoc.
		if conn.Dialector.Name() != "postgres" {
			log.Named("migration").Warn("skipping migrations",
				zap.String("dialect", conn.Dialector.Name()),
			)
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Named("migration").Info("schema up to date")
		return nil
	}),
)
