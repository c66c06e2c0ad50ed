package auditlog

import (
	"time"

	"smallbiznis-license/pkg/config"
	"smallbiznis-license/pkg/task"
	"smallbiznis-license/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("auditlog.module",
	fx.Provide(
		NewService,
		func(s *Service) Recorder { return s },
	),
	fx.Invoke(migrate),
)

// WorkerModule runs the retention policy: the daily scheduler and the purge task handler.
var WorkerModule = fx.Module("auditlog.worker",
	Module,
	fx.Invoke(
		registerPurgeHandler,
		registerScheduler,
	),
)

func migrate(cfg *config.Config, db *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return db.AutoMigrate(&Entry{})
}

func registerPurgeHandler(mux *asynq.ServeMux, cfg *config.Config, svc *Service) {
	mux.Handle(taskname.ActivationLogPurge, NewPurgeHandler(svc, cfg.Audit.Retention))
}

func registerScheduler(lc fx.Lifecycle, cfg *config.Config, enqueuer task.Enqueuer) error {
	if cfg.Audit.Retention <= 0 {
		zap.L().Info("[auditlog] AUDIT_RETENTION is 0, activation logs are kept forever")
		return nil
	}

	loc, err := time.LoadLocation(cfg.License.Timezone)
	if err != nil {
		return err
	}

	NewScheduler(enqueuer, cfg.Audit.PurgeHour, loc).register(lc)
	return nil
}
