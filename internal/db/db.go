package db

import (
	"fmt"
	"log/slog"
	"time"

	"daybook/internal/auth"
	"daybook/internal/jobs"
	"daybook/internal/journal"
	"daybook/internal/settings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens Postgres through pgx. Unique violations surface as gorm.ErrDuplicatedKey.
func Connect(dsn string, log *slog.Logger) (*gorm.DB, error) {
	gormLog := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&journal.Tag{},
		&journal.Entry{},
		&journal.EntryTag{},
		&journal.Streak{},
		&settings.UserSettings{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Pre-built tags are unique by name.
	if err := gdb.Exec(`
create unique index if not exists uq_tags_prebuilt_name
on tags(name)
where is_pre_built and user_id is null;
`).Error; err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_entries_user_date_desc on entries(user_id, entry_date desc, id desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
