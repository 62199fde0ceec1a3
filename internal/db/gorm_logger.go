package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/retail_market/internal/logging"
)

const slowQuery = 200 * time.Millisecond

// slogLogger sends gorm output to the slog logger carried by the query context.
type slogLogger struct {
	level logger.LogLevel
}

func newLogger() logger.Interface {
	return &slogLogger{level: logger.Warn}
}

func (l *slogLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &slogLogger{level: level}
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		logging.FromContext(ctx).InfoContext(ctx, fmt.Sprintf(msg, data...), "component", "gorm")
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		logging.FromContext(ctx).WarnContext(ctx, fmt.Sprintf(msg, data...), "component", "gorm")
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		logging.FromContext(ctx).ErrorContext(ctx, fmt.Sprintf(msg, data...), "component", "gorm")
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	log := logging.FromContext(ctx)

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		log.ErrorContext(ctx, "gorm_query",
			"component", "gorm",
			"error", err.Error(),
			"sql", sql,
			"rows", rows,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	case elapsed > slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		log.WarnContext(ctx, "gorm_slow_query",
			"component", "gorm",
			"sql", sql,
			"rows", rows,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	case l.level >= logger.Info:
		sql, rows := fc()
		log.DebugContext(ctx, "gorm_query",
			"component", "gorm",
			"sql", sql,
			"rows", rows,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}
}
