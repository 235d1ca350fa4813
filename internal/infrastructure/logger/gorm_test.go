package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{"error", gormlogger.Warn, time.Now(), errors.New("syntax"), "SQL error", zapcore.ErrorLevel},
		{"slow", gormlogger.Warn, time.Now().Add(-time.Second), nil, "Slow SQL", zapcore.WarnLevel},
		{"query at info", gormlogger.Info, time.Now(), nil, "SQL query", zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, logs := observed()
			gl := NewGormLogger(base, tt.level, WithSlowThreshold(100*time.Millisecond))

			ctx, _ := WithRunID(context.Background(), base, "run-7")
			gl.Trace(ctx, tt.begin, sqlFn("SELECT 1", 1), tt.err)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "run-7", entry.ContextMap()["run_id"])
		})
	}
}

func TestGormLogger_SkipsRecordNotFoundAndSilent(t *testing.T) {
	base, logs := observed()

	NewGormLogger(base, gormlogger.Warn).Trace(context.Background(), time.Now(), sqlFn("SELECT", 0), gormlogger.ErrRecordNotFound)
	NewGormLogger(base, gormlogger.Silent).Trace(context.Background(), time.Now(), sqlFn("SELECT", 0), errors.New("x"))

	assert.Zero(t, logs.Len())
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	base, logs := observed()
	gl := NewGormLogger(base, gormlogger.Silent)

	gl.LogMode(gormlogger.Info).Info(context.Background(), "migrated %d tables", 3)
	gl.Info(context.Background(), "ignored")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "migrated 3 tables", logs.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
