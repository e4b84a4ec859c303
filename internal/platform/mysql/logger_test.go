package mysql

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func ctxWithBuffer(buf *bytes.Buffer) context.Context {
	lg := zerolog.New(buf)
	return lg.WithContext(context.Background())
}

func TestLogger_TraceError(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(time.Second)

	l.Trace(ctxWithBuffer(&buf), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, errors.New("boom"))

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)
	assert.Contains(t, buf.String(), "boom")
}

func TestLogger_RecordNotFoundIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(time.Second)

	l.Trace(ctxWithBuffer(&buf), time.Now(), func() (string, int64) {
		return "SELECT * FROM documents", 0
	}, gorm.ErrRecordNotFound)

	assert.NotContains(t, buf.String(), `"level":"error"`)
}

func TestLogger_Slow(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(time.Millisecond)

	l.Trace(ctxWithBuffer(&buf), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT SLEEP(1)", 1
	}, nil)

	assert.Contains(t, buf.String(), "slow mysql query")
}

func TestLogger_SilentMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(time.Millisecond).LogMode(gormlogger.Silent)

	l.Trace(ctxWithBuffer(&buf), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))

	assert.Empty(t, buf.String())
}
