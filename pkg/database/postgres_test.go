package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type captureWriter struct {
	lines []string
}

func (w *captureWriter) Printf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func TestGormLoggerIgnoresRecordNotFound(t *testing.T) {
	w := &captureWriter{}
	l := newGormLogger(w, "info")
	query := func() (string, int64) { return "SELECT * FROM users WHERE id = 1", 0 }

	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now(), query, fmt.Errorf("get user: %w", gorm.ErrRecordNotFound))
	for _, line := range w.lines {
		assert.NotContains(t, line, "record not found")
	}

	w.lines = nil
	l.Trace(context.Background(), time.Now(), query, errors.New("connection refused"))
	if assert.Len(t, w.lines, 1) {
		assert.Contains(t, w.lines[0], "connection refused")
	}
}

func TestGormLoggerPrintsSQLOnlyInDebug(t *testing.T) {
	query := func() (string, int64) { return "SELECT 1", 1 }

	info := &captureWriter{}
	newGormLogger(info, "info").Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, info.lines)

	debug := &captureWriter{}
	newGormLogger(debug, "debug").Trace(context.Background(), time.Now(), query, nil)
	if assert.Len(t, debug.lines, 1) {
		assert.Contains(t, debug.lines[0], "SELECT 1")
	}
}
