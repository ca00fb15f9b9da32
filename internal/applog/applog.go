// Package applog writes a small structured event log for ctxkeep.
//
// Lines look like:
//
//	2026-01-02T15:04:05.000Z INFO contexts.saved id=3f2a name="Morning reading" tabs=12
package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	fileName     = "ctxkeep.log"
	maxFileSize  = 5 << 20 // 5 MB
	maxValueLen  = 200
	truncSuffix  = "…"
	timestampFmt = "2006-01-02T15:04:05.000Z"
)

var (
	mu   sync.Mutex
	file *os.File
)

// DefaultDir returns the log directory: $CTXKEEP_LOG_DIR, or
// ~/.local/share/ctxkeep when unset.
func DefaultDir() string {
	if dir := os.Getenv("CTXKEEP_LOG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "ctxkeep")
}

// Init opens the log file in dir for appending. If the file is larger than
// 5 MB it is first renamed to ctxkeep.log.1. Logging is a no-op until Init
// succeeds.
func Init(dir string) error {
	if dir == "" {
		return fmt.Errorf("applog: empty log directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, fileName)
	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	mu.Unlock()
	return nil
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
}

// Info logs a structured event line.
//
//	applog.Info("organize.auto", "contexts", 3)
func Info(event string, kv ...any) {
	write("INFO", event, nil, kv)
}

// Warn logs an event that was handled but worth noting, such as a skipped tab.
func Warn(event string, kv ...any) {
	write("WARN", event, nil, kv)
}

// Error logs an event with an error.
//
//	applog.Error("loader.tab", err, "url", u)
func Error(event string, err error, kv ...any) {
	write("ERROR", event, err, kv)
}

func write(level, event string, err error, kv []any) {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return
	}
	file.WriteString(format(time.Now(), level, event, err, kv))
}

func format(ts time.Time, level, event string, err error, kv []any) string {
	var b strings.Builder
	b.WriteString(ts.UTC().Format(timestampFmt))
	b.WriteByte(' ')
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(event)

	if err != nil {
		b.WriteString(" err=")
		b.WriteString(quote(err.Error()))
	}

	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteByte('=')
		b.WriteString(quote(fmt.Sprint(kv[i+1])))
	}
	b.WriteByte('\n')
	return b.String()
}

func quote(s string) string {
	if len(s) > maxValueLen {
		s = s[:maxValueLen] + truncSuffix
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
	}
	return s
}
