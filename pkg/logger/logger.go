// Package logger is the leveled printf-style logger shared by the Haiku+ binaries.
// Packages that want a prefix on every line take a component logger from Named.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

var (
	mu    sync.RWMutex
	out   = log.New(os.Stdout, "", 0)
	level = LevelInfo
	exit  = os.Exit
)

// ParseLevel maps a LOG_LEVEL value onto a Level; unknown values are Info.
func ParseLevel(s string) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn
	}
	for l, name := range levelNames {
		if name == s {
			return l
		}
	}
	return LevelInfo
}

// Init sets the global level. Call early during startup.
func Init(l string) {
	mu.Lock()
	level = ParseLevel(l)
	mu.Unlock()
}

// SetOutput redirects log lines and returns a func restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := out
	out = log.New(w, "", 0)
	mu.Unlock()
	return func() {
		mu.Lock()
		out = prev
		mu.Unlock()
	}
}

func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return levelNames[level]
}

func emit(l Level, format string, v ...interface{}) {
	mu.RLock()
	enabled, w := l >= level || l == LevelFatal, out
	mu.RUnlock()
	if !enabled {
		return
	}
	w.Printf("%s [%s] %s", time.Now().UTC().Format(time.RFC3339), strings.ToUpper(levelNames[l]), fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { emit(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { emit(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { emit(LevelError, format, v...) }

// Fatalf logs regardless of level and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	emit(LevelFatal, format, v...)
	exit(1)
}

// Token shortens a bearer credential for log lines. Tokens are never logged whole.
func Token(t string) string {
	if len(t) <= 10 {
		return "[redacted]"
	}
	return t[:6] + "..." + fmt.Sprintf("(%d)", len(t))
}

// Component is a logger that prefixes every line with a component name.
type Component struct {
	name string
}

// Named returns a component logger, e.g. Named("auth").Infof(...).
func Named(name string) *Component {
	return &Component{name: name}
}

func (c *Component) prefix(format string) string {
	if c == nil || c.name == "" {
		return format
	}
	return c.name + ": " + format
}

func (c *Component) Debugf(format string, v ...interface{}) { emit(LevelDebug, c.prefix(format), v...) }
func (c *Component) Infof(format string, v ...interface{})  { emit(LevelInfo, c.prefix(format), v...) }
func (c *Component) Warnf(format string, v ...interface{})  { emit(LevelWarn, c.prefix(format), v...) }
func (c *Component) Errorf(format string, v ...interface{}) { emit(LevelError, c.prefix(format), v...) }
