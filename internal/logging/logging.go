// Package logging is a thin, leveled wrapper around the standard logger,
// generalized from a "[Email Monitor] ..." tagged log.Printf idiom into
// per-component prefixes ([sync], [imap], [job:sync], ...) kept
// intentionally undramatic rather than adopting zerolog/zap.
package logging

import (
	"fmt"
	"log"
)

// Logger prints leveled, prefixed lines through the standard log package.
type Logger struct {
	prefix string
}

// New returns a Logger tagging every line with "[component]".
func New(component string) *Logger {
	return &Logger{prefix: "[" + component + "]"}
}

func (l *Logger) Info(format string, args ...any) {
	log.Printf("%s INFO %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	log.Printf("%s WARN %s", l.prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	log.Printf("%s ERROR %s", l.prefix, fmt.Sprintf(format, args...))
}
