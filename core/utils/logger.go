package utils

import (
	"io"
	"log"
	"os"
)

// Logger is a thin leveled wrapper around the standard logger. A nil *Logger
// is safe to call, so components can take it as an optional dependency.
type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags|log.LUTC)}
}

func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", log.LstdFlags|log.LUTC)}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf("ERROR "+format, args...)
}
