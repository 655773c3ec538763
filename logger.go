package deeply

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
)

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value any
}

// Logger receives task lifecycle messages.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	With(fields ...Field) Logger
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Info(context.Context, string, ...Field)         {}
func (nopLogger) Error(context.Context, string, error, ...Field) {}
func (l nopLogger) With(...Field) Logger                         { return l }

// lineLogger writes one "[LEVEL] msg key=value ..." line per call.
type lineLogger struct {
	out    *log.Logger
	fields []Field
}

// NewLogger returns a Logger writing plain lines to w.
func NewLogger(w io.Writer) Logger {
	return &lineLogger{out: log.New(w, "", log.LstdFlags)}
}

func (l *lineLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.out.Println(l.format("[INFO] "+msg, fields))
}

func (l *lineLogger) Error(_ context.Context, msg string, err error, fields ...Field) {
	l.out.Println(l.format(fmt.Sprintf("[ERROR] %s: %v", msg, err), fields))
}

func (l *lineLogger) With(fields ...Field) Logger {
	combined := make([]Field, 0, len(l.fields)+len(fields))
	combined = append(combined, l.fields...)
	combined = append(combined, fields...)
	return &lineLogger{out: l.out, fields: combined}
}

func (l *lineLogger) format(head string, fields []Field) string {
	var b strings.Builder
	b.WriteString(head)
	for _, group := range [][]Field{l.fields, fields} {
		for _, f := range group {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	return b.String()
}
