package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// DefaultTailLines is the number of trailing lines a LineWriter keeps.
const DefaultTailLines = 10

// LineWriter is an io.Writer that turns a child process's console output
// into log records, one per line, and remembers the last few lines so they
// can be quoted in error messages.
//
// It is safe to use as both cmd.Stdout and cmd.Stderr.
type LineWriter struct {
	mu       sync.Mutex
	logger   *slog.Logger
	level    slog.Level
	attrs    []any
	buf      bytes.Buffer
	tail     []string
	tailSize int
}

// NewLineWriter returns a LineWriter logging at level with the given
// attributes attached to every record.
func NewLineWriter(logger *slog.Logger, level slog.Level, attrs ...any) *LineWriter {
	return &LineWriter{logger: logger, level: level, attrs: attrs, tailSize: DefaultTailLines}
}

// Write logs every complete line in p. A trailing partial line is held
// until more output arrives or Flush is called.
func (l *LineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *LineWriter) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

// Tail returns the last lines joined by " | ".
func (l *LineWriter) Tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.tail, " | ")
}

func (l *LineWriter) emit(line string) {
	// Progress meters redraw with \r; keep only the last segment.
	line = strings.TrimRight(line, "\r\n")
	if i := strings.LastIndexByte(line, '\r'); i >= 0 {
		line = line[i+1:]
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.Log(context.Background(), l.level, line, l.attrs...)
	l.tail = append(l.tail, line)
	if len(l.tail) > l.tailSize {
		l.tail = l.tail[len(l.tail)-l.tailSize:]
	}
}
