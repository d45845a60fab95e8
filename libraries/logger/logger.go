package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes category-tagged lines:
//
//	2024-06-01 16:34:19 session  client 3f2a connected
//
// Categories starting with "debug" are only printed at LevelDebug or when
// they are explicitly listed in the category filter.
type Logger struct {
	output         io.Writer
	minLevel       Level
	categoryWidth  int
	categoryFilter map[string]bool
}

var (
	defaultLogger = New(os.Stdout)
	mu            sync.Mutex
	logFile       *os.File
)

var bufferPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{output: w, minLevel: LevelInfo}
}

// Default returns the process-wide logger used by the package functions.
func Default() *Logger {
	return defaultLogger
}

func RegisterCategories(categories ...string) {
	defaultLogger.RegisterCategories(categories...)
}

// RegisterCategories pads every category column to the longest name.
func (l *Logger) RegisterCategories(categories ...string) {
	mu.Lock()
	defer mu.Unlock()

	width := 0
	for _, cat := range categories {
		if len(cat) > width {
			width = len(cat)
		}
	}
	l.categoryWidth = width + 1
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	defaultLogger.output = w
}

// SetLogFile tees the default logger to stdout and path.
func SetLogFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	logFile = f
	defaultLogger.output = io.MultiWriter(os.Stdout, f)
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile == nil {
		return
	}
	logFile.Sync()
	logFile.Close()
	logFile = nil
	defaultLogger.output = os.Stdout
}

func SetMinLevel(level Level) {
	defaultLogger.SetMinLevel(level)
}

func (l *Logger) SetMinLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	l.minLevel = level
}

func SetCategoryFilter(categories []string) {
	defaultLogger.SetCategoryFilter(categories)
}

// SetCategoryFilter restricts output to the listed categories. An empty list
// allows every category. "error" and "warning" always pass.
func (l *Logger) SetCategoryFilter(categories []string) {
	mu.Lock()
	defer mu.Unlock()

	if len(categories) == 0 {
		l.categoryFilter = nil
		return
	}
	l.categoryFilter = make(map[string]bool, len(categories))
	for _, cat := range categories {
		l.categoryFilter[cat] = true
	}
}

func IsCategoryEnabled(category string) bool {
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger.categoryAllowed(category)
}

func Printf(category string, format string, v ...interface{}) {
	defaultLogger.Printf(category, format, v...)
}

func Println(category string, v ...interface{}) {
	defaultLogger.Println(category, v...)
}

func Error(format string, v ...interface{}) {
	defaultLogger.Printf("error", format, v...)
}

func Warning(format string, v ...interface{}) {
	defaultLogger.Printf("warning", format, v...)
}

func Fatal(format string, v ...interface{}) {
	defaultLogger.Fatal(format, v...)
}

func (l *Logger) Printf(category string, format string, v ...interface{}) {
	category, ok := l.accept(category)
	if !ok {
		return
	}

	buf := l.begin(category)
	defer release(buf)

	fmt.Fprintf(buf, format, v...)
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] != '\n' {
		buf.WriteByte('\n')
	}
	l.write(buf)
}

func (l *Logger) Println(category string, v ...interface{}) {
	category, ok := l.accept(category)
	if !ok {
		return
	}

	buf := l.begin(category)
	defer release(buf)

	fmt.Fprintln(buf, v...)
	l.write(buf)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.Printf("error", format, v...)
}

func (l *Logger) Warning(format string, v ...interface{}) {
	l.Printf("warning", format, v...)
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Printf("error", format, v...)
	os.Exit(1)
}

func (l *Logger) accept(category string) (string, bool) {
	explicit := l.categoryFilter != nil && l.categoryFilter[category]
	if !explicit {
		if levelForCategory(category) < l.minLevel {
			return "", false
		}
		if !l.categoryAllowed(category) && category != "error" && category != "warning" {
			return "", false
		}
	}
	if !validCategory(category) {
		category = "invalid_category"
	}
	return category, true
}

func (l *Logger) categoryAllowed(category string) bool {
	return l.categoryFilter == nil || l.categoryFilter[category]
}

func (l *Logger) begin(category string) *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	buf.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	buf.WriteString(category)
	for i := len(category); i < l.categoryWidth; i++ {
		buf.WriteByte(' ')
	}
	buf.WriteByte(' ')
	return buf
}

func (l *Logger) write(buf *bytes.Buffer) {
	mu.Lock()
	l.output.Write(buf.Bytes())
	mu.Unlock()
}

func release(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 {
		return
	}
	bufferPool.Put(buf)
}
