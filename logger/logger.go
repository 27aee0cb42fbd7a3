package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	levelNames = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m", // Cyan
		INFO:  "\033[32m", // Green
		WARN:  "\033[33m", // Yellow
		ERROR: "\033[31m", // Red
		FATAL: "\033[35m", // Magenta
	}

	resetColor = "\033[0m"
)

// String returns the level name used in log lines and configuration.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a configuration string (debug, info, warn, error, fatal) to a level.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Logger writes levelled lines to the console and, optionally, a daily log file.
type Logger struct {
	level      LogLevel
	console    io.Writer
	file       *os.File
	mu         sync.Mutex
	useColor   bool
	prefix     string
	showCaller bool
	logDir     string
	fileName   string
	day        string
	done       chan struct{}
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Config describes how the logger should be initialised.
type Config struct {
	Level      LogLevel
	LogDir     string
	FileName   string    // log file base name, "<FileName>-YYYY-MM-DD.log"
	MaxSize    int64     // bytes
	MaxAge     int       // days
	Output     io.Writer // console destination, stdout when nil
	UseColor   bool
	ShowCaller bool
	Prefix     string
}

// Initialize installs a new global logger, closing the previous one.
func Initialize(config Config) error {
	l := &Logger{
		level:      config.Level,
		console:    config.Output,
		useColor:   config.UseColor,
		prefix:     config.Prefix,
		showCaller: config.ShowCaller,
		logDir:     config.LogDir,
		fileName:   config.FileName,
	}
	if l.console == nil {
		l.console = os.Stdout
	}
	if l.fileName == "" {
		l.fileName = "miniplm"
	}
	if l.prefix != "" && !strings.HasPrefix(l.prefix, " ") {
		l.prefix = " " + l.prefix
	}

	if config.LogDir != "" {
		if err := os.MkdirAll(config.LogDir, 0755); err != nil {
			return err
		}
		if err := l.openDayFile(time.Now()); err != nil {
			return err
		}
		l.done = make(chan struct{})
		go l.rotateLogFiles(config.MaxSize, config.MaxAge)
	}

	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return nil
}

// Close stops rotation and closes the log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		close(l.done)
		l.done = nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// Shutdown closes the global logger; later calls fall back to the standard log package.
func Shutdown() {
	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// openDayFile opens (or creates) the log file for the day of now. Caller holds mu or owns l.
func (l *Logger) openDayFile(now time.Time) error {
	day := now.Format("2006-01-02")
	logPath := filepath.Join(l.logDir, fmt.Sprintf("%s-%s.log", l.fileName, day))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.day = day
	return nil
}

// rotateLogFiles hourly prunes old files and archives oversized ones.
func (l *Logger) rotateLogFiles(maxSize int64, maxAge int) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			l.rotate(now, maxSize, maxAge)
		}
	}
}

func (l *Logger) rotate(now time.Time, maxSize int64, maxAge int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}

	currentPath := l.file.Name()
	if info, err := l.file.Stat(); err == nil && maxSize > 0 && info.Size() > maxSize {
		l.file.Close()
		l.file = nil
		archived := strings.TrimSuffix(currentPath, ".log") + fmt.Sprintf("-%d.log", now.Unix())
		os.Rename(currentPath, archived)
		l.openDayFile(now)
	} else if now.Format("2006-01-02") != l.day {
		l.openDayFile(now)
	}

	if maxAge <= 0 {
		return
	}
	files, _ := filepath.Glob(filepath.Join(l.logDir, l.fileName+"-*.log"))
	for _, file := range files {
		if l.file != nil && file == l.file.Name() {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > time.Duration(maxAge)*24*time.Hour {
			os.Remove(file)
		}
	}
}

// log writes the formatted entry to the console and the log file.
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelName := levelNames[level]
	message := fmt.Sprintf(format, args...)

	caller := ""
	if l.showCaller {
		// log <- Info/Entry.log <- caller
		_, file, line, ok := runtime.Caller(3)
		if ok {
			caller = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	plain := fmt.Sprintf("%s%s [%s]%s %s\n", timestamp, caller, levelName, l.prefix, message)
	if l.useColor {
		fmt.Fprintf(l.console, "%s%s [%s]%s %s%s%s\n",
			timestamp, caller, levelName, l.prefix, levelColors[level], message, resetColor)
	} else {
		io.WriteString(l.console, plain)
	}
	if l.file != nil {
		l.file.WriteString(plain)
	}

	if level == FATAL {
		if l.file != nil {
			l.file.Sync()
		}
		os.Exit(1)
	}
}

func emit(level LogLevel, format string, args ...interface{}) {
	if l := current(); l != nil {
		l.log(level, format, args...)
		return
	}
	if level == DEBUG {
		return
	}
	if level == FATAL {
		log.Fatalf("[FATAL] "+format, args...)
	}
	log.Printf("["+levelNames[level]+"] "+format, args...)
}

// Public helper methods for the default logger.
func Debug(format string, args ...interface{}) { emit(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { emit(INFO, format, args...) }
func Warn(format string, args ...interface{})  { emit(WARN, format, args...) }
func Error(format string, args ...interface{}) { emit(ERROR, format, args...) }
func Fatal(format string, args ...interface{}) { emit(FATAL, format, args...) }

// WithFields attaches structured fields to the log entry.
func WithFields(fields map[string]interface{}) *LogEntry {
	return &LogEntry{fields: fields}
}

// LogEntry represents a structured log entry builder.
type LogEntry struct {
	fields map[string]interface{}
}

func (e *LogEntry) Debug(format string, args ...interface{}) { e.log(DEBUG, format, args...) }
func (e *LogEntry) Info(format string, args ...interface{})  { e.log(INFO, format, args...) }
func (e *LogEntry) Warn(format string, args ...interface{})  { e.log(WARN, format, args...) }
func (e *LogEntry) Error(format string, args ...interface{}) { e.log(ERROR, format, args...) }
func (e *LogEntry) Fatal(format string, args ...interface{}) { e.log(FATAL, format, args...) }

// Log writes the entry at a level chosen at runtime.
func (e *LogEntry) Log(level LogLevel, format string, args ...interface{}) {
	e.log(level, format, args...)
}

func (e *LogEntry) log(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// key 순으로 정렬해 출력
	if len(e.fields) > 0 {
		keys := make([]string, 0, len(e.fields))
		for k := range e.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldStrs := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldStrs = append(fieldStrs, fmt.Sprintf("%s=%v", k, e.fields[k]))
		}
		message = fmt.Sprintf("%s | %s", message, strings.Join(fieldStrs, ", "))
	}

	emit(level, "%s", message)
}

// SetLevel updates the global logging level.
func SetLevel(level LogLevel) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.level = level
		l.mu.Unlock()
	}
}

// GetLevel returns the current global logging level.
func GetLevel() LogLevel {
	if l := current(); l != nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.level
	}
	return INFO
}
