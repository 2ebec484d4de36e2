package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a level, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	lvl := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[lvl]; ok {
		return lvl
	}
	return LevelInfo
}

type LogFields map[string]interface{}

type Logger interface {
	WithFields(fields LogFields) Logger

	Debug(action, message string)
	Info(action, message string)
	Warn(action, message string)
	Error(action string, err error)
}

// jsonLogger writes one JSON document per line.
type jsonLogger struct {
	mu         *sync.Mutex // shared by derived loggers so lines never interleave
	out        io.Writer
	service    string
	hostname   string
	minLevel   LogLevel
	baseFields LogFields
}

type logEntry struct {
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Service   string   `json:"service"`
	Action    string   `json:"action"`
	Message   string   `json:"message"`
	Hostname  string   `json:"hostname"`
	RequestID string   `json:"request_id,omitempty"`
	RideID    string   `json:"ride_id,omitempty"`
	DriverID  string   `json:"driver_id,omitempty"`
	RiderID   string   `json:"rider_id,omitempty"`

	Error *errorEntry `json:"error,omitempty"`

	Fields LogFields `json:"fields,omitempty"`
}

type errorEntry struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// NewLogger creates a structured JSON logger on stdout at INFO level.
func NewLogger(serviceName string) Logger {
	return NewLoggerWithWriter(serviceName, os.Stdout, LevelInfo)
}

// NewLoggerWithWriter creates a logger writing to out, dropping entries below minLevel.
func NewLoggerWithWriter(serviceName string, out io.Writer, minLevel LogLevel) Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &jsonLogger{
		mu:         &sync.Mutex{},
		out:        out,
		service:    serviceName,
		hostname:   host,
		minLevel:   minLevel,
		baseFields: make(LogFields),
	}
}

// Nop discards everything. Handy in tests that do not assert on logs.
func Nop() Logger {
	return NewLoggerWithWriter("nop", io.Discard, LevelError)
}

// WithFields returns a logger carrying the receiver's fields plus fields.
func (l *jsonLogger) WithFields(fields LogFields) Logger {
	merged := make(LogFields, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &jsonLogger{
		mu:         l.mu,
		out:        l.out,
		service:    l.service,
		hostname:   l.hostname,
		minLevel:   l.minLevel,
		baseFields: merged,
	}
}

func (l *jsonLogger) Debug(action, message string) {
	l.log(LevelDebug, action, message, nil)
}

func (l *jsonLogger) Info(action, message string) {
	l.log(LevelInfo, action, message, nil)
}

func (l *jsonLogger) Warn(action, message string) {
	l.log(LevelWarn, action, message, nil)
}

// Error logs err with a trimmed stack of the caller.
func (l *jsonLogger) Error(action string, err error) {
	if err == nil {
		err = fmt.Errorf("%s", action)
	}
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	l.log(LevelError, action, err.Error(), &errorEntry{
		Msg:   err.Error(),
		Stack: cleanStack(string(buf[:n])),
	})
}

func (l *jsonLogger) log(level LogLevel, action, message string, errData *errorEntry) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := &logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   l.service,
		Action:    action,
		Message:   message,
		Hostname:  l.hostname,
		Error:     errData,
		Fields:    make(LogFields),
	}

	for k, v := range l.baseFields {
		s, isString := v.(string)
		switch {
		case k == "ride_id" && isString:
			entry.RideID = s
		case k == "request_id" && isString:
			entry.RequestID = s
		case k == "driver_id" && isString:
			entry.DriverID = s
		case k == "rider_id" && isString:
			entry.RiderID = s
		default:
			entry.Fields[k] = v
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	line, err := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log: %v\n", err)
		fmt.Fprintf(l.out, "%s [%s] %s: %s\n", entry.Timestamp, entry.Level, entry.Action, entry.Message)
		return
	}
	fmt.Fprintln(l.out, string(line))
}

// cleanStack drops runtime frames and the logger's own frame.
func cleanStack(stack string) string {
	lines := strings.Split(stack, "\n")
	var cleaned []string

	if len(lines) > 0 {
		cleaned = append(cleaned, lines[0])
	}

	for i := 1; i+1 < len(lines); i += 2 {
		funcName := lines[i]
		filePath := strings.TrimSpace(lines[i+1])

		if strings.HasPrefix(funcName, "runtime.") ||
			strings.HasPrefix(funcName, "testing.") ||
			strings.Contains(funcName, "logger.(*jsonLogger)") {
			continue
		}
		cleaned = append(cleaned, funcName, "    "+filePath)
	}

	return strings.Join(cleaned, "\n")
}
