package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ANSI color codes for console output.
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

// ConsoleFormatter renders entries as aligned, optionally colored text.
type ConsoleFormatter struct {
	config *Config
}

// NewConsoleFormatter creates a console formatter.
func NewConsoleFormatter(config *Config) *ConsoleFormatter {
	return &ConsoleFormatter{config: config}
}

// Format implements Formatter.
func (f *ConsoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(entry.Timestamp.Format(f.config.TimeFormat))
	b.WriteString(" ")

	level := fmt.Sprintf("%-5s", entry.Level.String())
	if f.config.EnableColors {
		b.WriteString(f.levelColor(entry.Level))
		b.WriteString(level)
		b.WriteString(colorReset)
	} else {
		b.WriteString(level)
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf(" %s=%v", k, entry.Fields[k]))
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) levelColor(level Level) string {
	switch level {
	case LevelDebug:
		return colorGray
	case LevelInfo:
		return colorBlue
	case LevelWarn:
		return colorYellow
	case LevelError, LevelFatal:
		return colorRed
	default:
		return colorReset
	}
}

// JSONFormatter renders entries as single-line JSON objects.
type JSONFormatter struct {
	config *Config
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(config *Config) *JSONFormatter {
	return &JSONFormatter{config: config}
}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	payload := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		payload[k] = v
	}
	payload["time"] = entry.Timestamp.Format(f.config.TimeFormat)
	payload["level"] = entry.Level.String()
	payload["message"] = entry.Message
	if entry.Error != nil {
		payload["error"] = entry.Error.Error()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
