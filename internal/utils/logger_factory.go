package utils

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	jsonZapEncodingConstant              = "json"
	consoleZapEncodingConstant           = "console"
	standardErrorOutputConstant          = "stderr"
	consoleTimeLayoutConstant            = "15:04:05"
	unsupportedLogLevelTemplateConstant  = "%w: %s (expected one of %s)"
	unsupportedLogFormatTemplateConstant = "%w: %s (expected one of %s)"
	supportedValuesSeparatorConstant     = ", "
)

var (
	// ErrUnsupportedLogLevel indicates a log level outside LogLevels.
	ErrUnsupportedLogLevel = errors.New("unsupported log level")
	// ErrUnsupportedLogFormat indicates a log format outside LogFormats.
	ErrUnsupportedLogFormat = errors.New("unsupported log format")
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = LogLevel("debug")
	LogLevelInfo  LogLevel = LogLevel("info")
	LogLevelWarn  LogLevel = LogLevel("warn")
	LogLevelError LogLevel = LogLevel("error")
)

// LogFormat enumerates supported logger encodings.
type LogFormat string

// Supported log formats. Structured emits JSON; console emits human-readable lines.
const (
	LogFormatStructured LogFormat = LogFormat("structured")
	LogFormatConsole    LogFormat = LogFormat("console")
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LogLevels lists supported levels from most to least verbose.
func LogLevels() []string {
	return []string{string(LogLevelDebug), string(LogLevelInfo), string(LogLevelWarn), string(LogLevelError)}
}

// LogFormats lists supported formats.
func LogFormats() []string {
	return []string{string(LogFormatStructured), string(LogFormatConsole)}
}

// ParseLogLevel normalizes a configured level.
func ParseLogLevel(rawLevel string) (LogLevel, error) {
	candidate := LogLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
	if _, supported := logLevelMapping[candidate]; !supported {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, ErrUnsupportedLogLevel, rawLevel, strings.Join(LogLevels(), supportedValuesSeparatorConstant))
	}
	return candidate, nil
}

// ParseLogFormat normalizes a configured format.
func ParseLogFormat(rawFormat string) (LogFormat, error) {
	candidate := LogFormat(strings.ToLower(strings.TrimSpace(rawFormat)))
	if candidate != LogFormatStructured && candidate != LogFormatConsole {
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, ErrUnsupportedLogFormat, rawFormat, strings.Join(LogFormats(), supportedValuesSeparatorConstant))
	}
	return candidate, nil
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger builds a logger writing to standard error at the requested level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, ErrUnsupportedLogLevel, requestedLogLevel, strings.Join(LogLevels(), supportedValuesSeparatorConstant))
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.OutputPaths = []string{standardErrorOutputConstant}
	configuration.ErrorOutputPaths = []string{standardErrorOutputConstant}

	switch requestedLogFormat {
	case LogFormatStructured:
		configuration.Encoding = jsonZapEncodingConstant
	case LogFormatConsole:
		configuration.Encoding = consoleZapEncodingConstant
		configuration.DisableStacktrace = true
		configuration.DisableCaller = true
		configuration.Sampling = nil
		configuration.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(consoleTimeLayoutConstant)
		configuration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, ErrUnsupportedLogFormat, requestedLogFormat, strings.Join(LogFormats(), supportedValuesSeparatorConstant))
	}

	return configuration.Build()
}
