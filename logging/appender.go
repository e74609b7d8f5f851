package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// NewZapEncoderConfig returns the encoder config used by console appenders. The output looks like:
//
//	2024-03-12T09:32:14.011-0400	INFO	hsa.worldtobase	worldtobase/node.go:97	base frame latched	{"base_id":3}
func NewZapEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// ConsoleAppender writes tab delimited, human readable log lines to a writer.
type ConsoleAppender struct {
	zapcore.Core
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender creates a new appender that outputs to the input writer. The appender does not
// filter on level; the owning logger does.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	encoder := zapcore.NewConsoleEncoder(NewZapEncoderConfig())
	return ConsoleAppender{zapcore.NewCore(encoder, zapcore.AddSync(writer), zapcore.DebugLevel)}
}

// FileAppender writes log lines to a file that is rotated once it grows past MaxSizeMB.
type FileAppender struct {
	zapcore.Core
	logger *lumberjack.Logger
}

// Rotation limits of file appenders.
const (
	MaxSizeMB  = 100
	MaxBackups = 3
)

// NewFileAppender creates a new appender that writes JSON lines to filename, rotating and compressing
// old files.
func NewFileAppender(filename string) *FileAppender {
	logger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		Compress:   true,
	}
	encoder := zapcore.NewJSONEncoder(NewZapEncoderConfig())
	return &FileAppender{
		Core:   zapcore.NewCore(encoder, zapcore.AddSync(logger), zapcore.DebugLevel),
		logger: logger,
	}
}

// Close closes the underlying file.
func (fa *FileAppender) Close() error {
	return fa.logger.Close()
}
