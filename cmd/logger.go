package cmd

import (
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes the run journal to a rotating file under .redline/. The
// terminal gets the condensed view; the journal gets everything, including
// verification output, so a failed run can be reconstructed afterwards.
type Logger struct {
	logger *slog.Logger
	sink   *lumberjack.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the singleton run journal logger.
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		sink := &lumberjack.Logger{
			Filename:   ".redline/redline.log",
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = &Logger{
			logger: slog.New(slog.NewTextHandler(sink, nil)),
			sink:   sink,
		}
	})
	return globalLogger
}

// Logf writes one formatted line to the journal.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Log writes a structured record to the journal.
func (l *Logger) Log(msg string, attrs ...any) {
	l.logger.Info(msg, attrs...)
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	return l.sink.Close()
}
