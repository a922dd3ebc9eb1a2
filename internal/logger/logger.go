package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Options configures the global logger.
type Options struct {
	Level    string
	ToFile   bool
	FilePath string
}

// Init builds the global logger. Console output is always on; a JSON file
// core is added when Options.ToFile is set.
func Init(opts Options) error {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}

	if opts.ToFile {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// Get returns the global logger, falling back to a production default when
// Init was never called (useful in tests).
func Get() *zap.SugaredLogger {
	if log == nil {
		fallback, _ := zap.NewProduction()
		log = fallback.Sugar()
	}
	return log
}

func Debug(msg string, keysAndValues ...interface{}) { Get().Debugw(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...interface{})  { Get().Infow(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...interface{})  { Get().Warnw(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...interface{}) { Get().Errorw(msg, keysAndValues...) }
func Fatal(msg string, keysAndValues ...interface{}) { Get().Fatalw(msg, keysAndValues...) }

// With creates a child logger with preset fields.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return Get().With(keysAndValues...)
}

// Sync flushes buffered entries.
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}
