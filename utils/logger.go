package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// InitLogger initializes the application logger. Output goes to stdout and to a
// daily file under logs/. Production uses JSON lines, everything else the console encoder.
func InitLogger(env string) error {
	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	file, err := os.OpenFile(
		filepath.Join(logsDir, fmt.Sprintf("app-%s.log", timestamp)),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zapcore.InfoLevel

	var encoder zapcore.Encoder
	if env == EnvProduction {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(file)),
		level,
	)
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// SetLogger replaces the package logger. Passing nil silences logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = nil
		return
	}
	logger = l.Sugar()
}

// SyncLogger flushes buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if logger != nil {
		logger.Infof(format, v...)
	}
}

// LogWarn logs a warning
func LogWarn(format string, v ...interface{}) {
	if logger != nil {
		logger.Warnf(format, v...)
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if logger != nil {
		logger.Errorf(format, v...)
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if logger != nil {
		logger.Debugf(format, v...)
	}
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip string, status int, duration time.Duration) {
	LogInfo("Request: %s %s from %s - Status: %d - Duration: %v", method, path, ip, status, duration)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	if logger != nil {
		logger.Errorf("Error: %v\nStack Trace:\n%s", err, stack)
	}
}
