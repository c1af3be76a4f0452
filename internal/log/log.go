// Package log provides structured logging for the gateway relay
package log

import (
	"context"
	"os"
	"path/filepath"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// Logger is a leveled key/value logger
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
	Named(name string) Logger
	Sync() error
}

// Config configures the zap backend
type Config struct {
	Format string `env:"LOG_FORMAT" env-default:"console" validate:"oneof=console logfmt json"`
	Level  string `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Output string `env:"LOG_OUTPUT" env-default:"stderr"` // stderr, stdout or file path

	// Rotation of file output
	MaxSizeMB  int `env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int `env:"LOG_MAX_BACKUPS" env-default:"5"`
	MaxAgeDays int `env:"LOG_MAX_AGE_DAYS" env-default:"30"`
}

type zapLogger struct {
	lg *zap.SugaredLogger
}

// New creates a zap backed Logger. Extra write syncers receive a copy of every entry.
func New(conf Config, extraWriters ...zapcore.WriteSyncer) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}

	var encoder zapcore.Encoder
	switch conf.Format {
	case "logfmt":
		encoder = zaplogfmt.NewEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	switch conf.Output {
	case "", "stderr":
		ws = zapcore.Lock(os.Stderr)
	case "stdout":
		ws = zapcore.Lock(os.Stdout)
	default:
		ws = fileWriter(conf)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(append(extraWriters, ws)...), parseLevel(conf.Level))
	return &zapLogger{lg: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// fileWriter writes to a size-rotated file, falling back to stderr when the
// directory cannot be created.
func fileWriter(conf Config) zapcore.WriteSyncer {
	if err := os.MkdirAll(filepath.Dir(conf.Output), 0o755); err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   conf.Output,
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAgeDays,
	})
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.lg.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.lg.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.lg.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.lg.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger { return &zapLogger{lg: l.lg.With(kv...)} }

func (l *zapLogger) Named(name string) Logger { return &zapLogger{lg: l.lg.Named(name)} }

func (l *zapLogger) Sync() error { return l.lg.Sync() }

// Nop returns a Logger that discards everything
func Nop() Logger {
	return &zapLogger{lg: zap.NewNop().Sugar()}
}

// CallObserver logs the outcome of every gateway call
type CallObserver struct {
	logger Logger
}

var _ alidayu.Observer = (*CallObserver)(nil)

// NewCallObserver creates an observer writing to logger
func NewCallObserver(logger Logger) *CallObserver {
	return &CallObserver{logger: logger.Named("gateway")}
}

// ObserveCall implements alidayu.Observer
func (o *CallObserver) ObserveCall(_ context.Context, rec *alidayu.CallRecord) {
	kv := []any{
		"method", rec.Method,
		"endpoint", rec.Endpoint,
		"format", string(rec.Format),
		"sign_method", string(rec.SignMethod),
		"duration", rec.Duration,
	}
	if rec.Err == nil {
		o.logger.Info("gateway call succeeded", kv...)
		return
	}

	kv = append(kv, "outcome", alidayu.Classify(rec.Err), "error", rec.Err.Error())
	if apiErr, ok := alidayu.IsAPIError(rec.Err); ok {
		kv = append(kv, "code", apiErr.Code)
		o.logger.Warn("gateway rejected call", kv...)
		return
	}
	o.logger.Error("gateway call failed", kv...)
}
