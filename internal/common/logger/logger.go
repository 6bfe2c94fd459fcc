// Package logger provides structured logging for agentmux-core using go.uber.org/zap.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	// CorrelationIDKey is the context key carrying a cross-request correlation id.
	CorrelationIDKey contextKey = "correlation_id"
	// RequestIDKey is the context key carrying a per-HTTP-request id.
	RequestIDKey contextKey = "request_id"
)

// Config holds logger configuration.
type Config struct {
	Level      string `mapstructure:"level"`      // debug, info, warn, error
	Format     string `mapstructure:"format"`     // json, console
	OutputPath string `mapstructure:"outputPath"` // stdout, stderr, or file path
}

// Logger wraps zap.Logger with helpers for the entity fields this codebase
// logs over and over: team, project, member, session.
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// Default returns the process-wide default logger, created lazily.
func Default() *Logger {
	defaultLoggerOnce.Do(func() {
		var err error
		defaultLogger, err = New(Config{Level: "info", Format: detectFormat(), OutputPath: "stdout"})
		if err != nil {
			zapLogger, _ := zap.NewProduction()
			defaultLogger = &Logger{zap: zapLogger, sugar: zapLogger.Sugar()}
		}
	})
	return defaultLogger
}

// SetDefault overrides the process-wide default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// New builds a Logger from Config.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" || cfg.Format == "text" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var writer zapcore.WriteSyncer
	switch cfg.OutputPath {
	case "", "stdout":
		writer = zapcore.AddSync(os.Stdout)
	case "stderr":
		writer = zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writer, level)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{zap: zapLogger, sugar: zapLogger.Sugar()}, nil
}

// detectFormat defaults to JSON under an orchestrator/container environment
// and to console output for a developer's terminal.
func detectFormat() string {
	if os.Getenv("AGENTMUX_ENV") == "production" {
		return "json"
	}
	return "text"
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// WithFields returns a derived Logger carrying the given structured fields.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	child := l.zap.With(fields...)
	return &Logger{zap: child, sugar: child.Sugar()}
}

// WithContext attaches correlation/request IDs found on ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var fields []zap.Field
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("correlation_id", v))
	}
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields...)
}

// WithError attaches an error field.
func (l *Logger) WithError(err error) *Logger { return l.WithFields(zap.Error(err)) }

// WithTeamID attaches a team_id field.
func (l *Logger) WithTeamID(id string) *Logger { return l.WithFields(zap.String("team_id", id)) }

// WithMemberID attaches a member_id field.
func (l *Logger) WithMemberID(id string) *Logger { return l.WithFields(zap.String("member_id", id)) }

// WithSessionName attaches a session_name field.
func (l *Logger) WithSessionName(name string) *Logger {
	return l.WithFields(zap.String("session_name", name))
}

// WithProjectID attaches a project_id field.
func (l *Logger) WithProjectID(id string) *Logger {
	return l.WithFields(zap.String("project_id", id))
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Sugar returns the underlying zap.SugaredLogger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }
