package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	LogLevel   string `env:"LOGGER_LEVEL" envDefault:"info"`
	DevMode    bool   `env:"LOGGER_DEV_MODE" envDefault:"false"`
	Encoder    string `env:"LOGGER_ENCODER" envDefault:"json"`
	LogFile    string `env:"LOGGER_FILE"`
	MaxSizeMB  int    `env:"LOGGER_FILE_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOGGER_FILE_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOGGER_FILE_MAX_AGE_DAYS" envDefault:"28"`
}

type Logger interface {
	InitLogger()
	Sync() error
	Logger() *zap.Logger
	With(fields ...zap.Field) Logger
	Debug(msg string, fields ...zap.Field)
	Debugf(template string, args ...interface{})
	Info(msg string, fields ...zap.Field)
	Infof(template string, args ...interface{})
	Warn(msg string, fields ...zap.Field)
	Warnf(template string, args ...interface{})
	Error(msg string, fields ...zap.Field)
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
}

type appLogger struct {
	cfg         *Config
	logger      *zap.Logger
	sugarLogger *zap.SugaredLogger
}

func NewAppLogger(cfg *Config) *appLogger {
	if cfg == nil {
		cfg = &Config{LogLevel: "info"}
	}
	return &appLogger{cfg: cfg}
}

// NewNopLogger discards everything, used by tests and as a safe default.
func NewNopLogger() Logger {
	l := zap.NewNop()
	return &appLogger{cfg: &Config{}, logger: l, sugarLogger: l.Sugar()}
}

func (l *appLogger) getLoggerLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(l.cfg.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (l *appLogger) InitLogger() {
	level := l.getLoggerLevel()

	var encoderCfg zapcore.EncoderConfig
	if l.cfg.DevMode {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.NameKey = "logger"
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "message"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if l.cfg.DevMode || l.cfg.Encoder == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	writer := zapcore.AddSync(os.Stdout)
	if l.cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(l.cfg.LogFile), 0o755); err == nil {
			writer = zapcore.NewMultiWriteSyncer(writer, zapcore.AddSync(&lumberjack.Logger{
				Filename:   l.cfg.LogFile,
				MaxSize:    l.cfg.MaxSizeMB,
				MaxBackups: l.cfg.MaxBackups,
				MaxAge:     l.cfg.MaxAgeDays,
				Compress:   true,
			}))
		}
	}

	core := zapcore.NewCore(encoder, writer, zap.NewAtomicLevelAt(level))
	l.logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	l.sugarLogger = l.logger.Sugar()
}

func (l *appLogger) Sync() error {
	if l.logger == nil {
		return nil
	}
	return l.logger.Sync()
}

func (l *appLogger) Logger() *zap.Logger {
	return l.logger
}

func (l *appLogger) With(fields ...zap.Field) Logger {
	child := l.logger.With(fields...)
	return &appLogger{cfg: l.cfg, logger: child, sugarLogger: child.Sugar()}
}

func (l *appLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Debug(msg, fields...)
}

func (l *appLogger) Debugf(template string, args ...interface{}) {
	l.sugarLogger.Debugf(template, args...)
}

func (l *appLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Info(msg, fields...)
}

func (l *appLogger) Infof(template string, args ...interface{}) {
	l.sugarLogger.Infof(template, args...)
}

func (l *appLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Warn(msg, fields...)
}

func (l *appLogger) Warnf(template string, args ...interface{}) {
	l.sugarLogger.Warnf(template, args...)
}

func (l *appLogger) Error(msg string, fields ...zap.Field) {
	l.logger.Error(msg, fields...)
}

func (l *appLogger) Errorf(template string, args ...interface{}) {
	l.sugarLogger.Errorf(template, args...)
}

func (l *appLogger) Fatalf(template string, args ...interface{}) {
	l.sugarLogger.Fatalf(template, args...)
}
