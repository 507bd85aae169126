package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options — параметры логгера из конфигурации.
type Options struct {
	Mode  string // "development" или "production"
	Level string
	File  string // пусто — пишем только в stderr
}

// New собирает zap-логгер: console-энкодер, ISO8601-время, опционально файл с ротацией.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Mode != "development" {
		cfg = zap.NewProductionConfig()
		cfg.DisableCaller = true
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if opts.Level != "" {
		if err := cfg.Level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	ws := zapcore.AddSync(os.Stderr)
	if opts.File != "" {
		ws = zapcore.NewMultiWriteSyncer(ws, getWriteSyncer(opts.File))
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), ws, cfg.Level)
	return cfg.Build(zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return core
	}))
}

func getWriteSyncer(logName string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   logName,
		MaxSize:    256, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		LocalTime:  true,
	})
}
