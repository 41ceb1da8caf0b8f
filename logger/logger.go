package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a sugared zap logger. mode "prod" selects JSON output at info
// level, anything else a console encoder at debug level. When file is set the
// output is also written to a rotating log file.
func New(mode, file string) *zap.SugaredLogger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	level := zap.DebugLevel

	switch strings.ToLower(mode) {
	case "prod", "production":
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		level = zap.InfoLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}
	if file != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}
