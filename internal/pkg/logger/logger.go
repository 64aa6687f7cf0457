package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvProduction включает JSON-формат логов
const EnvProduction = "production"

// NewLogger создает логгер для окружения env и делает его глобальным
func NewLogger(env string) (*zap.Logger, error) {
	var config zap.Config

	if env != EnvProduction {
		// Для разработки используем более читаемый формат
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// Для продакшна используем JSON формат
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	// Стек нужен только для ошибок: операции очистки необратимы
	config.DisableStacktrace = false

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(logger)

	return logger, nil
}
