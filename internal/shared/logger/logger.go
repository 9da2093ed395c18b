package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger do serviço. level vazio usa o default do ambiente
// (debug em local, info nos demais).
func New(serviceName string, env string, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	// sempre garantir que serviço e env entrem como campos padrão
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}
