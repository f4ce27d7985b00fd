package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/handover-engine/pkg/config"
)

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig, environment string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if environment == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	switch cfg.Format {
	case "json":
		zcfg.Encoding = "json"
		zcfg.EncoderConfig = zap.NewProductionEncoderConfig()
	case "console":
		zcfg.Encoding = "console"
	}
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zcfg.Sampling = nil
	if cfg.Sampling.Enabled {
		zcfg.Sampling = &zap.SamplingConfig{
			Initial:    cfg.Sampling.Initial,
			Thereafter: cfg.Sampling.Thereafter,
		}
	}

	return zcfg.Build()
}
