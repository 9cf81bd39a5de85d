// default logger
package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	// call InitLog outside if need change cfg
	InitLog(DefaultDebugCfg())
}

var L *zap.Logger

func InitLog(cfg zap.Config) {
	var err error
	if L, err = cfg.Build(); err != nil {
		panic(err)
	}
}

// InitLogByLevel switches between the debug and prod cfg by level name ("debug", "info", "warn", "error").
func InitLogByLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return err
	}
	cfg := DefaultProdCfg()
	if lvl == zapcore.DebugLevel {
		cfg = DefaultDebugCfg()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	InitLog(cfg)
	return nil
}

func DefaultDebugCfg() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	// set log output
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	return cfg
}

func DefaultProdCfg() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	return cfg
}
