package mediactl

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is the package-wide operational logger. Operator-facing output goes to
// stdout via fmt; this logger carries structured detail for troubleshooting.
var log = zap.NewNop()

func InitLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if os.Getenv("MEDIACTL_DEBUG") != "" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	log = logger
	return logger, nil
}
