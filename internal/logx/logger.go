package logx

import (
	"go.uber.org/zap"
)

// L is the process logger. It discards everything until Init runs.
var L = zap.NewNop()

// Init replaces L. Anything but env "prod" gets the readable dev encoder.
func Init(env string) {
	cfg := zap.NewProductionConfig()

	// Local dev readability
	if env != "prod" {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	L = logger
}

// Room is the logger every room-scoped component writes through.
func Room(base *zap.Logger, id int) *zap.Logger {
	return base.With(zap.Int("room", id))
}
