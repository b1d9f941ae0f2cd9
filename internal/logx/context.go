package logx

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// Into stores l as the logger for everything running under ctx.
func Into(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// With binds fields onto the ctx logger (or L when ctx has none).
func With(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return Into(ctx, From(ctx).With(fields...))
}

// From is the logger bound to ctx, falling back to L.
func From(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return L
}
