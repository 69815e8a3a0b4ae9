package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/demoseed/treeseed/pkg/constants"
)

func WithLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger stored in ctx, or the logrus standard logger.
func UseLogger(ctx context.Context) logrus.FieldLogger {
	if ctx == nil {
		return logrus.StandardLogger()
	}
	switch typed := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return typed
	case logrus.FieldLogger:
		return typed
	default:
		return logrus.StandardLogger()
	}
}
