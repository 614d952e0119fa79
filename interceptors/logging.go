package interceptors

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// InterceptorLogger adapts a zap logger to the logging middleware's interface.
func InterceptorLogger(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		zapFields := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}

		switch lvl {
		case logging.LevelDebug:
			l.Debug(msg, zapFields...)
		case logging.LevelInfo:
			l.Info(msg, zapFields...)
		case logging.LevelWarn:
			l.Warn(msg, zapFields...)
		case logging.LevelError:
			l.Error(msg, zapFields...)
		default:
			l.Error("Unknown log level in interceptor", zap.String("original_msg", msg), zap.Any("level", lvl))
		}
	})
}

// ZapLoggingInterceptor returns a unary server interceptor that logs finished
// calls with the caller's user id when AuthInterceptor has run first.
func ZapLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	opts := []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
		logging.WithDurationField(logging.DurationToDurationField),
		logging.WithFieldsFromContext(func(ctx context.Context) logging.Fields {
			if id, ok := GetUserIDFromContext(ctx); ok {
				return logging.Fields{"user_id", id}
			}
			return nil
		}),
		logging.WithLevels(logging.DefaultServerCodeToLevel),
	}
	return logging.UnaryServerInterceptor(InterceptorLogger(logger), opts...)
}
