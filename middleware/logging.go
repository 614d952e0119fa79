package middleware

import (
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// AccessLog logs one line per request after it has been handled.
func AccessLog(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		fields := []zap.Field{
			zap.String("client_ip", clientIP(req)),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("request_id", RequestIDFromContext(req.Request.Context())),
		}
		if userID, ok := req.Attribute("user_id").(uint); ok {
			fields = append(fields, zap.Uint("user_id", userID))
		}

		switch {
		case resp.StatusCode() >= 500:
			logger.Error("Request", fields...)
		case resp.StatusCode() >= 400:
			logger.Warn("Request", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

func clientIP(req *restful.Request) string {
	if fwd := req.HeaderParameter("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return req.Request.RemoteAddr
}
