package middleware

import (
	"context"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		requestID := req.HeaderParameter(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		resp.AddHeader(HeaderRequestID, requestID)
		req.SetAttribute("request_id", requestID)
		req.Request = req.Request.WithContext(context.WithValue(req.Request.Context(), requestIDKey{}, requestID))
		chain.ProcessFilter(req, resp)
	}
}

// RequestIDFromContext returns the id stored by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
