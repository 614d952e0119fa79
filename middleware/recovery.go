package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// RecoverHandler returns a go-restful recover handler that logs the panic and
// answers 500 without leaking the panic value.
func RecoverHandler(logger *zap.Logger) func(panicReason interface{}, w http.ResponseWriter) {
	return func(panicReason interface{}, w http.ResponseWriter) {
		logger.Error("Panic recovered",
			zap.String("panic", fmt.Sprint(panicReason)),
			zap.ByteString("stack", debug.Stack()),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"kind": "internal_server_error", "message": "Internal Server Error"},
		})
	}
}
