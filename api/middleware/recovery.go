package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"geometryConverter/api/dto"
)

func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				// Deliberate aborts must reach net/http untouched.
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.Error("Panic recovered",
					zap.String("trace_id", GetTraceID(r.Context())),
					zap.Any("error", err),
					zap.Stack("stack"),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(dto.ErrorResponse{
					Error: "Internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
