package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"geometryConverter/api/middleware"
)

// NewRouter wires the HTTP surface and its middleware chain.
func NewRouter(convert *ConvertHandler, allowedOrigins []string, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("POST /convert", convert.Convert)

	return middleware.Chain(mux,
		middleware.TraceID,
		middleware.Logging(logger),
		middleware.Recovery(logger),
		middleware.SecurityHeaders,
		middleware.CORS(allowedOrigins),
	)
}
