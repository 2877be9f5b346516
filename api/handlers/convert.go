package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"geometryConverter/api/dto"
	"geometryConverter/api/middleware"
	"geometryConverter/api/service"
	"geometryConverter/api/validation"
)

const fallbackErrorMessage = "Unexpected error while converting the geospatial file."

type ConvertHandler struct {
	service        *service.ConversionService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewConvertHandler(service *service.ConversionService, maxUploadBytes int64, logger *zap.Logger) *ConvertHandler {
	return &ConvertHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Convert handles POST /convert: validate, stage, convert, stream, clean up.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	req, err := validation.ParseConversionRequest(w, r, h.maxUploadBytes)
	if err != nil {
		h.handleError(w, err, traceID)
		return
	}

	files, err := h.service.Stage(req)
	if err != nil {
		h.handleError(w, err, traceID)
		return
	}
	// A client disconnect cancels r.Context(), which stops the converter;
	// the handler then returns and this runs.
	defer files.Release()

	h.logger.Info("Converting upload",
		zap.String("trace_id", traceID),
		zap.String("encoding", string(req.Encoding)),
		zap.String("format", req.TargetFormat),
		zap.Int("bytes", len(req.Payload)),
	)

	outputPath, err := h.service.Convert(r.Context(), files, req)
	if err != nil {
		h.handleError(w, err, traceID)
		return
	}

	h.sendFile(w, outputPath, files.OutputName, traceID)
}

func (h *ConvertHandler) sendFile(w http.ResponseWriter, path, name, traceID string) {
	f, err := os.Open(path)
	if err != nil {
		h.handleError(w, fmt.Errorf("open converted file: %w", err), traceID)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.handleError(w, fmt.Errorf("stat converted file: %w", err), traceID)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		h.logger.Error("Failed to stream converted file",
			zap.String("trace_id", traceID),
			zap.String("path", path),
			zap.Error(err),
		)
		// Headers already sent; abort the connection.
		panic(http.ErrAbortHandler)
	}
}

func (h *ConvertHandler) handleError(w http.ResponseWriter, err error, traceID string) {
	status := validation.StatusCode(err)

	message := err.Error()
	if message == "" {
		message = fallbackErrorMessage
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Conversion request failed",
			zap.String("trace_id", traceID),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		h.logger.Info("Conversion request rejected",
			zap.String("trace_id", traceID),
			zap.Int("status", status),
			zap.String("reason", message),
		)
	}

	respondJSON(w, status, dto.ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
