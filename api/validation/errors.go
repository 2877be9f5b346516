package validation

import (
	"errors"
	"net/http"
)

// RequestError is a client-facing rejection. Message is returned to the
// caller verbatim.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

var (
	ErrUnsupportedMediaType = &RequestError{
		Status:  http.StatusUnsupportedMediaType,
		Message: "Unsupported content type. Use application/json (with fileBase64) or application/octet-stream (binary body).",
	}
	ErrPayloadTooLarge = &RequestError{
		Status:  http.StatusRequestEntityTooLarge,
		Message: "Request body exceeds the maximum upload size.",
	}
	ErrInvalidJSON = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "Request body must be a valid JSON document.",
	}
	ErrMissingTargetFormat = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "Target format is required (e.g., DXF, GeoJSON).",
	}
	ErrInvalidTargetFormat = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "Target format may only contain letters, digits, spaces, hyphens and underscores.",
	}
	ErrMissingFileBase64 = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "fileBase64 is required in the JSON payload.",
	}
	ErrInvalidBase64 = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "fileBase64 must be valid base64 content.",
	}
	ErrEmptyBinaryBody = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "Binary requests must include a non-empty body.",
	}
	ErrEmptyPayload = &RequestError{
		Status:  http.StatusBadRequest,
		Message: "Uploaded file content cannot be empty.",
	}
)

// StatusCode maps err to an HTTP status. Anything that is not a
// RequestError is an internal error.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return http.StatusInternalServerError
}
