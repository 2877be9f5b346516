package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"geometryConverter/api/models"
)

const (
	mediaTypeJSON   = "application/json"
	mediaTypeBinary = "application/octet-stream"
)

// Negotiate picks the request encoding from a Content-Type header value.
func Negotiate(contentType string) (models.Encoding, error) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == mediaTypeJSON {
		return models.EncodingStructured, nil
	}
	if strings.Contains(strings.ToLower(contentType), mediaTypeBinary) {
		return models.EncodingBinary, nil
	}
	return "", ErrUnsupportedMediaType
}

// ParseConversionRequest negotiates the encoding, reads at most maxBytes of
// body and validates the conversion parameters.
func ParseConversionRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (*models.ConversionRequest, error) {
	encoding, err := Negotiate(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	body, err := readBody(w, r, maxBytes)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case models.EncodingStructured:
		return parseStructured(body)
	default:
		return parseBinary(r.URL.Query(), body)
	}
}

func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

func parseStructured(body []byte) (*models.ConversionRequest, error) {
	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}

	field := func(name string) string {
		return strings.TrimSpace(gjson.GetBytes(body, name).String())
	}

	targetFormat := field("targetFormat")
	if targetFormat == "" {
		return nil, ErrMissingTargetFormat
	}
	if !validTargetFormat(targetFormat) {
		return nil, ErrInvalidTargetFormat
	}

	fileBase64 := gjson.GetBytes(body, "fileBase64")
	encoded := strings.TrimSpace(fileBase64.String())
	if encoded == "" {
		return nil, ErrMissingFileBase64
	}
	if fileBase64.Type != gjson.String {
		return nil, ErrInvalidBase64
	}

	payload, err := DecodeBase64(encoded)
	if err != nil {
		return nil, ErrInvalidBase64
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	return &models.ConversionRequest{
		Encoding:      models.EncodingStructured,
		TargetFormat:  strings.ToUpper(targetFormat),
		SourceSRS:     field("sourceSrs"),
		TargetSRS:     field("targetSrs"),
		PreferredName: field("fileName"),
		Payload:       payload,
	}, nil
}

func parseBinary(query url.Values, body []byte) (*models.ConversionRequest, error) {
	param := func(name string) string {
		return strings.TrimSpace(query.Get(name))
	}

	targetFormat := param("targetFormat")
	if targetFormat == "" {
		return nil, ErrMissingTargetFormat
	}
	if !validTargetFormat(targetFormat) {
		return nil, ErrInvalidTargetFormat
	}

	if len(body) == 0 {
		return nil, ErrEmptyBinaryBody
	}

	return &models.ConversionRequest{
		Encoding:      models.EncodingBinary,
		TargetFormat:  strings.ToUpper(targetFormat),
		SourceSRS:     param("sourceSrs"),
		TargetSRS:     param("targetSrs"),
		PreferredName: param("fileName"),
		Payload:       body,
	}, nil
}

// validTargetFormat accepts OGR driver short names such as "GeoJSON",
// "ESRI Shapefile" or "MapInfo File". The format also becomes the output
// extension, so path characters are refused.
func validTargetFormat(format string) bool {
	for _, r := range format {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 accepts the standard and URL-safe alphabets, padded or not.
// Line breaks and other whitespace are ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")

	var lastErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
