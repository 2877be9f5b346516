package models

import "strings"

type Encoding string

const (
	EncodingStructured Encoding = "structured"
	EncodingBinary     Encoding = "binary"
)

// ConversionRequest is the uniform form of an upload once its encoding has
// been resolved. TargetFormat and Payload are never empty.
type ConversionRequest struct {
	Encoding      Encoding
	TargetFormat  string
	SourceSRS     string
	TargetSRS     string
	PreferredName string
	Payload       []byte
}

// Extension is the lower-cased target format used for the output file name.
func (r *ConversionRequest) Extension() string {
	return strings.ToLower(r.TargetFormat)
}
