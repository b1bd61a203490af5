// Package cloudevents unwraps structured-format CloudEvents envelopes so
// downstream handlers read a plain payload. Binary-format deliveries carry the
// payload as the raw body already and pass through untouched.
package cloudevents

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	apperrors "github.com/allisson/orders/internal/errors"
)

// Envelope property names defined by the structured JSON format.
const (
	propData            = "data"
	propDataBase64      = "data_base64"
	propDataContentType = "datacontenttype"
)

const defaultDataContentType = "application/json"

// property is a single top-level envelope member with its raw JSON value.
type property struct {
	Name  string
	Value json.RawMessage
}

// parseEnvelope decodes the top level of a structured envelope, preserving
// property order. Property matching elsewhere is case-insensitive, so the
// original names are kept as-is.
func parseEnvelope(body []byte) ([]property, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid envelope body")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "envelope body is not a JSON object")
	}

	var props []property
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid envelope property name")
		}
		name, ok := nameTok.(string)
		if !ok {
			return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid envelope property name")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid envelope property value")
		}

		props = append(props, property{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid envelope body")
	}

	return props, nil
}

// findProperty returns the first property matching the name case-insensitively.
func findProperty(props []property, name string) (property, bool) {
	for _, p := range props {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return property{}, false
}

// isJSONString reports whether the raw value is a JSON string literal.
func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '"'
}

// dataContentType resolves the effective payload content type from the
// envelope. A declared datacontenttype wins when it is a string holding a
// parseable media type; charset parameters are stripped since payloads are
// normalized to UTF-8. Absent or unusable declarations default to JSON.
func dataContentType(props []property) (contentType string, isJSON bool) {
	prop, found := findProperty(props, propDataContentType)
	if !found || !isJSONString(prop.Value) {
		return defaultDataContentType, true
	}

	var declared string
	if err := json.Unmarshal(prop.Value, &declared); err != nil {
		return defaultDataContentType, true
	}

	mediaType, params, err := mime.ParseMediaType(declared)
	if err != nil {
		return defaultDataContentType, true
	}

	isJSON = mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")

	if _, hasCharset := params["charset"]; hasCharset {
		delete(params, "charset")
		declared = mime.FormatMediaType(mediaType, params)
	}

	return declared, isJSON
}
