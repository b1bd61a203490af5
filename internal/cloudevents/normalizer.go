package cloudevents

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/ianaindex"

	apperrors "github.com/allisson/orders/internal/errors"
	"github.com/allisson/orders/internal/httputil"
)

// envelopeContentType is the structured-format media type this middleware unwraps.
const envelopeContentType = "application/cloudevents+json"

// headerPrefix namespaces forwarded envelope properties on the request.
const headerPrefix = "Cloudevent."

// excludedFromHeaders are envelope properties that either carry the payload or
// already travel as transport metadata, so they are never forwarded.
var excludedFromHeaders = []string{
	propDataContentType, propData, propDataBase64, "pubsubname", "traceparent",
}

// Options configures the normalizer middleware.
type Options struct {
	// ForwardPropertiesAsHeaders forwards envelope properties as request
	// headers named "Cloudevent.<lowercased property name>".
	ForwardPropertiesAsHeaders bool

	// IncludedProperties, when set, is the only filter applied on top of the
	// built-in exclusions: only the listed properties are forwarded.
	IncludedProperties []string

	// ExcludedProperties removes the listed properties from forwarding. It is
	// ignored when IncludedProperties is set.
	ExcludedProperties []string
}

// Normalizer returns a middleware that rewrites structured-envelope requests
// so downstream handlers see the plain payload and its declared content type.
// Requests with any other content type pass through unchanged: unsupported
// formats are not failures, only envelopes we do support can be incorrect.
// The original body and content type are restored after the handler chain
// runs, on every exit path.
func Normalizer(opts Options, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		charset, ok := matchesEnvelope(c.Request.Header.Get("Content-Type"))
		if !ok {
			c.Next()
			return
		}

		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "failed to read envelope body"), logger)
			return
		}

		decodedBody, err := decodeCharset(rawBody, charset)
		if err != nil {
			abortWithError(c, err, logger)
			return
		}

		props, err := parseEnvelope(decodedBody)
		if err != nil {
			abortWithError(c, err, logger)
			return
		}

		dataProp, hasData := findProperty(props, propData)
		base64Prop, hasBase64 := findProperty(props, propDataBase64)

		if hasData && hasBase64 {
			abortWithError(c, apperrors.ErrAmbiguousPayload, logger)
			return
		}

		var newBody []byte
		var newContentType string

		switch {
		case hasData:
			contentType, isJSON := dataContentType(props)
			newContentType = contentType

			// A non-string value is necessarily JSON; the structured format
			// requires non-JSON text to travel as a JSON string.
			if isJSON || !isJSONString(dataProp.Value) {
				newBody = dataProp.Value
			} else {
				var text string
				if err := json.Unmarshal(dataProp.Value, &text); err != nil {
					abortWithError(c, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid data value"), logger)
					return
				}
				newBody = []byte(text)
			}

		case hasBase64:
			var encoded string
			if err := json.Unmarshal(base64Prop.Value, &encoded); err != nil {
				abortWithError(c, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "data_base64 is not a string"), logger)
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				abortWithError(c, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "invalid data_base64 value"), logger)
				return
			}
			newBody = decoded
			newContentType, _ = dataContentType(props)

		default:
			// No payload at all: empty body, cleared content type.
			newBody = nil
			newContentType = ""
		}

		forwardProperties(c, props, opts)

		originalContentType := c.Request.Header.Get("Content-Type")
		originalContentLength := c.Request.ContentLength

		defer func() {
			c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
			c.Request.ContentLength = originalContentLength
			setContentType(c, originalContentType)
		}()

		c.Request.Body = io.NopCloser(bytes.NewReader(newBody))
		c.Request.ContentLength = int64(len(newBody))
		setContentType(c, newContentType)

		c.Next()
	}
}

// matchesEnvelope checks the declared content type against the structured
// format and extracts its charset, defaulting to UTF-8.
func matchesEnvelope(contentType string) (charset string, ok bool) {
	if contentType == "" {
		return "", false
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != envelopeContentType {
		return "", false
	}

	charset = params["charset"]
	if charset == "" {
		charset = "utf-8"
	}
	return charset, true
}

// decodeCharset converts the body to UTF-8 when the envelope declares another
// character encoding.
func decodeCharset(body []byte, charset string) ([]byte, error) {
	if strings.EqualFold(charset, "utf-8") {
		return body, nil
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "unsupported envelope charset")
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedEnvelope, "failed to decode envelope charset")
	}
	return decoded, nil
}

// forwardProperties adds envelope properties as namespaced request headers.
// Built-in exclusions always apply; an inclusion list, when configured, is the
// sole further filter, otherwise the configured exclusion list is honored.
func forwardProperties(c *gin.Context, props []property, opts Options) {
	if !opts.ForwardPropertiesAsHeaders {
		return
	}

	for _, prop := range props {
		if containsFold(excludedFromHeaders, prop.Name) {
			continue
		}

		if opts.IncludedProperties != nil {
			if !containsFold(opts.IncludedProperties, prop.Name) {
				continue
			}
		} else if opts.ExcludedProperties != nil && containsFold(opts.ExcludedProperties, prop.Name) {
			continue
		}

		key := headerPrefix + strings.ToLower(prop.Name)
		if c.Request.Header.Get(key) != "" {
			continue
		}

		value := strings.Trim(string(prop.Value), `"`)
		c.Request.Header.Set(key, value)
	}
}

func containsFold(values []string, name string) bool {
	for _, v := range values {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

func setContentType(c *gin.Context, contentType string) {
	if contentType == "" {
		c.Request.Header.Del("Content-Type")
		return
	}
	c.Request.Header.Set("Content-Type", contentType)
}

func abortWithError(c *gin.Context, err error, logger *slog.Logger) {
	httputil.HandleErrorGin(c, err, logger)
	c.Abort()
}
